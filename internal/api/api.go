// Package api defines the cliphist RPC surface: request/response types, the
// JSON codec they travel in, and the gRPC service descriptor shared by the
// daemon and the CLI.
//
// Messages are plain Go structs encoded as JSON (content-subtype "json").
// Payloads are []byte and therefore base64 in the JSON encoding.
package api

import (
	"time"

	"go.klb.dev/cliphist/internal/history"
)

// Entry is one history row as seen by clients.
type Entry struct {
	Index       int               `json:"index"`
	MIME        string            `json:"mime"`
	Size        int               `json:"size"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Time        time.Time         `json:"time,omitzero"`
	// Data is only filled when the request asked for payloads.
	Data []byte `json:"data,omitempty"`
}

// FromHistory converts a store entry at index i. Data is copied only when
// withData is set.
func FromHistory(i int, e history.Entry, withData bool) Entry {
	out := Entry{
		Index:       i,
		MIME:        e.MIME,
		Size:        e.Size(),
		Description: history.Describe(e),
		Metadata:    e.Metadata,
		Time:        e.Time,
	}
	if withData {
		out.Data = e.Data
	}
	return out
}

type AddRequest struct {
	Data     []byte            `json:"data"`
	MIME     string            `json:"mime"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type AddResponse struct {
	// Added is false when the entry repeated the current head.
	Added bool `json:"added"`
	Count int  `json:"count"`
}

type RemoveRequest struct {
	Index int `json:"index"`
}

type RemoveResponse struct {
	// Removed is false when the index was out of range.
	Removed bool `json:"removed"`
	Count   int  `json:"count"`
}

type GetRequest struct {
	Index int `json:"index"`
}

type GetResponse struct {
	Entry Entry `json:"entry"`
}

type ListRequest struct {
	WithData bool `json:"with_data,omitempty"`
}

type ListResponse struct {
	Entries []Entry `json:"entries"`
	Count   int     `json:"count"`
	Limit   int     `json:"limit"`
}

type ActivateRequest struct {
	Index int `json:"index"`
}

type ActivateResponse struct {
	Entry Entry `json:"entry"`
}

type StatusRequest struct{}

// DaemonInfo describes the running daemon. It is fixed at start-up.
type DaemonInfo struct {
	Version     string    `json:"version"`
	Source      string    `json:"source"`
	Backend     string    `json:"backend"`
	Persistent  bool      `json:"persistent"`
	Saving      bool      `json:"saving"`
	HistoryFile string    `json:"history_file,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

type StatusResponse struct {
	DaemonInfo
	Count    int      `json:"count"`
	Limit    int      `json:"limit"`
	Watchers []string `json:"watchers,omitempty"`
}

type WatchRequest struct {
	WithData bool `json:"with_data,omitempty"`
}

// WatchEvent is one history change.
type WatchEvent struct {
	Kind   string `json:"kind"`
	Index  int    `json:"index"`
	Origin string `json:"origin,omitempty"`
	Count  int    `json:"count"`
	Entry  *Entry `json:"entry,omitempty"`
}
