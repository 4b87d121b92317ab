// Package history holds the clipboard history store: an ordered list of
// clipboard snapshots, newest first, with de-duplication against the most
// recent entry.
package history

import (
	"bytes"
	"maps"
	"time"
)

// Metadata keys set by the capture layer.
const (
	MetaSource  = "source"
	MetaBackend = "backend"
)

// Entry is one clipboard snapshot.
type Entry struct {
	Data     []byte
	MIME     string
	Metadata map[string]string

	// Time is when the entry was captured. It is not part of the entry's
	// identity.
	Time time.Time
}

// NewEntry returns an Entry stamped with the current time. data and
// metadata are copied.
func NewEntry(data []byte, mime string, metadata map[string]string) Entry {
	return Entry{
		Data:     bytes.Clone(data),
		MIME:     mime,
		Metadata: maps.Clone(metadata),
		Time:     time.Now(),
	}
}

// Same reports whether e and other carry the same payload and MIME type.
func (e Entry) Same(other Entry) bool {
	return e.MIME == other.MIME && bytes.Equal(e.Data, other.Data)
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	return Entry{
		Data:     bytes.Clone(e.Data),
		MIME:     e.MIME,
		Metadata: maps.Clone(e.Metadata),
		Time:     e.Time,
	}
}

// Size returns the payload length in bytes.
func (e Entry) Size() int { return len(e.Data) }
