// Package hub implements the central history broker.
// It owns the history store, serialises every access to it, and fans out
// change events to registered watchers. It is transport-agnostic: the gRPC
// service, the HTTP API, the capture peer and the history saver all talk to
// the store through a Hub.
package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"go.klb.dev/cliphist/internal/history"
)

// ErrNoActivator is returned by Activate when nothing can write to the
// system clipboard.
var ErrNoActivator = errors.New("no clipboard activator registered")

// Kind identifies what changed in the history.
type Kind string

const (
	KindAdded     Kind = "added"
	KindRemoved   Kind = "removed"
	KindActivated Kind = "activated"
	KindTrimmed   Kind = "trimmed"
)

// Event is a history change delivered to a watcher.
type Event struct {
	Kind   Kind
	Index  int
	Entry  history.Entry
	Origin string
	// Count is the number of entries after the change.
	Count int
}

// Watcher is anything that wants to hear about history changes.
type Watcher interface {
	ID() string
	// Send delivers an event to the watcher. Must be non-blocking.
	Send(Event)
}

// Activator writes an entry back to the system clipboard.
type Activator interface {
	Activate(history.Entry) error
}

// Hub routes history changes between the store and all registered watchers.
type Hub struct {
	mu       sync.RWMutex
	store    *history.Store
	watchers map[string]Watcher

	activatorMu sync.RWMutex
	activator   Activator
}

// New returns a Hub that owns store.
func New(store *history.Store) *Hub {
	return &Hub{
		store:    store,
		watchers: make(map[string]Watcher),
	}
}

// SetActivator registers the clipboard writer used by Activate. Only one
// activator is supported; calling again replaces it.
func (h *Hub) SetActivator(a Activator) {
	h.activatorMu.Lock()
	h.activator = a
	h.activatorMu.Unlock()
}

// Register adds a watcher.
func (h *Hub) Register(w Watcher) {
	h.mu.Lock()
	h.watchers[w.ID()] = w
	total := len(h.watchers)
	h.mu.Unlock()

	slog.Debug("watcher registered", "watcher", w.ID(), "total", total)
}

// Unregister removes a watcher.
func (h *Hub) Unregister(w Watcher) {
	h.mu.Lock()
	delete(h.watchers, w.ID())
	total := len(h.watchers)
	h.mu.Unlock()

	slog.Debug("watcher unregistered", "watcher", w.ID(), "total", total)
}

// Add inserts e at the head of the history. It returns false when e repeats
// the current head and was ignored.
func (h *Hub) Add(e history.Entry, origin string) bool {
	h.mu.Lock()
	before := h.store.Count()
	if !h.store.Add(e) {
		h.mu.Unlock()
		slog.Debug("duplicate of head entry ignored", "origin", origin, "mime", e.MIME)
		return false
	}
	count := h.store.Count()
	targets := h.watchersLocked()
	h.mu.Unlock()

	LogEntry("history entry added", origin, e)
	ev := Event{Kind: KindAdded, Index: 0, Entry: e, Origin: origin, Count: count}
	fanout(targets, ev)
	if dropped := before + 1 - count; dropped > 0 {
		fanout(targets, Event{Kind: KindTrimmed, Index: count, Origin: origin, Count: count})
	}
	return true
}

// Remove deletes the entry at index i. An out-of-range index is ignored and
// Remove returns false.
func (h *Hub) Remove(i int, origin string) (history.Entry, bool) {
	h.mu.Lock()
	e, err := h.store.At(i)
	if err != nil {
		h.mu.Unlock()
		slog.Debug("remove ignored", "index", i, "origin", origin)
		return history.Entry{}, false
	}
	h.store.Remove(i)
	count := h.store.Count()
	targets := h.watchersLocked()
	h.mu.Unlock()

	slog.Info("history entry removed", "index", i, "origin", origin, "count", count)
	fanout(targets, Event{Kind: KindRemoved, Index: i, Entry: e, Origin: origin, Count: count})
	return e, true
}

// At returns the entry at index i, or an error wrapping history.ErrOutOfRange.
func (h *Hub) At(i int) (history.Entry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store.At(i)
}

// Count returns the number of entries.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store.Count()
}

// Entries returns a snapshot of the history, newest first.
func (h *Hub) Entries() []history.Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store.Entries()
}

// Limit returns the current capacity bound (0 = unbounded).
func (h *Hub) Limit() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store.Limit()
}

// SetLimit changes the capacity bound, trimming the oldest entries if needed.
func (h *Hub) SetLimit(n int) {
	h.mu.Lock()
	old := h.store.Limit()
	dropped := h.store.SetLimit(n)
	limit := h.store.Limit()
	count := h.store.Count()
	targets := h.watchersLocked()
	h.mu.Unlock()

	if old != limit {
		slog.Info("history limit changed", "from", old, "to", limit, "dropped", dropped)
	}
	if dropped > 0 {
		fanout(targets, Event{Kind: KindTrimmed, Index: count, Origin: "limit", Count: count})
	}
}

// Activate writes the entry at index i to the system clipboard via the
// registered Activator. The history itself is not modified; the capture
// layer records the clipboard change like any other.
func (h *Hub) Activate(i int, origin string) (history.Entry, error) {
	h.activatorMu.RLock()
	a := h.activator
	h.activatorMu.RUnlock()
	if a == nil {
		return history.Entry{}, ErrNoActivator
	}

	e, err := h.At(i)
	if err != nil {
		return history.Entry{}, err
	}
	if err := a.Activate(e); err != nil {
		return history.Entry{}, fmt.Errorf("activate entry %d: %w", i, err)
	}

	LogEntry("history entry activated", origin, e)

	h.mu.RLock()
	count := h.store.Count()
	targets := h.watchersLocked()
	h.mu.RUnlock()
	fanout(targets, Event{Kind: KindActivated, Index: i, Entry: e, Origin: origin, Count: count})
	return e, nil
}

// Watchers returns the IDs of the registered watchers, sorted.
func (h *Hub) Watchers() []string {
	h.mu.RLock()
	ids := slices.Collect(maps.Keys(h.watchers))
	h.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// watchersLocked snapshots the watcher set. Must be called with h.mu held.
func (h *Hub) watchersLocked() []Watcher {
	out := make([]Watcher, 0, len(h.watchers))
	for _, w := range h.watchers {
		out = append(out, w)
	}
	return out
}

func fanout(targets []Watcher, ev Event) {
	for _, w := range targets {
		w.Send(ev)
	}
}
