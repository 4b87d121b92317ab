package persist

import (
	"context"
	"log/slog"

	"go.klb.dev/cliphist/internal/crypto"
	"go.klb.dev/cliphist/internal/hub"
)

const saverID = "persist/saver"

// Saver is a hub.Watcher that rewrites the history file after every change.
// Bursts of changes are coalesced into one write.
type Saver struct {
	h     *hub.Hub
	path  string
	key   *crypto.Key
	dirty chan struct{}
}

// NewSaver creates a Saver for h. Call Run to start it.
func NewSaver(h *hub.Hub, path string, key *crypto.Key) *Saver {
	return &Saver{
		h:     h,
		path:  path,
		key:   key,
		dirty: make(chan struct{}, 1),
	}
}

func (s *Saver) ID() string { return saverID }

// Send implements hub.Watcher.
func (s *Saver) Send(ev hub.Event) {
	if ev.Kind == hub.KindActivated {
		return
	}
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Run registers with the hub and writes the file whenever the history
// changes. It flushes once more and returns when ctx is cancelled.
func (s *Saver) Run(ctx context.Context) {
	s.h.Register(s)
	defer s.h.Unregister(s)

	slog.Info("history saver started", "path", s.path, "sealed", s.key != nil)
	for {
		select {
		case <-ctx.Done():
			select {
			case <-s.dirty:
				s.flush()
			default:
			}
			return
		case <-s.dirty:
			s.flush()
		}
	}
}

func (s *Saver) flush() {
	entries := s.h.Entries()
	if err := Save(s.path, entries, s.key); err != nil {
		slog.Error("history save failed", "path", s.path, "err", err)
		return
	}
	slog.Debug("history saved", "path", s.path, "entries", len(entries))
}
