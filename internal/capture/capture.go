// Package capture bridges the system clipboard and the history hub: it
// records every clipboard change as a history entry and writes activated
// entries back to the clipboard.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.klb.dev/cliphist/internal/clip"
	"go.klb.dev/cliphist/internal/history"
	"go.klb.dev/cliphist/internal/hub"
)

// Origin tags history events produced by the capture peer.
const Origin = "clipboard"

// Peer watches a clipboard backend and is the hub's Activator.
type Peer struct {
	h       *hub.Hub
	backend clip.Backend
	source  string

	mu   sync.Mutex
	last clip.Item
	// activated is the entry last written by Activate, until it is seen
	// on the clipboard again.
	activated *history.Entry
}

// New creates the capture peer but does not start it.
func New(h *hub.Hub, backend clip.Backend, source string) *Peer {
	return &Peer{h: h, backend: backend, source: source}
}

// Activate implements hub.Activator by writing e to the system clipboard.
func (p *Peer) Activate(e history.Entry) error {
	p.mu.Lock()
	p.activated = &e
	p.mu.Unlock()

	if err := p.backend.Write([]clip.Item{{MIME: e.MIME, Data: e.Data}}); err != nil {
		p.mu.Lock()
		p.activated = nil
		p.mu.Unlock()
		return fmt.Errorf("%s: %w", p.backend.Name(), err)
	}
	slog.Debug("clipboard updated from history", "mime", e.MIME, "size_bytes", e.Size())
	return nil
}

// Run installs the peer as the hub's activator and records clipboard changes
// until ctx is cancelled.
func (p *Peer) Run(ctx context.Context) {
	p.h.SetActivator(p)
	defer p.h.SetActivator(nil)

	slog.Info("clipboard capture started", "backend", p.backend.Name(), "source", p.source)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.backend.Watch():
			p.capture()
		}
	}
}

// capture reads the clipboard once and records it if it changed since the
// last read.
func (p *Peer) capture() {
	items, err := p.backend.Read()
	if err != nil {
		slog.Error("clipboard read failed", "err", err)
		return
	}
	it, ok := pick(items)
	if !ok {
		return
	}

	p.mu.Lock()
	// Backends may only offer text/plain; an activated text/html entry
	// comes back under its own type.
	if a := p.activated; a != nil && bytes.Equal(it.Data, a.Data) {
		it.MIME = a.MIME
		p.activated = nil
	}
	if it.MIME == p.last.MIME && bytes.Equal(it.Data, p.last.Data) {
		p.mu.Unlock()
		return
	}
	p.last = it
	p.mu.Unlock()

	p.h.Add(history.NewEntry(it.Data, it.MIME, map[string]string{
		history.MetaSource:  p.source,
		history.MetaBackend: p.backend.Name(),
	}), Origin)
}

// pick chooses the representation to record: text first, then image, then
// whatever non-empty item comes first.
func pick(items []clip.Item) (clip.Item, bool) {
	for _, want := range []string{clip.MIMEText, clip.MIMEPNG, ""} {
		for _, it := range items {
			if len(it.Data) == 0 {
				continue
			}
			if want == "" || it.MIME == want {
				return it, true
			}
		}
	}
	return clip.Item{}, false
}
