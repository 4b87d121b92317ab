//go:build linux || darwin || windows

package clip

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"golang.design/x/clipboard"
)

type desktopBackend struct {
	watchCh  chan struct{}
	done     chan struct{}
	lastText []byte
	lastImg  []byte
}

// New returns the native clipboard backend. When the display environment is
// unavailable (no X11/Wayland, or a build without cgo) it falls back to the
// command-line backend, and failing that to a headless no-op backend.
// clipboard.Init is called here rather than in init() so that CLI
// sub-commands that never construct a Backend don't trigger the warning.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("native clipboard unavailable", "err", err)
		return newFallback()
	}
	b := &desktopBackend{
		watchCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	b.lastText = clipboard.Read(clipboard.FmtText)
	b.lastImg = clipboard.Read(clipboard.FmtImage)
	go b.poll()
	return b
}

func (b *desktopBackend) Name() string { return "native clipboard (poll)" }

func (b *desktopBackend) poll() {
	t := time.NewTicker(PollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			text := clipboard.Read(clipboard.FmtText)
			img := clipboard.Read(clipboard.FmtImage)
			if !bytes.Equal(text, b.lastText) || !bytes.Equal(img, b.lastImg) {
				b.lastText = text
				b.lastImg = img
				notify(b.watchCh)
			}
		}
	}
}

func (b *desktopBackend) Read() ([]Item, error) {
	var items []Item
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		items = append(items, Item{MIME: MIMEText, Data: text})
	}
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		items = append(items, Item{MIME: MIMEPNG, Data: img})
	}
	return items, nil
}

func (b *desktopBackend) Write(items []Item) error {
	for _, it := range items {
		switch {
		case isText(it.MIME):
			clipboard.Write(clipboard.FmtText, it.Data)
		case it.MIME == MIMEPNG:
			clipboard.Write(clipboard.FmtImage, it.Data)
		default:
			return fmt.Errorf("unsupported MIME type: %s", it.MIME)
		}
	}
	return nil
}

func (b *desktopBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *desktopBackend) Close()                 { close(b.done) }
