package clip

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// commandBackend reaches the clipboard through external tools (xclip, xsel,
// wl-copy, pbcopy, clip.exe) via atotto/clipboard. Text only.
type commandBackend struct {
	watchCh chan struct{}
	done    chan struct{}
	last    string
}

// newFallback returns the command-line backend when a clipboard tool is
// installed, otherwise the headless backend.
func newFallback() Backend {
	if clipboard.Unsupported {
		slog.Warn("no clipboard tool found, running headless")
		return newHeadless()
	}
	b := &commandBackend{
		watchCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	b.last, _ = clipboard.ReadAll()
	go b.poll()
	return b
}

func (b *commandBackend) Name() string { return "command-line clipboard (poll)" }

func (b *commandBackend) poll() {
	t := time.NewTicker(PollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			text, err := clipboard.ReadAll()
			if err != nil || text == b.last {
				continue
			}
			b.last = text
			notify(b.watchCh)
		}
	}
}

func (b *commandBackend) Read() ([]Item, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read clipboard: %w", err)
	}
	if text == "" {
		return nil, nil
	}
	return []Item{{MIME: MIMEText, Data: []byte(text)}}, nil
}

func (b *commandBackend) Write(items []Item) error {
	for _, it := range items {
		if !isText(it.MIME) {
			return fmt.Errorf("unsupported MIME type: %s", it.MIME)
		}
		if err := clipboard.WriteAll(string(it.Data)); err != nil {
			return fmt.Errorf("write clipboard: %w", err)
		}
	}
	return nil
}

func (b *commandBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *commandBackend) Close()                 { close(b.done) }

// isText reports whether mime can be written as plain text.
func isText(mime string) bool {
	return strings.HasPrefix(mime, "text/")
}
