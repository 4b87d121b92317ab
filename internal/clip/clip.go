// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the implementation:
//
//	clip_desktop.go   linux/darwin/windows via golang.design/x/clipboard, polling
//	clip_command.go   text-only fallback via atotto/clipboard (xclip, wl-paste, pbpaste…)
//	clip_headless.go  no-op backend for containers and CI
package clip

import "time"

// PollInterval is how often polling backends sample the clipboard.
const PollInterval = 250 * time.Millisecond

// Supported MIME types.
const (
	MIMEText = "text/plain"
	MIMEPNG  = "image/png"
)

// Item is a single clipboard representation with a MIME type.
type Item struct {
	MIME string
	Data []byte
}

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard contents as a slice of typed items.
	// Returns nil, nil if the clipboard is empty or holds only unsupported types.
	Read() ([]Item, error)

	// Write sets the clipboard contents to the provided items.
	Write(items []Item) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. The channel is never closed. The caller should call Read when
	// it receives from the channel.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}

// notify performs a non-blocking send on a watch channel.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
