package hub

import (
	"context"
	"log/slog"

	"go.klb.dev/cliphist/internal/history"
)

// LogEntry logs a history event at INFO (origin, mime type, size) and at
// DEBUG the printable description of the entry.
func LogEntry(event, origin string, e history.Entry) {
	slog.Info(event, "origin", origin, "mime", e.MIME, "size_bytes", e.Size())

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("history entry", "mime", e.MIME, "preview", history.Describe(e))
}
