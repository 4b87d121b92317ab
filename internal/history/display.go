package history

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

const previewRunes = 80

var htmlConverter = sync.OnceValue(func() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
})

// Describe returns a single printable line for e, suitable for a history
// listing. Text is shown inline; other payloads are summarised.
func Describe(e Entry) string {
	switch {
	case e.MIME == "text/html" && utf8.Valid(e.Data):
		return Preview(htmlText(string(e.Data)), previewRunes)
	case strings.HasPrefix(e.MIME, "text/") && utf8.Valid(e.Data):
		return Preview(string(e.Data), previewRunes)
	case strings.HasPrefix(e.MIME, "image/"):
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(e.Data)); err == nil {
			return fmt.Sprintf("[%d×%d image]", cfg.Width, cfg.Height)
		}
		return fmt.Sprintf("[image, %s]", FormatSize(len(e.Data)))
	default:
		return fmt.Sprintf("<binary, %s>", FormatSize(len(e.Data)))
	}
}

// htmlText renders an HTML fragment as Markdown so the preview shows the
// copied text rather than its markup. Unparseable input is returned as is.
func htmlText(html string) string {
	md, err := htmlConverter().ConvertString(html)
	if err != nil || strings.TrimSpace(md) == "" {
		return html
	}
	return md
}

// Preview collapses whitespace runs in s to single spaces and truncates the
// result to n runes, appending "…" when truncated.
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// FormatSize renders a byte count in binary units.
func FormatSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := int64(n) / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
