package history

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 3, 2))))

	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"plain text", NewEntry([]byte("hello"), "text/plain", nil), "hello"},
		{"whitespace collapsed", NewEntry([]byte("  a\n\tb  c \n"), "text/plain", nil), "a b c"},
		{"html as markdown", NewEntry([]byte("<p>see <b>this</b></p>"), "text/html", nil), "see **this**"},
		{"html link", NewEntry([]byte(`<a href="https://go.dev">Go</a>`), "text/html", nil), "[Go](https://go.dev)"},
		{"invalid utf8 text", NewEntry([]byte{0xff, 0xfe}, "text/plain", nil), "<binary, 2 B>"},
		{"png", NewEntry(pngBuf.Bytes(), "image/png", nil), "[3×2 image]"},
		{"broken image", NewEntry(make([]byte, 2048), "image/png", nil), "[image, 2.0 KiB]"},
		{"other", NewEntry([]byte{1, 2, 3}, "application/octet-stream", nil), "<binary, 3 B>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.entry))
		})
	}
}

func TestDescribe_TruncatesLongText(t *testing.T) {
	got := Describe(NewEntry([]byte(strings.Repeat("é", 200)), "text/plain", nil))
	assert.Equal(t, strings.Repeat("é", previewRunes)+"…", got)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "1023 B", FormatSize(1023))
	assert.Equal(t, "1.5 KiB", FormatSize(1536))
	assert.Equal(t, "2.0 MiB", FormatSize(2*1024*1024))
}
