package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsText(t *testing.T) {
	assert.True(t, isText("text/plain"))
	assert.True(t, isText("text/html"))
	assert.False(t, isText("image/png"))
	assert.False(t, isText("application/json"))
}

func TestNotifyCoalesces(t *testing.T) {
	ch := make(chan struct{}, 1)
	notify(ch)
	notify(ch)
	assert.Len(t, ch, 1)
}

func TestHeadless(t *testing.T) {
	b := newHeadless()
	defer b.Close()

	items, err := b.Read()
	assert.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, b.Write([]Item{{MIME: MIMEText, Data: []byte("x")}}))
	select {
	case <-b.Watch():
		t.Fatal("headless backend never signals")
	default:
	}
}
