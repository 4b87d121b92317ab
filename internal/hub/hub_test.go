package hub

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/cliphist/internal/history"
)

type recorder struct {
	id     string
	mu     sync.Mutex
	events []Event
}

func (r *recorder) ID() string { return r.id }

func (r *recorder) Send(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

type fakeActivator struct {
	got []history.Entry
	err error
}

func (f *fakeActivator) Activate(e history.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, e)
	return nil
}

func entry(s string) history.Entry { return history.NewEntry([]byte(s), "text/plain", nil) }

func TestHub_AddNotifiesWatchers(t *testing.T) {
	h := New(history.NewStore())
	r := &recorder{id: "r"}
	h.Register(r)

	assert.True(t, h.Add(entry("a"), "test"))
	assert.False(t, h.Add(entry("a"), "test"))
	assert.True(t, h.Add(entry("b"), "test"))

	assert.Equal(t, []Kind{KindAdded, KindAdded}, r.kinds())
	assert.Equal(t, 2, r.events[1].Count)
	assert.Equal(t, "test", r.events[1].Origin)
	assert.Equal(t, 2, h.Count())
}

func TestHub_UnregisteredWatcherIsSilent(t *testing.T) {
	h := New(history.NewStore())
	r := &recorder{id: "r"}
	h.Register(r)
	h.Register(&recorder{id: "a"})
	assert.Equal(t, []string{"a", "r"}, h.Watchers())
	h.Unregister(r)
	assert.Equal(t, []string{"a"}, h.Watchers())

	h.Add(entry("a"), "test")
	assert.Empty(t, r.kinds())
}

func TestHub_Remove(t *testing.T) {
	h := New(history.NewStore())
	r := &recorder{id: "r"}
	h.Add(entry("a"), "test")
	h.Add(entry("b"), "test")
	h.Register(r)

	e, ok := h.Remove(1, "test")
	require.True(t, ok)
	assert.Equal(t, "a", string(e.Data))

	_, ok = h.Remove(5, "test")
	assert.False(t, ok)
	_, ok = h.Remove(-1, "test")
	assert.False(t, ok)

	assert.Equal(t, []Kind{KindRemoved}, r.kinds())
	assert.Equal(t, 1, h.Count())
}

func TestHub_LimitTrims(t *testing.T) {
	h := New(history.NewStore())
	r := &recorder{id: "r"}
	h.Register(r)

	h.Add(entry("a"), "test")
	h.Add(entry("b"), "test")
	h.Add(entry("c"), "test")
	h.SetLimit(2)
	h.Add(entry("d"), "test")

	assert.Equal(t, 2, h.Count())
	assert.Equal(t, 2, h.Limit())
	assert.Equal(t, []Kind{KindAdded, KindAdded, KindAdded, KindTrimmed, KindAdded, KindTrimmed}, r.kinds())

	entries := h.Entries()
	assert.Equal(t, "d", string(entries[0].Data))
	assert.Equal(t, "c", string(entries[1].Data))
}

func TestHub_Activate(t *testing.T) {
	h := New(history.NewStore())
	h.Add(entry("a"), "test")
	h.Add(entry("b"), "test")

	_, err := h.Activate(0, "test")
	assert.ErrorIs(t, err, ErrNoActivator)

	a := &fakeActivator{}
	h.SetActivator(a)
	r := &recorder{id: "r"}
	h.Register(r)

	e, err := h.Activate(1, "test")
	require.NoError(t, err)
	assert.Equal(t, "a", string(e.Data))
	require.Len(t, a.got, 1)
	assert.Equal(t, "a", string(a.got[0].Data))
	assert.Equal(t, []Kind{KindActivated}, r.kinds())
	assert.Equal(t, 2, h.Count(), "activation does not change the history")

	_, err = h.Activate(9, "test")
	assert.ErrorIs(t, err, history.ErrOutOfRange)
}

func TestHub_ActivateFailure(t *testing.T) {
	h := New(history.NewStore())
	h.Add(entry("a"), "test")
	boom := errors.New("boom")
	h.SetActivator(&fakeActivator{err: boom})

	_, err := h.Activate(0, "test")
	assert.ErrorIs(t, err, boom)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	h := New(history.NewStore())
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				h.Add(history.NewEntry([]byte{byte(i), byte(j)}, "application/octet-stream", nil), "test")
				_ = h.Entries()
				h.Remove(0, "test")
			}
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, h.Count(), 0)
}
