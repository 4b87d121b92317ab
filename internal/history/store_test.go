package history

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) Entry { return NewEntry([]byte(s), "text/plain", nil) }

func TestStore_AddDeduplicatesAgainstHead(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Add(text("X")))
	assert.False(t, s.Add(text("X")), "identical head must be ignored")
	assert.Equal(t, 1, s.Count())

	assert.True(t, s.Add(NewEntry([]byte("X"), "text/html", nil)))
	assert.Equal(t, 2, s.Count())

	head, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, "text/html", head.MIME)
}

func TestStore_DedupOnlyAgainstImmediatePredecessor(t *testing.T) {
	s := NewStore()
	s.Add(text("a"))
	s.Add(text("b"))
	s.Add(text("a"))

	require.Equal(t, 3, s.Count())
	for i, want := range []string{"a", "b", "a"} {
		e, err := s.At(i)
		require.NoError(t, err)
		assert.Equal(t, want, string(e.Data), "index %d", i)
	}
}

func TestStore_MetadataIgnoredForDedup(t *testing.T) {
	s := NewStore()
	s.Add(NewEntry([]byte("a"), "text/plain", map[string]string{"source": "one"}))
	assert.False(t, s.Add(NewEntry([]byte("a"), "text/plain", map[string]string{"source": "two"})))

	e, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, "one", e.Metadata["source"])
}

func TestStore_CountMatchesAddsMinusDuplicates(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	s := NewStore()
	var head *Entry
	want := 0
	for range 500 {
		e := NewEntry([]byte(fmt.Sprint(r.IntN(3))), []string{"text/plain", "text/html"}[r.IntN(2)], nil)
		if head == nil || !head.Same(e) {
			want++
		}
		s.Add(e)
		head = &e
	}
	assert.Equal(t, want, s.Count())
}

func TestStore_AtReturnsMostRecent(t *testing.T) {
	s := NewStore()
	for _, v := range []string{"one", "two", "three"} {
		s.Add(text(v))
		e, err := s.At(0)
		require.NoError(t, err)
		assert.Equal(t, v, string(e.Data))
	}
}

func TestStore_Remove(t *testing.T) {
	tests := []struct {
		name  string
		index int
		ok    bool
		left  []string
	}{
		{"head", 0, true, []string{"b", "a"}},
		{"middle", 1, true, []string{"c", "a"}},
		{"tail", 2, true, []string{"c", "b"}},
		{"negative", -1, false, []string{"c", "b", "a"}},
		{"past end", 3, false, []string{"c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.Add(text("a"))
			s.Add(text("b"))
			s.Add(text("c"))

			assert.Equal(t, tt.ok, s.Remove(tt.index))
			var got []string
			for _, e := range s.Entries() {
				got = append(got, string(e.Data))
			}
			assert.Equal(t, tt.left, got)
		})
	}
}

func TestStore_AtOutOfRange(t *testing.T) {
	s := NewStore()
	_, err := s.At(0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	s.Add(text("a"))
	_, err = s.At(1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.At(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestStore_ReturnedEntriesAreCopies(t *testing.T) {
	s := NewStore()
	s.Add(NewEntry([]byte("abc"), "text/plain", map[string]string{"k": "v"}))

	e, err := s.At(0)
	require.NoError(t, err)
	e.Data[0] = 'z'
	e.Metadata["k"] = "changed"

	again, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Data))
	assert.Equal(t, "v", again.Metadata["k"])
}

func TestStore_UnboundedByDefault(t *testing.T) {
	s := NewStore()
	for i := range 1000 {
		s.Add(text(fmt.Sprint(i)))
	}
	assert.Equal(t, 0, s.Limit())
	assert.Equal(t, 1000, s.Count())
}

func TestStore_LimitDropsOldest(t *testing.T) {
	s := NewStore()
	s.SetLimit(2)
	s.Add(text("a"))
	s.Add(text("b"))
	s.Add(text("c"))

	require.Equal(t, 2, s.Count())
	e, _ := s.At(1)
	assert.Equal(t, "b", string(e.Data))

	s.SetLimit(0)
	s.Add(text("d"))
	assert.Equal(t, 3, s.Count())

	assert.Equal(t, 2, s.SetLimit(1))
	e, _ = s.At(0)
	assert.Equal(t, "d", string(e.Data))
}
