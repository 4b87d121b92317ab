package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"go.klb.dev/cliphist/internal/api"
)

type fakeClient struct {
	entries   []api.Entry
	listErr   error
	activated []int
	removed   []int
}

func (f *fakeClient) List(context.Context, *api.ListRequest, ...grpc.CallOption) (*api.ListResponse, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &api.ListResponse{Entries: f.entries, Count: len(f.entries)}, nil
}

func (f *fakeClient) Activate(_ context.Context, in *api.ActivateRequest, _ ...grpc.CallOption) (*api.ActivateResponse, error) {
	f.activated = append(f.activated, in.Index)
	return &api.ActivateResponse{Entry: f.entries[in.Index]}, nil
}

func (f *fakeClient) Remove(_ context.Context, in *api.RemoveRequest, _ ...grpc.CallOption) (*api.RemoveResponse, error) {
	if in.Index >= len(f.entries) {
		return &api.RemoveResponse{Count: len(f.entries)}, nil
	}
	f.removed = append(f.removed, in.Index)
	f.entries = append(f.entries[:in.Index], f.entries[in.Index+1:]...)
	for i := range f.entries {
		f.entries[i].Index = i
	}
	return &api.RemoveResponse{Removed: true, Count: len(f.entries)}, nil
}

func newFake() *fakeClient {
	return &fakeClient{entries: []api.Entry{
		{Index: 0, MIME: "text/plain", Size: 6, Description: "newest"},
		{Index: 1, MIME: "text/plain", Size: 6, Description: "oldest", Metadata: map[string]string{"source": "laptop"}},
	}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func loaded(t *testing.T, c Client) Model {
	t.Helper()
	m := New(context.Background(), c)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, m.Init()())
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestPicker_ShowsEntries(t *testing.T) {
	m := loaded(t, newFake())

	view := m.View()
	assert.Contains(t, view, "newest")
	assert.Contains(t, view, "oldest")
	assert.NoError(t, m.Err())
}

func TestPicker_EnterActivatesAndQuits(t *testing.T) {
	f := newFake()
	m := loaded(t, f)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	m, cmd = update(t, m, cmd())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	require.NotNil(t, m.Chosen())
	assert.Equal(t, "oldest", m.Chosen().Description)
	assert.Equal(t, []int{1}, f.activated)
}

func TestPicker_DeleteRemovesSelected(t *testing.T) {
	f := newFake()
	m := loaded(t, f)

	m, cmd := update(t, m, runes("d"))
	require.NotNil(t, cmd)
	m, cmd = update(t, m, cmd())
	assert.NotNil(t, cmd, "status message and reload")
	assert.Equal(t, []int{0}, f.removed)

	m, _ = update(t, m, m.Init()())
	assert.NotContains(t, m.View(), "newest")
	assert.Contains(t, m.View(), "oldest")
	assert.Nil(t, m.Chosen())
}

func TestPicker_ListError(t *testing.T) {
	f := newFake()
	f.listErr = errors.New("daemon gone")
	m := loaded(t, f)

	require.Error(t, m.Err())
	assert.Contains(t, m.View(), "daemon gone")
}

func TestItem_Description(t *testing.T) {
	it := item{entry: newFake().entries[1]}
	assert.Equal(t, "#1  text/plain  6 bytes  laptop", it.Description())
	assert.Equal(t, "oldest", it.FilterValue())
}
