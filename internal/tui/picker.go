// Package tui provides an interactive terminal picker over the clipboard
// history served by a running daemon.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"google.golang.org/grpc"

	"go.klb.dev/cliphist/internal/api"
	"go.klb.dev/cliphist/internal/history"
)

// Client is the subset of api.Client the picker needs.
type Client interface {
	List(ctx context.Context, in *api.ListRequest, opts ...grpc.CallOption) (*api.ListResponse, error)
	Activate(ctx context.Context, in *api.ActivateRequest, opts ...grpc.CallOption) (*api.ActivateResponse, error)
	Remove(ctx context.Context, in *api.RemoveRequest, opts ...grpc.CallOption) (*api.RemoveResponse, error)
}

// KeyMap holds the picker's own bindings. Navigation and filtering are
// handled by the list.
type KeyMap struct {
	Activate key.Binding
	Delete   key.Binding
	Refresh  key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Activate: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "activate"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

var (
	appStyle   = lipgloss.NewStyle().Margin(1, 2)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

type item struct {
	entry api.Entry
}

func (i item) Title() string { return i.entry.Description }

func (i item) Description() string {
	parts := []string{fmt.Sprintf("#%d", i.entry.Index), i.entry.MIME, fmt.Sprintf("%d bytes", i.entry.Size)}
	if !i.entry.Time.IsZero() {
		parts = append(parts, i.entry.Time.Local().Format(time.DateTime))
	}
	if src := i.entry.Metadata[history.MetaSource]; src != "" {
		parts = append(parts, src)
	}
	return strings.Join(parts, "  ")
}

func (i item) FilterValue() string { return i.entry.Description }

type loadedMsg struct {
	entries []api.Entry
	err     error
}

type activatedMsg struct {
	entry api.Entry
	err   error
}

type removedMsg struct {
	index   int
	removed bool
	err     error
}

// Model is the bubbletea model for the picker.
type Model struct {
	ctx    context.Context
	client Client
	keys   KeyMap
	list   list.Model

	chosen *api.Entry
	err    error
}

// New returns a picker backed by client.
func New(ctx context.Context, client Client) Model {
	keys := DefaultKeyMap()

	l := list.New(nil, list.NewDefaultDelegate(), 80, 24)
	l.Title = "Clipboard history"
	l.Styles.Title = titleStyle
	l.SetStatusBarItemName("entry", "entries")
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Activate, keys.Delete}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Activate, keys.Delete, keys.Refresh}
	}

	return Model{ctx: ctx, client: client, keys: keys, list: l}
}

// Chosen returns the entry activated before the picker quit, if any.
func (m Model) Chosen() *api.Entry { return m.chosen }

// Err returns the last error reported by the daemon.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.load
}

func (m Model) load() tea.Msg {
	resp, err := m.client.List(m.ctx, &api.ListRequest{})
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{entries: resp.Entries}
}

func (m Model) activate(i int) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Activate(m.ctx, &api.ActivateRequest{Index: i})
		if err != nil {
			return activatedMsg{err: err}
		}
		return activatedMsg{entry: resp.Entry}
	}
}

func (m Model) remove(i int) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Remove(m.ctx, &api.RemoveRequest{Index: i})
		if err != nil {
			return removedMsg{index: i, err: err}
		}
		return removedMsg{index: i, removed: resp.Removed}
	}
}

func (m Model) selected() (api.Entry, bool) {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return api.Entry{}, false
	}
	return it.entry, true
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := appStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = item{entry: e}
		}
		return m, m.list.SetItems(items)

	case activatedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.chosen = &msg.entry
		return m, tea.Quit

	case removedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		text := fmt.Sprintf("Deleted entry %d", msg.index)
		if !msg.removed {
			text = fmt.Sprintf("Entry %d was already gone", msg.index)
		}
		return m, tea.Batch(m.list.NewStatusMessage(text), m.load)

	case tea.KeyMsg:
		// Keys belong to the filter input while it is open.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Activate):
			if e, ok := m.selected(); ok {
				return m, m.activate(e.Index)
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if e, ok := m.selected(); ok {
				return m, m.remove(e.Index)
			}
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.load
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	view := m.list.View()
	if m.err != nil {
		view = lipgloss.JoinVertical(lipgloss.Left, view, errStyle.Render("error: "+m.err.Error()))
	}
	return appStyle.Render(view)
}

// Run shows the picker on the terminal and returns the activated entry, or
// nil when the user quit without choosing.
func Run(ctx context.Context, client Client, opts ...tea.ProgramOption) (*api.Entry, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(New(ctx, client), opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("run picker: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	if m.chosen == nil && m.err != nil {
		return nil, m.err
	}
	return m.chosen, nil
}
