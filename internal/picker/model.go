package picker

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Digital-Shane/batch-mover/internal/tui/theme"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Mode selects what the picker returns.
type Mode int

const (
	// ModeFiles collects any number of files.
	ModeFiles Mode = iota
	// ModeFolder returns the directory being browsed.
	ModeFolder
)

func (m Mode) String() string {
	if m == ModeFolder {
		return "folder"
	}
	return "files"
}

// SelectedMsg reports a confirmed selection. In ModeFolder Paths holds the
// single chosen folder.
type SelectedMsg struct {
	Mode  Mode
	Paths []string
}

// CancelledMsg reports that the picker was dismissed.
type CancelledMsg struct{ Mode Mode }

type keyMap struct {
	Toggle  key.Binding
	Confirm key.Binding
	Clear   key.Binding
	Cancel  key.Binding
	Back    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Back, k.Confirm, k.Clear, k.Cancel}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func newKeyMap(mode Mode) keyMap {
	toggle := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "mark file / open dir"))
	confirm := key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "add marked"))
	if mode == ModeFolder {
		toggle = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open dir"))
		confirm = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "choose this folder"))
	}
	return keyMap{
		Toggle:  toggle,
		Confirm: confirm,
		Clear:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear marks")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Back:    key.NewBinding(key.WithKeys("h", "backspace", "left"), key.WithHelp("←", "up a dir")),
	}
}

// Model is a Bubble Tea file picker with multi-select and a folder mode. It
// can run as its own program (see Interactive) or be embedded by forwarding
// messages to Update.
type Model struct {
	mode     Mode
	fp       filepicker.Model
	keys     keyMap
	help     help.Model
	theme    theme.Theme
	marked   []string
	width    int
	height   int
	quit     bool
	done     bool
	canceled bool
	result   []string
}

// Option configures a Model.
type Option func(*Model)

// WithTheme overrides the default theme.
func WithTheme(th theme.Theme) Option {
	return func(m *Model) { m.theme = th }
}

// WithAllowedTypes limits selectable files to the given extensions, e.g.
// ".png". It has no effect in ModeFolder.
func WithAllowedTypes(exts ...string) Option {
	return func(m *Model) { m.fp.AllowedTypes = exts }
}

// WithShowHidden lists dot files.
func WithShowHidden(show bool) Option {
	return func(m *Model) { m.fp.ShowHidden = show }
}

// WithQuitOnDone makes the model quit its program after a selection or
// cancellation.
func WithQuitOnDone() Option {
	return func(m *Model) { m.quit = true }
}

// New returns a picker browsing start, or the working directory when start
// is empty or not a directory.
func New(mode Mode, start string, opts ...Option) *Model {
	fp := filepicker.New()
	fp.CurrentDirectory = startDir(start)
	fp.ShowHidden = false
	fp.ShowSize = true
	fp.AutoHeight = false
	fp.Height = 12
	fp.KeyMap.Back = key.NewBinding(key.WithKeys("h", "backspace", "left"), key.WithHelp("h", "back"))
	switch mode {
	case ModeFolder:
		fp.DirAllowed = false
		fp.FileAllowed = false
	default:
		fp.DirAllowed = false
		fp.FileAllowed = true
	}

	m := &Model{
		mode:   mode,
		fp:     fp,
		keys:   newKeyMap(mode),
		help:   help.New(),
		width:  80,
		height: 20,
	}
	for _, opt := range append([]Option{WithTheme(theme.Default())}, opts...) {
		opt(m)
	}
	return m
}

func startDir(start string) string {
	if start != "" {
		if info, err := os.Stat(start); err == nil && info.IsDir() {
			return start
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// Mode reports what the picker returns.
func (m *Model) Mode() Mode { return m.mode }

// Marked returns the files marked so far, in marking order.
func (m *Model) Marked() []string { return slices.Clone(m.marked) }

// Dir returns the directory being browsed.
func (m *Model) Dir() string { return m.fp.CurrentDirectory }

// Done reports whether the picker has produced a result or was cancelled.
func (m *Model) Done() bool { return m.done }

// Cancelled reports whether the picker was dismissed.
func (m *Model) Cancelled() bool { return m.canceled }

// Result returns the confirmed selection.
func (m *Model) Result() []string { return slices.Clone(m.result) }

func (m *Model) Init() tea.Cmd {
	return m.fp.Init()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.fp.Height = max(3, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel), msg.Type == tea.KeyCtrlC:
			return m, m.finish(nil, true)
		case key.Matches(msg, m.keys.Confirm):
			return m, m.confirm()
		case key.Matches(msg, m.keys.Clear):
			m.marked = nil
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.fp, cmd = m.fp.Update(msg)
	if ok, path := m.fp.DidSelectFile(msg); ok && m.mode == ModeFiles {
		m.toggle(path)
	}
	return m, cmd
}

// toggle marks path, or unmarks it when already marked.
func (m *Model) toggle(path string) {
	if i := slices.Index(m.marked, path); i >= 0 {
		m.marked = slices.Delete(m.marked, i, i+1)
		return
	}
	m.marked = append(m.marked, path)
}

func (m *Model) confirm() tea.Cmd {
	if m.mode == ModeFolder {
		return m.finish([]string{m.fp.CurrentDirectory}, false)
	}
	if len(m.marked) == 0 {
		return nil
	}
	return m.finish(slices.Clone(m.marked), false)
}

func (m *Model) finish(paths []string, cancelled bool) tea.Cmd {
	m.done = true
	m.canceled = cancelled
	m.result = paths

	mode := m.mode
	emit := func() tea.Msg {
		if cancelled {
			return CancelledMsg{Mode: mode}
		}
		return SelectedMsg{Mode: mode, Paths: paths}
	}
	if m.quit {
		return tea.Sequence(emit, tea.Quit)
	}
	return emit
}

func (m *Model) View() string {
	colors := m.theme.Colors()
	title := "Select files"
	if m.mode == ModeFolder {
		title = "Select destination folder"
	}

	var b strings.Builder
	b.WriteString(m.theme.HeaderStyle().Width(m.width).Render(title))
	b.WriteByte('\n')
	b.WriteString(lipgloss.NewStyle().Foreground(colors.Secondary).Render(m.fp.CurrentDirectory))
	b.WriteString("\n\n")
	b.WriteString(m.fp.View())
	b.WriteByte('\n')

	if m.mode == ModeFiles {
		b.WriteString(m.markedView())
		b.WriteByte('\n')
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) markedView() string {
	muted := m.theme.MutedStyle()
	if len(m.marked) == 0 {
		return muted.Render("No files marked")
	}
	names := make([]string, 0, len(m.marked))
	for _, p := range m.marked {
		names = append(names, filepath.Base(p))
	}
	line := fmt.Sprintf("%s %d marked: %s", m.theme.Icon("success"), len(m.marked), strings.Join(names, ", "))
	return lipgloss.NewStyle().Foreground(m.theme.Colors().Primary).MaxWidth(m.width).Render(line)
}
