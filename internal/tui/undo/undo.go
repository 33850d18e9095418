// Package undo is the session browser behind `batch-mover undo`: a list of
// journaled apply runs on the left, the selected run's details on the right,
// and a confirm step before the run is reverted.
package undo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Digital-Shane/batch-mover/internal/journal"
	"github.com/Digital-Shane/batch-mover/internal/tui/components"
	"github.com/Digital-Shane/batch-mover/internal/tui/theme"

	"github.com/Digital-Shane/treeview"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// UndoFunc reverts a session and returns one result per entry.
type UndoFunc func(*journal.Session) []journal.UndoResult

// CompleteMsg is emitted when an undo finishes.
type CompleteMsg struct {
	Session   string
	Succeeded int
	Failed    int
	Errors    []error
}

// Model is the undo session browser.
type Model struct {
	*treeview.TuiTreeModel[journal.SessionFile]

	undo  UndoFunc
	theme theme.Theme
	now   func() time.Time

	confirming bool
	running    bool
	done       bool
	result     CompleteMsg

	width      int
	height     int
	splitRatio float64

	details        *viewport.Model
	detailsFocused bool
}

// Option configures a Model during construction.
type Option func(*Model)

// WithTheme overrides the default theme.
func WithTheme(th theme.Theme) Option {
	return func(m *Model) {
		m.theme = th
	}
}

// WithClock overrides the clock used for relative times.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

// BuildTree turns sessions into a flat tree styled by
// components.SessionProvider, focused on the newest session.
func BuildTree(sessions []journal.SessionFile, th theme.Theme, now func() time.Time) *treeview.Tree[journal.SessionFile] {
	nodes := make([]*treeview.Node[journal.SessionFile], 0, len(sessions))
	for _, s := range sessions {
		if s.Session == nil {
			continue
		}
		id := s.Session.Metadata.SessionID
		if id == "" {
			id = s.Path
		}
		nodes = append(nodes, treeview.NewNode(id, components.SessionLabel(s.Session, now()), s))
	}
	tree := treeview.NewTree(nodes, treeview.WithProvider(components.SessionProvider(th, now)))
	if len(nodes) > 0 {
		_, _ = tree.SetFocusedID(context.Background(), nodes[0].ID())
	}
	return tree
}

// New creates the browser over tree. undo runs when the user confirms.
func New(tree *treeview.Tree[journal.SessionFile], undo UndoFunc, opts ...Option) *Model {
	m := &Model{
		undo:       undo,
		now:        time.Now,
		width:      80,
		height:     24,
		splitRatio: 0.5,
	}
	for _, opt := range append([]Option{WithTheme(theme.Default())}, opts...) {
		opt(m)
	}

	keyMap := treeview.DefaultKeyMap()
	keyMap.SearchStart = []string{}
	keyMap.Reset = []string{}

	treeWidth := m.treeWidth()
	m.TuiTreeModel = treeview.NewTuiTreeModel(tree,
		treeview.WithTuiWidth[journal.SessionFile](treeWidth),
		treeview.WithTuiHeight[journal.SessionFile](m.height-4),
		treeview.WithTuiAllowResize[journal.SessionFile](true),
		treeview.WithTuiDisableNavBar[journal.SessionFile](true),
		treeview.WithTuiKeyMap[journal.SessionFile](keyMap),
	)
	m.details = components.NewViewport(m.width-treeWidth-6, m.height-8, m.theme)
	return m
}

func (m *Model) treeWidth() int {
	return int(float64(m.width)*m.splitRatio) - 2
}

// Done reports whether an undo has completed.
func (m *Model) Done() bool { return m.done }

// Result returns the completed undo counts.
func (m *Model) Result() CompleteMsg { return m.result }

// Confirming reports whether the confirm dialog is open.
func (m *Model) Confirming() bool { return m.confirming }

func (m *Model) focused() (journal.SessionFile, bool) {
	node := m.TuiTreeModel.Tree.GetFocusedNode()
	if node == nil || node.Data() == nil || node.Data().Session == nil {
		return journal.SessionFile{}, false
	}
	return *node.Data(), true
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		treeWidth := m.treeWidth()
		treeModel, cmd := m.TuiTreeModel.Update(tea.WindowSizeMsg{Width: treeWidth, Height: m.height - 4})
		m.TuiTreeModel = treeModel.(*treeview.TuiTreeModel[journal.SessionFile])
		m.details.Width = m.width - treeWidth - 6
		m.details.Height = m.height - 8
		return m, cmd

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "esc", "ctrl+c", "q":
			if m.confirming && key != "ctrl+c" {
				m.confirming = false
				return m, nil
			}
			return m, tea.Quit

		case "tab":
			m.detailsFocused = !m.detailsFocused
			return m, nil

		case "enter", "y":
			if m.running || m.done {
				return m, nil
			}
			if !m.confirming {
				if key == "enter" {
					_, m.confirming = m.focused()
				}
				return m, nil
			}
			sf, ok := m.focused()
			if !ok {
				m.confirming = false
				return m, nil
			}
			m.confirming = false
			m.running = true
			return m, m.performUndo(sf)

		case "n", "N":
			m.confirming = false
			return m, nil
		}
		if m.detailsFocused && components.ScrollKey(m.details, key) {
			return m, nil
		}

	case CompleteMsg:
		m.running = false
		m.done = true
		m.result = msg
		return m, nil
	}

	if !m.confirming && !m.running && !m.detailsFocused {
		treeModel, cmd := m.TuiTreeModel.Update(msg)
		m.TuiTreeModel = treeModel.(*treeview.TuiTreeModel[journal.SessionFile])
		return m, cmd
	}
	return m, nil
}

func (m *Model) performUndo(sf journal.SessionFile) tea.Cmd {
	undo := m.undo
	return func() tea.Msg {
		var results []journal.UndoResult
		if undo != nil {
			results = undo(sf.Session)
		}
		ok, failed, errs := journal.CountUndo(results)
		return CompleteMsg{
			Session:   sf.Session.Metadata.SessionID,
			Succeeded: ok,
			Failed:    failed,
			Errors:    errs,
		}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderStyle().Width(m.width).Render("Batch Mover Undo"))
	b.WriteByte('\n')

	switch {
	case m.done:
		b.WriteString(m.renderResult())
	case m.running:
		b.WriteString(m.theme.StatusBarStyle().Width(m.width).Render("Undoing session..."))
		b.WriteByte('\n')
	case m.confirming:
		if sf, ok := m.focused(); ok {
			b.WriteString(m.renderConfirmation(sf))
		}
	default:
		b.WriteString(m.renderMain())
	}
	return b.String()
}

func (m *Model) renderResult() string {
	text := fmt.Sprintf("Undo completed: %d actions reversed", m.result.Succeeded)
	if m.result.Failed > 0 {
		text = fmt.Sprintf("Undo completed: %d reversed, %d failed", m.result.Succeeded, m.result.Failed)
	}
	lines := []string{m.theme.StatusBarStyle().Width(m.width).Render(text)}
	for _, err := range m.result.Errors {
		lines = append(lines, m.theme.ErrorStyle().Render(m.theme.Icon("error")+" "+truncate(err.Error(), m.width-4)))
	}
	lines = append(lines, m.theme.MutedStyle().Width(m.width).Align(lipgloss.Center).Render("Press 'esc' to exit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderMain() string {
	leftWidth := int(float64(m.width) * m.splitRatio)
	rightWidth := m.width - leftWidth

	content := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSessionList(leftWidth, m.height-3),
		m.renderDetails(rightWidth, m.height-3),
	)

	focus := "Tab: Details Focus | "
	if m.detailsFocused {
		focus = "Tab: List Focus | "
	}
	help := lipgloss.NewStyle().
		Italic(true).
		Width(m.width).
		Align(lipgloss.Center).
		Foreground(m.theme.Colors().Muted).
		Render(focus + "↑↓ Navigate | Enter: Undo | Esc: Quit")
	return content + "\n" + help
}

func (m *Model) panel(width, height int, border lipgloss.Color) lipgloss.Style {
	style := m.theme.PanelStyle().BorderForeground(border)
	if w := width - style.GetHorizontalFrameSize(); w > 0 {
		style = style.Width(w)
	}
	if h := height - style.GetVerticalFrameSize(); h > 0 {
		style = style.Height(h)
	}
	return style.Padding(0, 1)
}

func (m *Model) panelTitle(text string, width int, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(color).
		Width(max(width-4, 0)).
		Align(lipgloss.Center).
		Render(text)
}

func (m *Model) renderSessionList(width, height int) string {
	colors := m.theme.Colors()
	content := m.panelTitle("Sessions", width, colors.Primary) + "\n" + m.TuiTreeModel.View()
	return m.panel(width, height, colors.Primary).Render(content)
}

func (m *Model) renderDetails(width, height int) string {
	if sf, ok := m.focused(); ok {
		m.details.SetContent(m.formatDetails(sf, m.details.Width))
	} else {
		m.details.SetContent(m.theme.MutedStyle().Italic(true).Render("Select a session to view details"))
	}

	colors := m.theme.Colors()
	title := "Session Details"
	if m.details.TotalLineCount() > m.details.Height {
		if m.detailsFocused {
			title += " [↑↓ scroll]"
		} else {
			title += " [Tab to scroll]"
		}
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.panelTitle(title, width, colors.Secondary),
		"",
		m.details.View(),
	)
	return m.panel(width, height, colors.Secondary).Render(content)
}

func (m *Model) formatDetails(sf journal.SessionFile, width int) string {
	meta := sf.Session.Metadata
	colors := m.theme.Colors()
	label := lipgloss.NewStyle().Bold(true).Foreground(colors.Accent)
	value := lipgloss.NewStyle().Foreground(colors.Primary)
	indent := lipgloss.NewStyle().MarginLeft(2)

	var b strings.Builder
	field := func(name, v string) {
		b.WriteString(label.Render(name + ": "))
		b.WriteString(value.Render(v))
		b.WriteByte('\n')
	}

	field("Command", strings.Join(meta.CommandArgs, " "))
	field("Time", journal.FormatRelativeTime(meta.Timestamp, m.now()))
	field("Date", meta.Timestamp.Format("2006-01-02 15:04:05"))
	field("Directory", truncateLeft(meta.WorkingDir, width-12))
	b.WriteByte('\n')

	b.WriteString(label.Render("Actions:"))
	b.WriteByte('\n')
	stats := fmt.Sprintf("Total: %d\nSuccessful: %d\nFailed: %d", meta.TotalOps, meta.SuccessfulOps, meta.FailedOps)
	b.WriteString(indent.Render(value.Render(stats)))
	b.WriteString("\n\n")

	if n := len(sf.Session.Entries); n > 0 {
		b.WriteString(label.Render("Recent Actions:"))
		b.WriteByte('\n')
		for _, e := range sf.Session.Entries[max(n-5, 0):] {
			line := m.entryIcon(e) + " " + truncate(describeEntry(e), width-6)
			b.WriteString(indent.Render(line))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString(label.Render("Session ID: "))
	b.WriteString(m.theme.MutedStyle().Italic(true).Render(meta.SessionID))
	return b.String()
}

func (m *Model) entryIcon(e journal.Entry) string {
	switch {
	case !e.Success:
		return m.theme.Icon("error")
	case e.Type == journal.EntryCreateDir:
		return m.theme.Icon("folder")
	case e.Type == journal.EntryMove:
		return m.theme.Icon("success")
	}
	return m.theme.Icon("unknown")
}

func describeEntry(e journal.Entry) string {
	var text string
	switch e.Type {
	case journal.EntryMove:
		text = filepath.Base(e.SourcePath) + " → " + filepath.Join(filepath.Base(filepath.Dir(e.DestPath)), filepath.Base(e.DestPath))
	case journal.EntryCreateDir:
		text = "Create: " + filepath.Base(e.DestPath) + "/"
		if !e.Created {
			text += " (existed)"
		}
	default:
		text = string(e.Type)
	}
	if !e.Success && e.Error != "" {
		text += " (failed)"
	}
	return text
}

func (m *Model) renderConfirmation(sf journal.SessionFile) string {
	meta := sf.Session.Metadata
	colors := m.theme.Colors()
	box := m.theme.PanelStyle().
		BorderForeground(colors.Accent).
		Padding(1, 2).
		Width(60).
		Align(lipgloss.Center)

	text := fmt.Sprintf(
		"Confirm Undo\n\n"+
			"Session: %s\n"+
			"Time: %s\n"+
			"Actions: %d (Success: %d, Failed: %d)\n\n"+
			"Moved files go back to their original paths and\n"+
			"folders created by the run are removed when empty.\n\n"+
			"Press ENTER to confirm or 'n' to cancel",
		components.SessionLabel(sf.Session, m.now()),
		meta.Timestamp.Format("2006-01-02 15:04:05"),
		meta.TotalOps, meta.SuccessfulOps, meta.FailedOps)

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(box.Render(text))
}

func truncate(s string, width int) string {
	if width <= 3 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// truncateLeft keeps the tail of a path, which is the part that differs.
func truncateLeft(s string, width int) string {
	if width <= 3 || runewidth.StringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for i := range r {
		if runewidth.StringWidth(string(r[i:])) <= width-3 {
			return "..." + string(r[i:])
		}
	}
	return s
}
