// Package tui is the batch editor: a list of operations, each a group of
// files with new names and a destination folder, applied in one go.
package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Digital-Shane/batch-mover/internal/apply"
	"github.com/Digital-Shane/batch-mover/internal/batch"
	"github.com/Digital-Shane/batch-mover/internal/config"
	"github.com/Digital-Shane/batch-mover/internal/fsys"
	"github.com/Digital-Shane/batch-mover/internal/journal"
	"github.com/Digital-Shane/batch-mover/internal/logger"
	"github.com/Digital-Shane/batch-mover/internal/picker"
	"github.com/Digital-Shane/batch-mover/internal/preview"
	"github.com/Digital-Shane/batch-mover/internal/tui/components"
	"github.com/Digital-Shane/batch-mover/internal/tui/theme"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

type mode int

const (
	modeBrowse mode = iota
	modeRename
	modeSubfolder
	modePick
	modeApplying
	modeResult
)

// ConfigReloadedMsg delivers a configuration reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

type filesPickedMsg struct {
	opID  string
	paths []string
	err   error
}

type folderPickedMsg struct {
	opID string
	path string
	err  error
}

type previewMsg struct {
	path   string
	result preview.Result
}

type applyProgressMsg struct{ progress apply.Progress }

type applyDoneMsg struct{ report apply.Report }

// row is one selectable line: an operation header when path is empty,
// otherwise a file of that operation.
type row struct {
	opID string
	path string
}

// Model is the batch editor.
type Model struct {
	set       *batch.Set
	cfg       *config.Config
	fs        fsys.Service
	ownFS     bool
	journal   *journal.Journal
	pickerSvc picker.Service

	previewer   *preview.Previewer
	previewOpts []preview.Option
	previews    map[string]preview.Result

	theme theme.Theme
	keys  keyMap
	help  help.Model

	command     string
	commandArgs []string

	width  int
	height int
	mode   mode
	status string

	cursor row
	body   viewport.Model

	input    textinput.Model
	editing  row
	picker   *picker.Model
	pickOpID string

	engine   *apply.Engine
	applyCtx context.Context
	cancel   context.CancelFunc
	bar      progress.Model
	spin     spinner.Model
	progress apply.Progress
	report   *apply.Report
	warnings bytes.Buffer
	results  *viewport.Model
}

// Option configures a Model during construction.
type Option func(*Model)

// WithTheme overrides the default theme.
func WithTheme(th theme.Theme) Option {
	return func(m *Model) { m.theme = th }
}

// WithSet edits an existing set instead of a fresh one.
func WithSet(set *batch.Set) Option {
	return func(m *Model) { m.set = set }
}

// WithConfig supplies the loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(m *Model) { m.cfg = cfg }
}

// WithFS overrides the filesystem used by apply.
func WithFS(svc fsys.Service) Option {
	return func(m *Model) { m.fs = svc }
}

// WithJournal records apply runs for undo.
func WithJournal(j *journal.Journal) Option {
	return func(m *Model) { m.journal = j }
}

// WithPicker replaces the built-in file picker with svc. The service runs
// inside a tea.Cmd, so it must not start a program of its own.
func WithPicker(svc picker.Service) Option {
	return func(m *Model) { m.pickerSvc = svc }
}

// WithPreviewOptions adds renderer options on top of the configured ones.
func WithPreviewOptions(opts ...preview.Option) Option {
	return func(m *Model) { m.previewOpts = append(m.previewOpts, opts...) }
}

// WithCommand names the invocation recorded in the journal.
func WithCommand(command string, args []string) Option {
	return func(m *Model) {
		m.command = command
		m.commandArgs = args
	}
}

// New returns an editor. An empty set gets one empty operation so there is
// always somewhere to add files.
func New(opts ...Option) *Model {
	m := &Model{
		width:    80,
		height:   24,
		keys:     defaultKeyMap(),
		help:     help.New(),
		previews: map[string]preview.Result{},
		command:  "tui",
	}
	for _, opt := range append([]Option{WithTheme(theme.Default())}, opts...) {
		opt(m)
	}
	if m.set == nil {
		m.set = batch.NewSet()
	}
	if m.cfg == nil {
		m.cfg = config.DefaultConfig()
	}
	if m.fs == nil {
		m.fs = fsys.NewOS(fsys.WithOverwrite(m.cfg.OverwriteExisting))
		m.ownFS = true
	}
	if m.journal == nil {
		m.journal = journal.New("", false)
	}
	m.previewer = m.newPreviewer()

	runewidth.DefaultCondition.EastAsianWidth = false
	runewidth.DefaultCondition.StrictEmojiNeutral = true

	gradient := m.theme.ProgressGradient()
	m.bar = progress.New(progress.WithGradient(gradient[0], gradient[1]))
	m.bar.Width = 40
	m.spin = spinner.New(spinner.WithSpinner(spinner.Dot))

	m.input = textinput.New()
	m.input.CharLimit = 255

	m.body = viewport.New(m.width, m.height-3)
	m.results = components.NewViewport(m.width-4, m.height-6, m.theme)

	if m.set.Len() == 0 {
		m.set.Add()
	}
	if ops := m.set.Snapshot(); len(ops) > 0 {
		m.cursor = row{opID: ops[0].ID}
	}
	return m
}

func (m *Model) newPreviewer() *preview.Previewer {
	opts := append(m.cfg.PreviewOptions(), m.previewOpts...)
	return preview.New(opts...)
}

// Set returns the operation set being edited.
func (m *Model) Set() *batch.Set { return m.set }

// Report returns the last apply report, or nil before the first run.
func (m *Model) Report() *apply.Report { return m.report }

// Status returns the current status line.
func (m *Model) Status() string { return m.status }

func (m *Model) Init() tea.Cmd {
	return tea.WindowSize()
}

func (m *Model) rows() []row {
	var out []row
	for _, op := range m.set.Snapshot() {
		out = append(out, row{opID: op.ID})
		if !op.Expanded {
			continue
		}
		for _, fd := range op.Files {
			out = append(out, row{opID: op.ID, path: fd.OriginalPath})
		}
	}
	return out
}

func (m *Model) cursorIndex(rows []row) int {
	for i, r := range rows {
		if r == m.cursor {
			return i
		}
	}
	for i, r := range rows {
		if r.opID == m.cursor.opID && r.path == "" {
			return i
		}
	}
	return 0
}

func (m *Model) moveCursor(delta int) {
	rows := m.rows()
	if len(rows) == 0 {
		m.cursor = row{}
		return
	}
	i := min(max(m.cursorIndex(rows)+delta, 0), len(rows)-1)
	m.cursor = rows[i]
}

// settleCursor keeps the cursor on a row that still exists, preferring the
// position it had before the set changed.
func (m *Model) settleCursor(prev int) {
	rows := m.rows()
	if len(rows) == 0 {
		m.cursor = row{}
		return
	}
	for _, r := range rows {
		if r == m.cursor {
			return
		}
	}
	m.cursor = rows[min(max(prev, 0), len(rows)-1)]
}

func (m *Model) focusedOp() (batch.Operation, bool) {
	return m.set.Get(m.cursor.opID)
}

// ensureOp returns the focused operation, creating one when the set is
// empty.
func (m *Model) ensureOp() batch.Operation {
	if op, ok := m.focusedOp(); ok {
		return op
	}
	op := m.set.Add()
	m.cursor = row{opID: op.ID}
	return op
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.bar.Width = max(10, msg.Width-40)
		m.body.Width = msg.Width
		m.results.Width = max(10, msg.Width-4)
		m.results.Height = max(3, msg.Height-6)
		if m.picker != nil {
			m.picker.Update(msg)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ConfigReloadedMsg:
		m.reloadConfig(msg)
		return m, nil

	case filesPickedMsg:
		m.addFiles(msg.opID, msg.paths, msg.err)
		return m, nil

	case folderPickedMsg:
		m.setDestination(msg.opID, msg.path, msg.err)
		return m, nil

	case picker.SelectedMsg:
		opID := m.pickOpID
		m.closePicker()
		if msg.Mode == picker.ModeFolder {
			if len(msg.Paths) > 0 {
				m.setDestination(opID, msg.Paths[0], nil)
			}
			return m, nil
		}
		m.addFiles(opID, msg.Paths, nil)
		return m, nil

	case picker.CancelledMsg:
		m.closePicker()
		m.status = "Selection cancelled"
		return m, nil

	case previewMsg:
		m.previews[msg.path] = msg.result
		return m, nil

	case applyProgressMsg:
		m.progress = msg.progress
		var pct float64
		if msg.progress.OperationsTotal > 0 {
			pct = float64(msg.progress.OperationsDone) / float64(msg.progress.OperationsTotal)
		}
		return m, tea.Batch(m.bar.SetPercent(min(pct, 1)), m.step())

	case applyDoneMsg:
		return m, m.finishApply(msg.report)

	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		m.bar = pm.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		if m.mode != modeApplying {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	// Anything else belongs to the embedded picker or the text input.
	switch m.mode {
	case modePick:
		if m.picker != nil {
			_, cmd := m.picker.Update(msg)
			return m, cmd
		}
	case modeRename, modeSubfolder:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modePick:
		if m.picker == nil {
			m.mode = modeBrowse
			return m, nil
		}
		_, cmd := m.picker.Update(msg)
		return m, cmd

	case modeRename, modeSubfolder:
		switch msg.Type {
		case tea.KeyEnter:
			m.commitInput()
			return m, nil
		case tea.KeyEsc:
			m.stopEditing()
			return m, nil
		case tea.KeyCtrlC:
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case modeApplying:
		if key.Matches(msg, m.keys.Quit) && m.cancel != nil {
			m.cancel()
			m.status = "Cancelling after the current operation..."
		}
		return m, nil

	case modeResult:
		switch {
		case msg.Type == tea.KeyCtrlC:
			return m, tea.Quit
		case msg.Type == tea.KeyEnter, key.Matches(msg, m.keys.Quit):
			m.mode = modeBrowse
			return m, nil
		case components.ScrollKey(m.results, msg.String()):
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Toggle):
		m.toggleExpanded()
	case key.Matches(msg, m.keys.Rename):
		if m.cursor.path == "" {
			m.toggleExpanded()
			return m, nil
		}
		return m, m.startRename()
	case key.Matches(msg, m.keys.AddOperation):
		op := m.set.Add()
		m.cursor = row{opID: op.ID}
		m.status = fmt.Sprintf("Added Operation %d", m.set.Index(op.ID))
	case key.Matches(msg, m.keys.AddFiles):
		return m, m.pickFiles()
	case key.Matches(msg, m.keys.Destination):
		return m, m.pickFolder()
	case key.Matches(msg, m.keys.Subfolder):
		return m, m.startSubfolder()
	case key.Matches(msg, m.keys.Preview):
		return m, m.togglePreview()
	case key.Matches(msg, m.keys.Remove):
		m.remove()
	case key.Matches(msg, m.keys.Apply):
		return m, m.startApply()
	}
	return m, nil
}

func (m *Model) toggleExpanded() {
	op, ok := m.focusedOp()
	if !ok {
		return
	}
	if err := m.set.Update(op.ID, func(o *batch.Operation) error {
		o.ToggleExpanded()
		return nil
	}); err != nil {
		m.status = err.Error()
		return
	}
	m.cursor = row{opID: op.ID}
}

func (m *Model) startRename() tea.Cmd {
	op, ok := m.focusedOp()
	if !ok {
		return nil
	}
	fd, ok := op.File(m.cursor.path)
	if !ok {
		return nil
	}
	// Only the stem is editable; the extension is put back on save.
	stem := op.ResolvedName(fd.OriginalPath)
	if suffix := "." + fd.Extension; fd.Extension != "" && strings.HasSuffix(strings.ToLower(stem), suffix) {
		stem = stem[:len(stem)-len(suffix)]
	}
	m.editing = m.cursor
	m.mode = modeRename
	m.input.Prompt = "New name: "
	m.input.Placeholder = fd.Stem
	m.input.SetValue(stem)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) startSubfolder() tea.Cmd {
	op, ok := m.focusedOp()
	if !ok {
		return nil
	}
	m.editing = row{opID: op.ID}
	m.mode = modeSubfolder
	m.input.Prompt = "Subfolder: "
	m.input.Placeholder = "optional"
	m.input.SetValue(op.Subfolder)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) commitInput() {
	value := m.input.Value()
	target := m.editing
	var err error
	switch m.mode {
	case modeRename:
		err = m.set.Update(target.opID, func(o *batch.Operation) error {
			return o.SetTargetName(target.path, value)
		})
		if err == nil {
			if op, ok := m.set.Get(target.opID); ok {
				m.status = "Renamed to " + op.ResolvedName(target.path)
			}
		}
	case modeSubfolder:
		err = m.set.Update(target.opID, func(o *batch.Operation) error {
			o.SetSubfolder(strings.TrimSpace(value))
			return nil
		})
		if err == nil {
			m.status = "Subfolder updated"
		}
	}
	if err != nil {
		m.status = err.Error()
	}
	m.stopEditing()
}

func (m *Model) stopEditing() {
	m.input.Blur()
	m.input.Reset()
	m.editing = row{}
	m.mode = modeBrowse
}

func (m *Model) pickFiles() tea.Cmd {
	op := m.ensureOp()
	if m.pickerSvc != nil {
		svc := m.pickerSvc
		return func() tea.Msg {
			paths, err := svc.SelectFiles(context.Background())
			return filesPickedMsg{opID: op.ID, paths: paths, err: err}
		}
	}
	return m.openPicker(op.ID, picker.ModeFiles)
}

func (m *Model) pickFolder() tea.Cmd {
	op := m.ensureOp()
	if m.pickerSvc != nil {
		svc := m.pickerSvc
		return func() tea.Msg {
			path, err := svc.SelectFolder(context.Background())
			return folderPickedMsg{opID: op.ID, path: path, err: err}
		}
	}
	return m.openPicker(op.ID, picker.ModeFolder)
}

func (m *Model) openPicker(opID string, pm picker.Mode) tea.Cmd {
	start := m.cfg.StartDir
	if op, ok := m.set.Get(opID); ok && pm == picker.ModeFolder && op.Destination != "" {
		start = op.Destination
	}
	m.picker = picker.New(pm, start, picker.WithTheme(m.theme))
	m.picker.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	m.pickOpID = opID
	m.mode = modePick
	return m.picker.Init()
}

func (m *Model) closePicker() {
	m.picker = nil
	m.pickOpID = ""
	m.mode = modeBrowse
}

func (m *Model) addFiles(opID string, paths []string, err error) {
	switch {
	case errors.Is(err, batch.ErrSelectionCancelled):
		m.status = "Selection cancelled"
		return
	case err != nil:
		m.status = "Could not select files: " + err.Error()
		return
	}
	added := 0
	err = m.set.Update(opID, func(o *batch.Operation) error {
		added = o.AddFiles(paths...)
		if added > 0 {
			o.Expanded = true
		}
		return nil
	})
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("Added %d file%s to Operation %d", added, plural(added), m.set.Index(opID))
	logger.Get().Debug().Str("operation", opID).Int("added", added).Msg("files added")
}

func (m *Model) setDestination(opID, path string, err error) {
	switch {
	case errors.Is(err, batch.ErrSelectionCancelled):
		m.status = "Selection cancelled"
		return
	case err != nil:
		m.status = "Could not select folder: " + err.Error()
		return
	}
	err = m.set.Update(opID, func(o *batch.Operation) error {
		o.SetDestination(path)
		return nil
	})
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = "Destination: " + path
}

func (m *Model) togglePreview() tea.Cmd {
	op, ok := m.focusedOp()
	if !ok || m.cursor.path == "" {
		return nil
	}
	fd, ok := op.File(m.cursor.path)
	if !ok {
		return nil
	}
	if !m.previewer.Supported(fd.Extension) {
		m.status = fmt.Sprintf("No preview for %s", fd.OriginalName)
		return nil
	}
	visible := !op.PreviewVisible[fd.OriginalPath]
	if err := m.set.Update(op.ID, func(o *batch.Operation) error {
		return o.TogglePreview(fd.OriginalPath, visible)
	}); err != nil {
		m.status = err.Error()
		return nil
	}
	if !visible {
		return nil
	}
	if _, ok := m.previews[fd.OriginalPath]; ok {
		return nil
	}
	previewer, width := m.previewer, m.cfg.PreviewWidth
	return func() tea.Msg {
		res := previewer.Render(context.Background(), fd.OriginalPath, fd.Extension, width)
		return previewMsg{path: fd.OriginalPath, result: res}
	}
}

func (m *Model) remove() {
	op, ok := m.focusedOp()
	if !ok {
		return
	}
	prev := m.cursorIndex(m.rows())
	if m.cursor.path == "" {
		m.set.Remove(op.ID)
		for _, fd := range op.Files {
			delete(m.previews, fd.OriginalPath)
		}
		m.status = "Removed operation"
		m.settleCursor(prev)
		return
	}

	pruned, err := m.set.RemoveFile(op.ID, m.cursor.path)
	if err != nil {
		m.status = err.Error()
		return
	}
	delete(m.previews, m.cursor.path)
	m.status = "Removed " + batch.Describe(m.cursor.path).OriginalName
	if pruned {
		m.status += " and its empty operation"
	}
	m.settleCursor(prev)
}

func (m *Model) reloadConfig(msg ConfigReloadedMsg) {
	if msg.Err != nil || msg.Config == nil {
		m.status = fmt.Sprintf("Config reload failed: %v", msg.Err)
		return
	}
	m.cfg = msg.Config
	m.previewer = m.newPreviewer()
	clear(m.previews)
	if m.ownFS {
		m.fs = fsys.NewOS(fsys.WithOverwrite(m.cfg.OverwriteExisting))
	}
	m.status = "Config reloaded"
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
