package tui

import (
	"context"
	"strings"

	"github.com/Digital-Shane/batch-mover/internal/apply"
	"github.com/Digital-Shane/batch-mover/internal/logger"

	tea "github.com/charmbracelet/bubbletea"
)

// startApply snapshots the set into an engine and starts stepping it, one
// operation per message so the progress bar moves between operations.
func (m *Model) startApply() tea.Cmd {
	ready := 0
	for _, op := range m.set.Snapshot() {
		if op.Ready() {
			ready++
		}
	}
	if ready == 0 {
		m.status = "Nothing to apply: add files and pick a destination first"
		return nil
	}

	m.warnings.Reset()
	m.applyCtx, m.cancel = context.WithCancel(context.Background())
	m.engine = apply.NewEngine(apply.Config{
		Set:         m.set,
		FS:          m.fs,
		Journal:     m.journal,
		Policy:      m.cfg.Policy(),
		Workers:     m.cfg.Workers,
		Command:     m.command,
		CommandArgs: m.commandArgs,
		Stderr:      &m.warnings,
	})
	m.progress = apply.Progress{
		OperationsTotal: m.engine.TotalOperations(),
		FilesTotal:      m.engine.TotalFiles(),
	}
	m.report = nil
	m.mode = modeApplying
	m.status = ""

	logger.Get().Info().
		Int("operations", m.engine.TotalOperations()).
		Int("files", m.engine.TotalFiles()).
		Msg("apply started")

	return tea.Batch(m.bar.SetPercent(0), m.spin.Tick, m.step())
}

// step runs the next engine step off the update loop.
func (m *Model) step() tea.Cmd {
	eng, ctx := m.engine, m.applyCtx
	if eng == nil {
		return nil
	}
	return func() tea.Msg {
		p, done := eng.ProcessNext(ctx)
		if done {
			return applyDoneMsg{report: eng.Report()}
		}
		return applyProgressMsg{progress: p}
	}
}

func (m *Model) finishApply(r apply.Report) tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.engine = nil
	m.report = &r
	m.mode = modeResult
	m.status = r.Summary()

	// The policy may have dropped files; forget their previews.
	known := map[string]bool{}
	for _, op := range m.set.Snapshot() {
		for _, fd := range op.Files {
			known[fd.OriginalPath] = true
		}
	}
	for path := range m.previews {
		if !known[path] {
			delete(m.previews, path)
		}
	}
	if m.set.Len() == 0 {
		op := m.set.Add()
		m.cursor = row{opID: op.ID}
	} else {
		m.settleCursor(0)
	}

	m.results.SetContent(m.renderReport(r))
	m.results.GotoTop()

	if w := strings.TrimSpace(m.warnings.String()); w != "" {
		logger.Get().Warn().Str("warnings", w).Msg("apply finished with warnings")
	}
	return m.bar.SetPercent(1)
}
