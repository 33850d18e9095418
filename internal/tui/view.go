package tui

import (
	"fmt"
	"strings"

	"github.com/Digital-Shane/batch-mover/internal/apply"
	"github.com/Digital-Shane/batch-mover/internal/batch"
	"github.com/Digital-Shane/batch-mover/internal/preview"
	"github.com/Digital-Shane/batch-mover/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

func (m *Model) View() string {
	if m.mode == modePick && m.picker != nil {
		return m.picker.View()
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := max(3, m.height-lipgloss.Height(header)-lipgloss.Height(footer))

	var body string
	if m.mode == modeResult {
		m.results.Height = max(3, bodyHeight-2)
		body = m.theme.PanelStyle().Width(max(10, m.width-2)).Render(m.results.View())
	} else {
		content, cursorLine := m.renderOperations()
		m.body.Width = m.width
		m.body.Height = bodyHeight
		m.body.SetContent(content)
		switch {
		case cursorLine < m.body.YOffset:
			m.body.SetYOffset(cursorLine)
		case cursorLine >= m.body.YOffset+m.body.Height:
			m.body.SetYOffset(cursorLine - m.body.Height + 1)
		}
		body = m.body.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader() string {
	ops := m.set.Snapshot()
	files := 0
	for _, op := range ops {
		files += len(op.Files)
	}
	title := fmt.Sprintf("%s Batch Mover · %d operation%s · %d file%s",
		m.theme.Icon("operation"), len(ops), plural(len(ops)), files, plural(files))
	return m.theme.HeaderStyle().Width(m.width).Render(title)
}

// renderOperations draws every operation card and returns the line the
// cursor sits on so the body viewport can keep it visible.
func (m *Model) renderOperations() (string, int) {
	var cards []string
	lines, cursorLine := 0, 0
	for i, op := range m.set.Snapshot() {
		card, at := m.renderOperation(i, op)
		if at >= 0 {
			cursorLine = lines + at
		}
		cards = append(cards, card)
		lines += lipgloss.Height(card)
	}
	return strings.Join(cards, "\n"), cursorLine
}

// renderOperation returns the card and the cursor line inside it, or -1.
func (m *Model) renderOperation(i int, op batch.Operation) (string, int) {
	focused := m.cursor.opID == op.ID
	muted := m.theme.MutedStyle()
	cursorAt := -1

	expand := m.theme.Icon("collapsed")
	if op.Expanded {
		expand = m.theme.Icon("expanded")
	}
	titleStyle := m.theme.OperationTitleStyle()
	if focused && m.cursor.path == "" {
		titleStyle = m.theme.FileRowStyle(true).PaddingLeft(0).Bold(true)
		cursorAt = 0
	}
	title := titleStyle.Render(fmt.Sprintf("%s Operation %d", expand, i+1)) +
		muted.Render(fmt.Sprintf("  %d file%s", len(op.Files), plural(len(op.Files))))
	lines := []string{title, m.destinationLine(op)}

	if op.Expanded {
		if len(op.Files) == 0 {
			lines = append(lines, muted.Render("No files. Press f to add files."))
		}
		for _, fd := range op.Files {
			cursor := focused && m.cursor.path == fd.OriginalPath
			if cursor {
				cursorAt = len(lines)
			}
			lines = append(lines, m.renderFileRow(op, fd, cursor))
			if op.PreviewVisible[fd.OriginalPath] {
				lines = append(lines, m.renderPreview(fd.OriginalPath)...)
			}
		}
	}

	card := m.theme.OperationStyle(focused).Width(max(20, m.width-2)).Render(strings.Join(lines, "\n"))
	if cursorAt >= 0 {
		cursorAt++ // top border
	}
	return card, cursorAt
}

func (m *Model) destinationLine(op batch.Operation) string {
	if op.Destination == "" {
		return m.theme.MutedStyle().Render(m.theme.Icon("folder") + " No folder selected")
	}
	target := truncateLeft(op.TargetFolder(), max(10, m.width-20))
	return lipgloss.NewStyle().Foreground(m.theme.Colors().Secondary).
		Render(m.theme.Icon("folder") + " Destination: " + target)
}

func (m *Model) renderFileRow(op batch.Operation, fd batch.FileDescriptor, cursor bool) string {
	inner := max(20, m.width-8-m.theme.Spacing().FileIndent)
	col := max(6, (inner-8)/2)

	icon := m.fileIcon(fd.Extension)
	from := runewidth.FillRight(runewidth.Truncate(fd.OriginalName, col, "…"), col)
	to := runewidth.Truncate(op.ResolvedName(fd.OriginalPath), col, "…")

	marker := ""
	if m.previewer.Supported(fd.Extension) {
		marker = " " + m.theme.Icon("preview")
		if !op.PreviewVisible[fd.OriginalPath] {
			marker = " " + m.theme.MutedStyle().Render("p")
		}
	}
	if !cursor && to != fd.OriginalName {
		to = lipgloss.NewStyle().Foreground(m.theme.Colors().Accent).Render(to)
	}
	text := fmt.Sprintf("%s %s %s %s", icon, from, m.theme.Icon("arrow"), to)
	return m.theme.FileRowStyle(cursor).Render(text) + marker
}

func (m *Model) fileIcon(ext string) string {
	switch m.previewer.KindFor(ext) {
	case preview.KindImage:
		return m.theme.Icon("image")
	case preview.KindVideo:
		return m.theme.Icon("video")
	case preview.KindMesh:
		return m.theme.Icon("mesh")
	}
	return m.theme.Icon("file")
}

func (m *Model) renderPreview(path string) []string {
	indent := lipgloss.NewStyle().PaddingLeft(m.theme.Spacing().FileIndent + 2)
	res, ok := m.previews[path]
	if !ok {
		return []string{indent.Render(m.theme.MutedStyle().Render("Loading preview..."))}
	}
	var out []string
	if res.Title != "" {
		out = append(out, indent.Render(m.theme.MutedStyle().Render(res.Title)))
	}
	if res.Body != "" {
		style := indent
		if res.Kind == preview.KindUnsupported {
			style = style.Foreground(m.theme.Colors().Warning)
		}
		for _, line := range strings.Split(res.Body, "\n") {
			out = append(out, style.Render(line))
		}
	}
	return out
}

func (m *Model) renderFooter() string {
	var lines []string
	switch m.mode {
	case modeRename:
		line := m.input.View()
		if op, ok := m.set.Get(m.editing.opID); ok {
			if fd, ok := op.File(m.editing.path); ok && fd.Extension != "" {
				line += m.theme.MutedStyle().Render("." + fd.Extension)
			}
		}
		lines = append(lines, line, m.theme.MutedStyle().Render("enter save · esc cancel"))

	case modeSubfolder:
		lines = append(lines, m.input.View(), m.theme.MutedStyle().Render("enter save · esc cancel · empty clears"))

	case modeApplying:
		p := m.progress
		text := fmt.Sprintf("%s %d/%d operations · %d/%d files", m.spin.View(),
			p.OperationsDone, p.OperationsTotal, p.FilesDone, p.FilesTotal)
		if p.Failed > 0 {
			text += fmt.Sprintf(" · %d failed", p.Failed)
		}
		lines = append(lines, m.bar.View()+"  "+text)
		hint := "esc cancel"
		if m.status != "" {
			hint = m.status
		}
		lines = append(lines, m.theme.MutedStyle().Render(hint))

	case modeResult:
		lines = append(lines, m.theme.StatusBarStyle().Width(m.width).Render(m.status))
		lines = append(lines, m.theme.MutedStyle().Render("↑↓ scroll · enter back to editor · ctrl+c quit"))

	default:
		if m.status != "" {
			lines = append(lines, m.theme.StatusBarStyle().Width(m.width).Render(m.status))
		}
		lines = append(lines, m.help.View(m.keys))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderReport(r apply.Report) string {
	var b strings.Builder

	badge, label := theme.BadgeSuccess, "DONE"
	switch {
	case r.Cancelled:
		badge, label = theme.BadgeWarning, "CANCELLED"
	case !r.Success():
		badge, label = theme.BadgeError, "FAILED"
	}
	b.WriteString(m.theme.BadgeStyle(badge).Render(label))
	b.WriteString(" " + r.Summary() + "\n\n")

	for _, op := range r.Operations {
		line := fmt.Sprintf("%s Operation %d", m.statusIcon(op.Status), op.Index)
		switch op.Status {
		case apply.StatusSkipped:
			reason := "skipped"
			if op.SkipReason != nil {
				reason = op.SkipReason.Error()
			}
			line += m.theme.MutedStyle().Render(": " + reason)
		default:
			line += fmt.Sprintf(" %s %s: %d/%d moved", m.theme.Icon("arrow"),
				truncateLeft(op.TargetFolder, max(10, m.width-40)), op.Succeeded(), len(op.Files))
		}
		b.WriteString(line + "\n")
	}

	if failures := r.Failures(); len(failures) > 0 {
		b.WriteString("\n" + m.theme.ErrorStyle().Bold(true).Render("Failures") + "\n")
		for _, f := range failures {
			b.WriteString(m.theme.ErrorStyle().Render(fmt.Sprintf("%s %s: %s", m.theme.Icon("error"), f.Path, f.Reason)))
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	switch {
	case r.Cleared:
		b.WriteString(m.theme.MutedStyle().Render("Operation list cleared."))
	case r.Unfinished > 0:
		b.WriteString(m.theme.MutedStyle().Render(fmt.Sprintf("Cleared finished operations; kept %d not ready to apply.", r.Unfinished)))
	case r.Removed > 0:
		b.WriteString(m.theme.MutedStyle().Render(fmt.Sprintf("Removed %d moved file%s from the list; the rest are kept for retry.", r.Removed, plural(r.Removed))))
	default:
		b.WriteString(m.theme.MutedStyle().Render("Operation list kept for retry."))
	}
	if r.JournalPath != "" {
		b.WriteString("\n" + m.theme.MutedStyle().Render("Run `batch-mover undo` to revert this run."))
	}
	if w := strings.TrimSpace(m.warnings.String()); w != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(m.theme.Colors().Warning).Render(w))
	}
	return b.String()
}

func (m *Model) statusIcon(s apply.Status) string {
	switch s {
	case apply.StatusSucceeded:
		return m.theme.Icon("success")
	case apply.StatusPartial:
		return m.theme.Icon("partial")
	case apply.StatusSkipped:
		return m.theme.Icon("skipped")
	case apply.StatusCancelled:
		return m.theme.Icon("cancelled")
	}
	return m.theme.Icon("error")
}

// truncateLeft keeps the end of a path.
func truncateLeft(s string, width int) string {
	if runewidth.StringWidth(s) <= width || width <= 3 {
		return s
	}
	r := []rune(s)
	for i := range r {
		if runewidth.StringWidth(string(r[i:])) <= width-1 {
			return "…" + string(r[i:])
		}
	}
	return s
}
