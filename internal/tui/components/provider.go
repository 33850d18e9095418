package components

import (
	"fmt"
	"time"

	"github.com/Digital-Shane/batch-mover/internal/journal"
	"github.com/Digital-Shane/batch-mover/internal/tui/theme"

	"github.com/Digital-Shane/treeview"
	"github.com/charmbracelet/lipgloss"
)

// sessionRule adapts a session predicate to a node predicate.
func sessionRule(cond func(*journal.Session) bool) func(*treeview.Node[journal.SessionFile]) bool {
	return func(n *treeview.Node[journal.SessionFile]) bool {
		if d := n.Data(); d != nil && d.Session != nil {
			return cond(d.Session)
		}
		return false
	}
}

func hasFailures() func(*treeview.Node[journal.SessionFile]) bool {
	return sessionRule(func(s *journal.Session) bool { return s.Metadata.FailedOps > 0 })
}

func allSucceeded() func(*treeview.Node[journal.SessionFile]) bool {
	return sessionRule(func(s *journal.Session) bool {
		return s.Metadata.FailedOps == 0 && s.Metadata.SuccessfulOps > 0
	})
}

// SessionProvider builds the node provider for the undo session list: a
// failure icon wins over the success icon, and the label comes from
// SessionLabel relative to now.
func SessionProvider(th theme.Theme, now func() time.Time) *treeview.DefaultNodeProvider[journal.SessionFile] {
	colors := th.Colors()

	failedIcon := treeview.WithIconRule(hasFailures(), th.Icon("partial"))
	okIcon := treeview.WithIconRule(allSucceeded(), th.Icon("success"))
	defaultIcon := treeview.WithDefaultIcon[journal.SessionFile](th.Icon("session"))

	failedStyle := treeview.WithStyleRule(
		hasFailures(),
		lipgloss.NewStyle().Foreground(colors.Warning),
		lipgloss.NewStyle().Foreground(colors.Background).Background(colors.Warning).Bold(true),
	)
	defaultStyle := treeview.WithStyleRule(
		func(*treeview.Node[journal.SessionFile]) bool { return true },
		lipgloss.NewStyle().Foreground(colors.Primary),
		lipgloss.NewStyle().Foreground(colors.Background).Background(colors.Primary).Bold(true),
	)

	formatter := treeview.WithFormatter(func(n *treeview.Node[journal.SessionFile]) (string, bool) {
		d := n.Data()
		if d == nil || d.Session == nil {
			return n.Name(), true
		}
		return SessionLabel(d.Session, now()), true
	})

	return treeview.NewDefaultNodeProvider(
		failedIcon, okIcon, defaultIcon,
		failedStyle, defaultStyle,
		formatter,
	)
}

// SessionLabel renders a session as "<command> - <when> (<n> ops)".
func SessionLabel(s *journal.Session, now time.Time) string {
	cmd := "batch"
	if len(s.Metadata.CommandArgs) > 0 {
		cmd = s.Metadata.CommandArgs[0]
	}
	return fmt.Sprintf("%s - %s (%d ops)", cmd, journal.FormatRelativeTime(s.Metadata.Timestamp, now), s.Metadata.TotalOps)
}
