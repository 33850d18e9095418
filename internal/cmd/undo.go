package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/Digital-Shane/batch-mover/internal/journal"
	"github.com/Digital-Shane/batch-mover/internal/logger"
	"github.com/Digital-Shane/batch-mover/internal/tui/components"
	"github.com/Digital-Shane/batch-mover/internal/tui/theme"
	"github.com/Digital-Shane/batch-mover/internal/tui/undo"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type undoOptions struct {
	latest bool
	list   bool
	limit  int
}

func newUndoCmd() *cobra.Command {
	opts := &undoOptions{}
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Revert a previous run",
		Long: `Display recent runs and revert the one you pick.

Files are moved back to where they came from and folders the run created are
removed again when they are empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.latest, "latest", false, "revert the most recent run without the browser")
	cmd.Flags().BoolVar(&opts.list, "list", false, "print recorded runs and exit")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 50, "number of runs to show")
	cmd.MarkFlagsMutuallyExclusive("latest", "list")
	return cmd
}

func runUndo(cmd *cobra.Command, opts *undoOptions) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()
	out := cmd.OutOrStdout()

	if opts.latest {
		latest, err := rt.journal.Latest()
		if err != nil {
			return err
		}
		return revert(out, rt.journal, latest)
	}

	sessions, err := rt.journal.Sessions(opts.limit)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No runs found to undo.")
		return nil
	}

	if opts.list {
		listSessions(out, sessions, time.Now())
		return nil
	}

	tree := undo.BuildTree(sessions, theme.Default(), time.Now)
	model := undo.New(tree, rt.journal.Undo)
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return err
	}
	if model.Done() {
		r := model.Result()
		logger.Get().Info().
			Str("session", r.Session).
			Int("reversed", r.Succeeded).
			Int("failed", r.Failed).
			Msg("undo finished")
	}
	return nil
}

func revert(w io.Writer, j *journal.Journal, sf journal.SessionFile) error {
	ok, failed, errs := journal.CountUndo(j.Undo(sf.Session))
	logger.Get().Info().
		Str("session", sf.Session.Metadata.SessionID).
		Int("reversed", ok).
		Int("failed", failed).
		Msg("undo finished")

	fmt.Fprintf(w, "Reverted %s: %d action%s reversed", components.SessionLabel(sf.Session, time.Now()), ok, plural(ok))
	if failed > 0 {
		fmt.Fprintf(w, ", %d failed", failed)
	}
	fmt.Fprintln(w)
	for _, err := range errs {
		fmt.Fprintf(w, "  %v\n", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d action%s could not be reversed", failed, plural(failed))
	}
	return nil
}

func listSessions(w io.Writer, sessions []journal.SessionFile, now time.Time) {
	for _, s := range sessions {
		if s.Session == nil {
			continue
		}
		fmt.Fprintf(w, "%s  %s\n", s.Session.Metadata.SessionID, components.SessionLabel(s.Session, now))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
