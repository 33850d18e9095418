package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Digital-Shane/batch-mover/internal/config"
	"github.com/Digital-Shane/batch-mover/internal/journal"
	"github.com/Digital-Shane/batch-mover/internal/logger"
	"github.com/Digital-Shane/batch-mover/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// rootCmd launches the editor when called without a subcommand.
var rootCmd = newRootCmd()

// Execute runs the command line. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "batch-mover",
		Short: "Move and rename files in batches",
		Long: `batch-mover collects files into operations, gives each operation a
destination folder and an optional subfolder, lets you rename files before they
move, and then applies every operation in one go.

Every run is journaled so it can be reverted with "batch-mover undo".`,
		SilenceUsage: true,
		RunE:         runEditor,
	}
	root.AddCommand(newMoveCmd(), newUndoCmd(), newConfigCmd())
	return root
}

// runtime is what every command needs after start-up: the settings and the
// journal that records or reverts runs.
type runtime struct {
	cfg     *config.Config
	journal *journal.Journal
}

// setup loads the config, points the logger at the log file and drops
// journal sessions older than the retention window.
func setup() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.EnableLogging {
		path, err := cfg.LogPath()
		if err != nil {
			return nil, err
		}
		if err := logger.Init(cfg.LogLevel, path); err != nil {
			return nil, err
		}
	}

	dir, err := journal.DefaultDir()
	if err != nil {
		return nil, err
	}
	j := journal.New(dir, cfg.EnableLogging)

	removed, failed, err := j.Cleanup(cfg.LogRetentionDays)
	switch {
	case err != nil:
		logger.Get().Warn().Err(err).Msg("journal cleanup failed")
	case removed > 0 || failed > 0:
		logger.Get().Info().Int("removed", removed).Int("failed", failed).Msg("journal cleanup")
	}
	return &runtime{cfg: cfg, journal: j}, nil
}

func runEditor(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	model := tui.New(
		tui.WithConfig(rt.cfg),
		tui.WithJournal(rt.journal),
		tui.WithCommand("tui", args),
	)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	if path, err := config.ConfigPath(); err == nil {
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
		w, err := config.Watch(path, func(cfg *config.Config, err error) {
			p.Send(tui.ConfigReloadedMsg{Config: cfg, Err: err})
		})
		if err != nil {
			logger.Get().Warn().Err(err).Msg("config watcher not started")
		} else {
			defer w.Stop()
		}
	}

	_, err = p.Run()
	return err
}
