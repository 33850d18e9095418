package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/Digital-Shane/batch-mover/internal/apply"
	"github.com/Digital-Shane/batch-mover/internal/batch"
	"github.com/Digital-Shane/batch-mover/internal/fsys"
	"github.com/Digital-Shane/batch-mover/internal/logger"
	"github.com/Digital-Shane/batch-mover/internal/picker"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// interactivePicker asks for whatever the command line left out. Tests swap
// it for a static one.
var interactivePicker = func(startDir string) picker.Service {
	return picker.Interactive{StartDir: startDir}
}

type moveOptions struct {
	dest      string
	subfolder string
	renames   []string
	workers   int
	policy    string
}

func newMoveCmd() *cobra.Command {
	opts := &moveOptions{}
	cmd := &cobra.Command{
		Use:   "move [files...]",
		Short: "Move files into a folder without the editor",
		Long: `Build a single operation from the command line and apply it immediately.

Files without --dest, or a --dest without files, open the file picker for the
missing part. Renames take the form old=new, where old is the file name or
path and new is the new name without its extension.`,
		Example: `  batch-mover move a.png b.png --dest ~/Pictures --subfolder trip
  batch-mover move report.pdf --dest ~/Documents --rename report.pdf=q3-report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.dest, "dest", "d", "", "destination folder")
	cmd.Flags().StringVarP(&opts.subfolder, "subfolder", "s", "", "subfolder created inside the destination")
	cmd.Flags().StringArrayVarP(&opts.renames, "rename", "r", nil, "rename a file, as old=new (repeatable)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "files moved in parallel (default from config)")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "what to keep after the run: "+policyNames())
	return cmd
}

func runMove(cmd *cobra.Command, args []string, opts *moveOptions) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	policy := rt.cfg.Policy()
	if cmd.Flags().Changed("policy") {
		if policy, err = apply.ParsePolicy(opts.policy); err != nil {
			return err
		}
	}
	workers := rt.cfg.Workers
	if cmd.Flags().Changed("workers") {
		if opts.workers < 1 {
			return fmt.Errorf("--workers must be at least 1, got %d", opts.workers)
		}
		workers = opts.workers
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	files, folder, err := selectInputs(ctx, args, opts.dest, rt.cfg.StartDir)
	if errors.Is(err, batch.ErrSelectionCancelled) {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing selected, nothing moved.")
		return nil
	}
	if err != nil {
		return err
	}

	set := batch.NewSet()
	op := set.Add()
	err = set.Update(op.ID, func(o *batch.Operation) error {
		o.AddFiles(files...)
		o.SetDestination(folder)
		o.SetSubfolder(opts.subfolder)
		return applyRenames(o, opts.renames)
	})
	if err != nil {
		return err
	}

	engine := apply.NewEngine(apply.Config{
		Set:         set,
		FS:          fsys.NewOS(fsys.WithOverwrite(rt.cfg.OverwriteExisting)),
		Journal:     rt.journal,
		Policy:      policy,
		Workers:     workers,
		Command:     "move",
		CommandArgs: invocation(cmd, args),
		Stderr:      cmd.ErrOrStderr(),
	})
	logger.Get().Info().
		Int("files", engine.TotalFiles()).
		Str("destination", folder).
		Msg("move started")

	report := engine.RunToCompletion(ctx)
	printReport(cmd.OutOrStdout(), report)
	if !report.Success() {
		return errors.New(report.Summary())
	}
	return nil
}

// selectInputs fills in the files and folder from args, asking the picker
// only for what is missing. Relative paths are made absolute so the journal
// can revert the run from any directory.
func selectInputs(ctx context.Context, args []string, dest, startDir string) ([]string, string, error) {
	var svc picker.Service = picker.Static{Files: args, Folder: dest}
	if len(args) == 0 || dest == "" {
		svc = interactivePicker(startDir)
	}

	files := args
	if len(files) == 0 {
		picked, err := svc.SelectFiles(ctx)
		if err != nil {
			return nil, "", err
		}
		files = picked
	}
	folder := dest
	if folder == "" {
		picked, err := svc.SelectFolder(ctx)
		if err != nil {
			return nil, "", err
		}
		folder = picked
	}

	abs := make([]string, 0, len(files))
	for _, f := range files {
		p, err := filepath.Abs(f)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		abs = append(abs, p)
	}
	folder, err := filepath.Abs(folder)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve %s: %w", dest, err)
	}
	return abs, folder, nil
}

// applyRenames sets target names from old=new pairs. old matches a file's
// name or its path.
func applyRenames(o *batch.Operation, renames []string) error {
	for _, pair := range renames {
		old, name, ok := strings.Cut(pair, "=")
		if !ok || old == "" {
			return fmt.Errorf("invalid --rename %q: want old=new", pair)
		}
		path, found := "", false
		for _, fd := range o.Files {
			if fd.OriginalName == old || fd.OriginalPath == old || fd.OriginalPath == absOrSelf(old) {
				path, found = fd.OriginalPath, true
				break
			}
		}
		if !found {
			return fmt.Errorf("invalid --rename %q: no file %s in the operation", pair, old)
		}
		if err := o.SetTargetName(path, name); err != nil {
			return fmt.Errorf("invalid --rename %q: %w", pair, err)
		}
	}
	return nil
}

func absOrSelf(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// invocation rebuilds the arguments for the journal, flags first.
func invocation(cmd *cobra.Command, args []string) []string {
	var out []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			for _, v := range sv.GetSlice() {
				out = append(out, "--"+f.Name+"="+v)
			}
			return
		}
		out = append(out, "--"+f.Name+"="+f.Value.String())
	})
	return append(out, args...)
}

func printReport(w io.Writer, r apply.Report) {
	for _, op := range r.Operations {
		switch op.Status {
		case apply.StatusSkipped:
			reason := "skipped"
			if op.SkipReason != nil {
				reason = op.SkipReason.Error()
			}
			fmt.Fprintf(w, "Operation %d: %s\n", op.Index, reason)
		case apply.StatusFolderFailed:
			fmt.Fprintf(w, "Operation %d -> %s: folder could not be created\n", op.Index, op.TargetFolder)
		default:
			fmt.Fprintf(w, "Operation %d -> %s: %d/%d moved\n", op.Index, op.TargetFolder, op.Succeeded(), len(op.Files))
		}
	}
	for _, f := range r.Failures() {
		fmt.Fprintf(w, "  failed %s: %s\n", f.Path, f.Reason)
	}
	fmt.Fprintf(w, "Done: %s\n", r.Summary())
	if r.JournalPath != "" {
		fmt.Fprintln(w, `Run "batch-mover undo --latest" to revert.`)
	}
}

func policyNames() string {
	names := make([]string, len(apply.Policies))
	for i, p := range apply.Policies {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
