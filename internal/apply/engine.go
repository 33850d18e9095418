// Package apply executes the pending operations of a batch.Set against the
// filesystem: it creates each operation's target folder and moves every file
// into it, collecting a per-file and per-operation Report.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Digital-Shane/batch-mover/internal/batch"
	"github.com/Digital-Shane/batch-mover/internal/fsys"
	"github.com/Digital-Shane/batch-mover/internal/journal"
	"github.com/Digital-Shane/batch-mover/internal/logger"
	"github.com/panjf2000/ants/v2"
)

// Functions bundles the filesystem callbacks used by the engine. Tests and
// dry runs can override any subset of them; the rest fall back to the
// configured fsys.Service.
type Functions struct {
	EnsureFolder func(ctx context.Context, path string) error
	Move         func(ctx context.Context, from, to string) error
	// FolderExists lets the journal tell created folders from existing
	// ones. When nil the engine asks the service if it can answer.
	FolderExists func(path string) bool
	Sanitize     func(name string) (string, error)
}

func (f Functions) withDefaults(svc fsys.Service) Functions {
	if f.EnsureFolder == nil {
		f.EnsureFolder = svc.EnsureFolder
	}
	if f.Move == nil {
		f.Move = svc.Move
	}
	if f.FolderExists == nil {
		if ex, ok := svc.(interface{ Exists(string) (bool, error) }); ok {
			f.FolderExists = func(path string) bool {
				found, err := ex.Exists(path)
				return err == nil && found
			}
		} else {
			f.FolderExists = func(string) bool { return true }
		}
	}
	if f.Sanitize == nil {
		f.Sanitize = fsys.SanitizeFilename
	}
	return f
}

// Config configures an Engine.
type Config struct {
	// Set is snapshotted when the engine is built and updated once, per
	// Policy, when the run finishes. It may be nil.
	Set *batch.Set
	// Operations is used instead of a Set snapshot when Set is nil.
	Operations []batch.Operation
	FS         fsys.Service
	Journal    *journal.Journal
	Policy     ClearPolicy
	// Workers above one moves the files of a single operation in parallel.
	// Operations themselves always run one after another.
	Workers     int
	Command     string
	CommandArgs []string
	Functions   Functions
	Stderr      io.Writer
}

// Progress is a value snapshot of a running apply.
type Progress struct {
	OperationsDone  int
	OperationsTotal int
	FilesDone       int
	FilesTotal      int
	Succeeded       int
	Failed          int
	Current         string
}

// Engine walks a snapshot of the operation set one operation per step, so a
// UI can render progress between steps.
type Engine struct {
	cfg     Config
	fns     Functions
	ops     []batch.Operation
	idx     int
	results []OperationResult

	filesTotal int
	filesDone  int
	succeeded  int
	failed     int

	pool           *ants.PoolWithFunc
	startedJournal bool
	finished       bool
	report         Report
}

// NewEngine snapshots the operations to apply and returns a ready engine.
func NewEngine(cfg Config) *Engine {
	if cfg.FS == nil {
		cfg.FS = fsys.NewOS()
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyClearOnSuccess
	}

	ops := cfg.Operations
	if cfg.Set != nil {
		ops = cfg.Set.Snapshot()
	}

	e := &Engine{
		cfg: cfg,
		fns: cfg.Functions.withDefaults(cfg.FS),
		ops: ops,
	}
	for _, op := range ops {
		if op.Ready() {
			e.filesTotal += len(op.Files)
		}
	}
	return e
}

// TotalOperations returns the number of operations in the snapshot.
func (e *Engine) TotalOperations() int { return len(e.ops) }

// TotalFiles returns the number of files in eligible operations.
func (e *Engine) TotalFiles() int { return e.filesTotal }

// Done reports whether the final report is available.
func (e *Engine) Done() bool { return e.finished }

// Report returns the final report. It is only meaningful once Done.
func (e *Engine) Report() Report { return e.report }

// ProcessNext applies the next operation and returns the progress after it.
// The bool is true once every operation has been handled (or the context
// was cancelled) and Report is final.
func (e *Engine) ProcessNext(ctx context.Context) (Progress, bool) {
	if e.finished {
		return e.progress(""), true
	}
	e.ensureJournalStarted()

	if e.idx >= len(e.ops) {
		e.finish()
		return e.progress(""), true
	}

	if ctx.Err() != nil {
		for ; e.idx < len(e.ops); e.idx++ {
			e.results = append(e.results, cancelledResult(e.idx, e.ops[e.idx]))
		}
		e.finish()
		return e.progress(""), true
	}

	op := e.ops[e.idx]
	res := e.runOperation(ctx, e.idx, op)
	e.results = append(e.results, res)
	e.idx++
	return e.progress(res.TargetFolder), false
}

// RunToCompletion executes every remaining operation and returns the report.
func (e *Engine) RunToCompletion(ctx context.Context) Report {
	for {
		if _, done := e.ProcessNext(ctx); done {
			return e.report
		}
	}
}

func (e *Engine) progress(current string) Progress {
	return Progress{
		OperationsDone:  e.idx,
		OperationsTotal: len(e.ops),
		FilesDone:       e.filesDone,
		FilesTotal:      e.filesTotal,
		Succeeded:       e.succeeded,
		Failed:          e.failed,
		Current:         current,
	}
}

func (e *Engine) runOperation(ctx context.Context, i int, op batch.Operation) OperationResult {
	log := logger.Get().With().Str("operation", op.ID).Int("index", i+1).Logger()
	res := OperationResult{
		OperationID:  op.ID,
		Index:        i + 1,
		TargetFolder: op.TargetFolder(),
	}

	if err := op.Validate(); err != nil {
		res.Status = StatusSkipped
		res.SkipReason = err
		res.Files = fileOutcomes(op, res.TargetFolder, StatusSkipped)
		log.Info().Err(err).Msg("skipping operation")
		return res
	}

	existed := e.fns.FolderExists(res.TargetFolder)
	if err := e.fns.EnsureFolder(ctx, res.TargetFolder); err != nil {
		e.journal(func(j *journal.Journal) { j.RecordCreateDir(op.ID, res.TargetFolder, false, err) })
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return cancelledResult(i, op)
		}
		res.Status = StatusFolderFailed
		res.Err = &FolderCreateError{Folder: res.TargetFolder, Err: err}
		res.Files = fileOutcomes(op, res.TargetFolder, StatusSkipped)
		log.Error().Err(err).Str("folder", res.TargetFolder).Msg("could not create target folder")
		return res
	}
	e.journal(func(j *journal.Journal) { j.RecordCreateDir(op.ID, res.TargetFolder, !existed, nil) })

	outcomes := fileOutcomes(op, res.TargetFolder, "")
	if e.cfg.Workers > 1 && len(op.Files) > 1 {
		e.moveParallel(ctx, op, outcomes)
	} else {
		for j := range outcomes {
			if ctx.Err() != nil {
				outcomes[j].Status = StatusCancelled
				continue
			}
			e.moveOne(ctx, op, &outcomes[j])
		}
	}

	res.Files = outcomes
	res.Status = operationStatus(outcomes)
	for _, f := range outcomes {
		switch f.Status {
		case StatusSucceeded:
			e.succeeded++
			e.filesDone++
		case StatusFailed:
			e.failed++
			e.filesDone++
		}
	}
	log.Info().
		Str("folder", res.TargetFolder).
		Str("status", string(res.Status)).
		Int("moved", res.Succeeded()).
		Int("failed", res.Failed()).
		Msg("operation applied")
	return res
}

// moveOne resolves, sanitizes and moves a single file, filling in out.
func (e *Engine) moveOne(ctx context.Context, op batch.Operation, out *FileOutcome) {
	name, err := e.fns.Sanitize(op.ResolvedName(out.From))
	if err != nil {
		out.Status = StatusFailed
		out.Err = &MoveError{From: out.From, Err: err}
		e.journal(func(j *journal.Journal) { j.RecordMove(op.ID, out.From, "", err) })
		return
	}
	out.To = filepath.Join(filepath.Dir(out.To), name)

	if err := e.fns.Move(ctx, out.From, out.To); err != nil {
		out.Status = StatusFailed
		out.Err = &MoveError{From: out.From, To: out.To, Err: err}
		logger.Get().Warn().Err(err).Str("from", out.From).Str("to", out.To).Msg("move failed")
	} else {
		out.Status = StatusSucceeded
		logger.Get().Debug().Str("from", out.From).Str("to", out.To).Msg("moved")
	}
	e.journal(func(j *journal.Journal) { j.RecordMove(op.ID, out.From, out.To, err) })
}

// moveTask is a chain of files sharing one target path. Its files move in
// order on a single worker, so the second one meets the first at the target
// and fails exactly as it would in a sequential run.
type moveTask struct {
	ctx  context.Context
	op   batch.Operation
	outs []*FileOutcome
	wg   *sync.WaitGroup
}

// moveParallel fans the moves of one operation out to the worker pool. Each
// task writes only its own outcome slots, so the report keeps file order no
// matter which move finishes first.
func (e *Engine) moveParallel(ctx context.Context, op batch.Operation, outcomes []FileOutcome) {
	pool, err := e.workerPool()
	var wg sync.WaitGroup
	for _, chain := range e.targetChains(op, outcomes) {
		if ctx.Err() != nil {
			for _, out := range chain {
				out.Status = StatusCancelled
			}
			continue
		}
		task := &moveTask{ctx: ctx, op: op, outs: chain, wg: &wg}
		wg.Add(1)
		if err != nil || pool.Invoke(task) != nil {
			e.runTask(task)
		}
	}
	wg.Wait()
}

// targetChains groups outcomes by the path they will move to, keeping file
// order inside each group. Paths are compared case-insensitively because
// the target filesystem may be.
func (e *Engine) targetChains(op batch.Operation, outcomes []FileOutcome) [][]*FileOutcome {
	var chains [][]*FileOutcome
	index := map[string]int{}
	for j := range outcomes {
		out := &outcomes[j]
		key := out.From
		if name, err := e.fns.Sanitize(op.ResolvedName(out.From)); err == nil {
			key = strings.ToLower(filepath.Join(filepath.Dir(out.To), name))
		}
		i, ok := index[key]
		if !ok {
			i = len(chains)
			index[key] = i
			chains = append(chains, nil)
		}
		chains[i] = append(chains[i], out)
	}
	return chains
}

func (e *Engine) runTask(task *moveTask) {
	defer task.wg.Done()
	for _, out := range task.outs {
		if task.ctx.Err() != nil {
			out.Status = StatusCancelled
			continue
		}
		e.moveOne(task.ctx, task.op, out)
	}
}

func (e *Engine) workerPool() (*ants.PoolWithFunc, error) {
	if e.pool != nil {
		return e.pool, nil
	}
	pool, err := ants.NewPoolWithFunc(e.cfg.Workers, func(arg any) {
		e.runTask(arg.(*moveTask))
	})
	if err != nil {
		logger.Get().Warn().Err(err).Int("workers", e.cfg.Workers).Msg("worker pool unavailable, moving sequentially")
		return nil, err
	}
	e.pool = pool
	return pool, nil
}

func (e *Engine) journal(fn func(*journal.Journal)) {
	if e.cfg.Journal != nil {
		fn(e.cfg.Journal)
	}
}

func (e *Engine) ensureJournalStarted() {
	if e.startedJournal || e.cfg.Journal == nil {
		return
	}
	e.startedJournal = true
	if err := e.cfg.Journal.Start(e.cfg.Command, e.cfg.CommandArgs); err != nil {
		fmt.Fprintf(e.cfg.Stderr, "Warning: Failed to start operation log: %v\n", err)
	}
}

func (e *Engine) finish() {
	if e.finished {
		return
	}
	e.finished = true
	if e.pool != nil {
		e.pool.Release()
		e.pool = nil
	}

	report := Report{Operations: e.results}
	for _, r := range e.results {
		if r.Status == StatusCancelled {
			report.Cancelled = true
		}
	}

	if e.startedJournal {
		path, err := e.cfg.Journal.End()
		if err != nil {
			fmt.Fprintf(e.cfg.Stderr, "Warning: Failed to save operation log: %v\n", err)
		}
		report.JournalPath = path
	}

	e.cfg.Policy.apply(e.cfg.Set, &report)
	e.report = report

	succeeded, failed, cancelled := report.FileCounts()
	logger.Get().Info().
		Bool("success", report.Success()).
		Int("moved", succeeded).
		Int("failed", failed).
		Int("cancelled", cancelled).
		Str("policy", string(report.Policy)).
		Bool("cleared", report.Cleared).
		Int("unfinished", report.Unfinished).
		Msg("apply finished")
}

func fileOutcomes(op batch.Operation, folder string, status Status) []FileOutcome {
	out := make([]FileOutcome, len(op.Files))
	for i, fd := range op.Files {
		to := ""
		if folder != "" {
			to = filepath.Join(folder, op.ResolvedName(fd.OriginalPath))
		}
		out[i] = FileOutcome{
			OperationID: op.ID,
			From:        fd.OriginalPath,
			To:          to,
			Status:      status,
		}
	}
	return out
}

func cancelledResult(i int, op batch.Operation) OperationResult {
	folder := op.TargetFolder()
	return OperationResult{
		OperationID:  op.ID,
		Index:        i + 1,
		TargetFolder: folder,
		Status:       StatusCancelled,
		Files:        fileOutcomes(op, folder, StatusCancelled),
	}
}

func operationStatus(outcomes []FileOutcome) Status {
	var succeeded, failed, cancelled int
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			succeeded++
		case StatusFailed:
			failed++
		case StatusCancelled:
			cancelled++
		}
	}
	switch {
	case cancelled > 0:
		return StatusCancelled
	case failed == 0:
		return StatusSucceeded
	case succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
