package apply

import (
	"fmt"
	"strings"
)

// Status is the outcome of a file move or of a whole operation.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusPartial marks an operation where some files moved and some failed.
	StatusPartial Status = "partial"
	// StatusSkipped marks an operation that was not eligible (no files or no
	// destination), or a file never attempted because its folder could not
	// be created.
	StatusSkipped      Status = "skipped"
	StatusFolderFailed Status = "folder-failed"
	StatusCancelled    Status = "cancelled"
)

// FolderCreateError is the operation-level failure to create a target folder.
type FolderCreateError struct {
	Folder string
	Err    error
}

func (e *FolderCreateError) Error() string {
	return fmt.Sprintf("create folder %s: %v", e.Folder, e.Err)
}

func (e *FolderCreateError) Unwrap() error { return e.Err }

// MoveError is the file-level failure to move one file.
type MoveError struct {
	From string
	To   string
	Err  error
}

func (e *MoveError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("move %s: %v", e.From, e.Err)
	}
	return fmt.Sprintf("move %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

// FileOutcome records what happened to one file.
type FileOutcome struct {
	OperationID string
	From        string
	To          string
	Status      Status
	Err         error
}

// OperationResult records what happened to one operation and its files.
type OperationResult struct {
	OperationID  string
	Index        int // 1-based position in the set at apply time
	TargetFolder string
	Status       Status
	// SkipReason explains StatusSkipped, e.g. batch.ErrNoDestination.
	SkipReason error
	// Err is the *FolderCreateError behind StatusFolderFailed.
	Err   error
	Files []FileOutcome
}

func (r OperationResult) count(status Status) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// Succeeded returns the number of files moved.
func (r OperationResult) Succeeded() int { return r.count(StatusSucceeded) }

// Failed returns the number of files that could not be moved.
func (r OperationResult) Failed() int { return r.count(StatusFailed) }

// Failure is one line of the failure list shown to the user.
type Failure struct {
	OperationID string
	Path        string
	Target      string
	Reason      string
}

// Report is the structured result of an apply run. The engine always
// returns one, whatever failed.
type Report struct {
	Operations []OperationResult
	Cancelled  bool
	Policy     ClearPolicy
	// Cleared is true when the policy emptied the set.
	Cleared bool
	// Removed counts files dropped from the set by the remove-succeeded
	// policy.
	Removed int
	// Unfinished counts skipped operations with files that clear-on-success
	// left in the set.
	Unfinished int
	// JournalPath is the session file written for this run, if any.
	JournalPath string
}

// Success reports whether every attempted file in every eligible operation
// moved. Skipped operations do not count against it.
func (r Report) Success() bool {
	if r.Cancelled {
		return false
	}
	for _, op := range r.Operations {
		if op.Status != StatusSucceeded && op.Status != StatusSkipped {
			return false
		}
	}
	return true
}

// FileCounts tallies file outcomes across the report.
func (r Report) FileCounts() (succeeded, failed, cancelled int) {
	for _, op := range r.Operations {
		succeeded += op.count(StatusSucceeded)
		failed += op.count(StatusFailed)
		cancelled += op.count(StatusCancelled)
	}
	return succeeded, failed, cancelled
}

// Attempted returns the number of files a move was issued for.
func (r Report) Attempted() int {
	s, f, _ := r.FileCounts()
	return s + f
}

// Skipped returns the operations that were not eligible.
func (r Report) Skipped() []OperationResult {
	var out []OperationResult
	for _, op := range r.Operations {
		if op.Status == StatusSkipped {
			out = append(out, op)
		}
	}
	return out
}

// Failures lists folder and file failures in processing order.
func (r Report) Failures() []Failure {
	var out []Failure
	for _, op := range r.Operations {
		if op.Status == StatusFolderFailed && op.Err != nil {
			out = append(out, Failure{
				OperationID: op.OperationID,
				Path:        op.TargetFolder,
				Reason:      op.Err.Error(),
			})
		}
		for _, f := range op.Files {
			if f.Status != StatusFailed {
				continue
			}
			reason := ""
			if f.Err != nil {
				reason = f.Err.Error()
			}
			out = append(out, Failure{
				OperationID: f.OperationID,
				Path:        f.From,
				Target:      f.To,
				Reason:      reason,
			})
		}
	}
	return out
}

// Moved returns the original paths of moved files keyed by operation id.
func (r Report) Moved() map[string][]string {
	out := map[string][]string{}
	for _, op := range r.Operations {
		for _, f := range op.Files {
			if f.Status == StatusSucceeded {
				out[op.OperationID] = append(out[op.OperationID], f.From)
			}
		}
	}
	return out
}

// Summary is a one-line description suitable for a status bar.
func (r Report) Summary() string {
	succeeded, failed, cancelled := r.FileCounts()
	total := succeeded + failed + cancelled
	var b strings.Builder
	fmt.Fprintf(&b, "moved %d of %d file%s", succeeded, total, plural(total))
	if failed > 0 {
		fmt.Fprintf(&b, ", %d failed", failed)
	}
	if n := folderFailures(r); n > 0 {
		fmt.Fprintf(&b, ", %d folder%s could not be created", n, plural(n))
	}
	if n := len(r.Skipped()); n > 0 {
		fmt.Fprintf(&b, ", %d operation%s skipped", n, plural(n))
	}
	if r.Cancelled {
		b.WriteString(", cancelled")
	}
	return b.String()
}

func folderFailures(r Report) int {
	n := 0
	for _, op := range r.Operations {
		if op.Status == StatusFolderFailed {
			n++
		}
	}
	return n
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
