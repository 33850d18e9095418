package journal

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
)

// UndoResult is the outcome of reverting one entry.
type UndoResult struct {
	Entry   Entry
	Success bool
	Skipped bool
	Error   error
}

// UndoEntry reverts a single successful entry on fs.
//
// A move is renamed back only when the moved file is still at its
// destination and nothing has taken its original place. A created folder is
// removed only when it is empty.
func UndoEntry(fs afero.Fs, e Entry) UndoResult {
	result := UndoResult{Entry: e}

	switch e.Type {
	case EntryMove:
		if e.SourcePath == "" || e.DestPath == "" {
			result.Error = fmt.Errorf("cannot undo move: path missing")
			return result
		}
		if _, err := fs.Stat(e.DestPath); os.IsNotExist(err) {
			result.Error = fmt.Errorf("cannot undo move: file %s not found", e.DestPath)
			return result
		}
		if _, err := fs.Stat(e.SourcePath); err == nil {
			result.Error = fmt.Errorf("cannot undo move: original path %s already exists", e.SourcePath)
			return result
		}
		if err := fs.Rename(e.DestPath, e.SourcePath); err != nil {
			result.Error = fmt.Errorf("failed to move %s back to %s: %w", e.DestPath, e.SourcePath, err)
			return result
		}
		result.Success = true

	case EntryCreateDir:
		if !e.Created {
			result.Skipped = true
			return result
		}
		info, err := fs.Stat(e.DestPath)
		if os.IsNotExist(err) {
			result.Success = true
			return result
		}
		if err != nil {
			result.Error = fmt.Errorf("failed to inspect %s: %w", e.DestPath, err)
			return result
		}
		if !info.IsDir() {
			result.Error = fmt.Errorf("path %s is not a directory", e.DestPath)
			return result
		}
		entries, err := afero.ReadDir(fs, e.DestPath)
		if err != nil {
			result.Error = fmt.Errorf("failed to read directory %s: %w", e.DestPath, err)
			return result
		}
		if len(entries) > 0 {
			result.Error = fmt.Errorf("cannot remove directory %s: not empty", e.DestPath)
			return result
		}
		if err := fs.Remove(e.DestPath); err != nil {
			result.Error = fmt.Errorf("failed to remove directory %s: %w", e.DestPath, err)
			return result
		}
		result.Success = true

	default:
		result.Error = fmt.Errorf("unknown entry type: %s", e.Type)
	}
	return result
}

// Undo reverts every successful entry of session in reverse order, so files
// leave a created folder before the folder itself is removed.
func (j *Journal) Undo(session *Session) []UndoResult {
	results := make([]UndoResult, 0, len(session.Entries))
	for i := len(session.Entries) - 1; i >= 0; i-- {
		e := session.Entries[i]
		if !e.Success {
			continue
		}
		results = append(results, UndoEntry(j.fs, e))
	}
	return results
}

// CountUndo tallies undo results.
func CountUndo(results []UndoResult) (successful, failed int, errs []error) {
	for _, r := range results {
		switch {
		case r.Skipped:
		case r.Success:
			successful++
		default:
			failed++
			if r.Error != nil {
				errs = append(errs, r.Error)
			}
		}
	}
	return successful, failed, errs
}

// FormatRelativeTime renders t relative to now for session listings.
func FormatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		return fmt.Sprintf("%d minute%s ago", mins, plural(mins))
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
