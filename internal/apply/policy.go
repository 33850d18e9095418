package apply

import (
	"fmt"
	"strings"

	"github.com/Digital-Shane/batch-mover/internal/batch"
)

// ClearPolicy decides what happens to the operation set after a run.
type ClearPolicy string

const (
	// PolicyClearOnSuccess empties the set only when every file moved, and
	// leaves it untouched otherwise so the user can inspect and retry.
	// Operations skipped while still holding files are kept either way.
	PolicyClearOnSuccess ClearPolicy = "clear-on-success"
	// PolicyRemoveSucceeded drops the files that moved, prunes operations
	// left empty, and keeps failures in place for a retry.
	PolicyRemoveSucceeded ClearPolicy = "remove-succeeded"
	// PolicyKeep never changes the set.
	PolicyKeep ClearPolicy = "keep"
)

// Policies lists the accepted policy names.
var Policies = []ClearPolicy{PolicyClearOnSuccess, PolicyRemoveSucceeded, PolicyKeep}

// ParsePolicy maps a config or flag value to a ClearPolicy. An empty value
// selects the default.
func ParsePolicy(s string) (ClearPolicy, error) {
	switch ClearPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyClearOnSuccess:
		return PolicyClearOnSuccess, nil
	case PolicyRemoveSucceeded:
		return PolicyRemoveSucceeded, nil
	case PolicyKeep:
		return PolicyKeep, nil
	}
	return "", fmt.Errorf("invalid clear policy %q (must be one of %v)", s, Policies)
}

// apply mutates set according to the policy and records what it did on r.
// A cancelled run is never cleared; under remove-succeeded the files that
// did move are still dropped because they no longer exist at their old path.
func (p ClearPolicy) apply(set *batch.Set, r *Report) {
	r.Policy = p
	if set == nil {
		return
	}
	switch p {
	case PolicyClearOnSuccess:
		if r.Success() {
			r.Unfinished = clearFinished(set, r)
			r.Cleared = set.Len() == 0
		}
	case PolicyRemoveSucceeded:
		r.Removed = set.RemovePaths(r.Moved())
		r.Cleared = set.Len() == 0
	}
}

// clearFinished removes the operations this run handled, except skipped ones
// that still hold files, and returns how many of those were kept.
func clearFinished(set *batch.Set, r *Report) int {
	status := map[string]Status{}
	for _, op := range r.Operations {
		status[op.OperationID] = op.Status
	}
	kept := 0
	for _, op := range set.Snapshot() {
		st, handled := status[op.ID]
		if !handled {
			continue
		}
		if st == StatusSkipped && len(op.Files) > 0 {
			kept++
			continue
		}
		set.Remove(op.ID)
	}
	return kept
}
