package reconcile

import (
	"fmt"
	"strings"
)

// Options controls whether and how reconciliation writes back to the store.
type Options struct {
	// DryRun compares only. It is the behavior when no update flag is set.
	DryRun bool
	// Update commits records whose references are all stable.
	Update bool
	// ForceUpdate commits records even when they reference records that are themselves changing.
	ForceUpdate bool
	// ParallelLoad reads the sheet and queries the store concurrently.
	ParallelLoad bool
}

// Validate rejects contradictory flags.
func (o Options) Validate() error {
	if o.DryRun && (o.Update || o.ForceUpdate) {
		return ErrConflictingOptions
	}
	return nil
}

// Commits reports whether the options allow store writes.
func (o Options) Commits() bool {
	return !o.DryRun && (o.Update || o.ForceUpdate)
}

// Mode names the options for logs and reports.
func (o Options) Mode() string {
	switch {
	case o.ForceUpdate:
		return "force"
	case o.Update:
		return "update"
	default:
		return "dry_run"
	}
}

// ParseMode returns the options named by mode: dry_run (or empty), update or force.
func ParseMode(mode string) (Options, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "dry_run", "dry-run":
		return Options{DryRun: true}, nil
	case "update":
		return Options{Update: true}, nil
	case "force":
		return Options{ForceUpdate: true}, nil
	default:
		return Options{}, fmt.Errorf("invalid mode %q, expected dry_run, update or force", mode)
	}
}
