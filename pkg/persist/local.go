package persist

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/history"
	"github.com/benchwatch/benchwatch/pkg/logging"
)

// LocalFile persists history into a plain JSON file on disk. It has no
// concurrency protection: it serves the single-CI-job case where no branch
// is shared.
type LocalFile struct {
	// Path of the JSON document.
	Path string
	// Save controls whether the mutated document is written back. When
	// false the append still happens in memory and prior runs are
	// returned, for detection-only use.
	Save bool
	// MaxItems bounds each suite's retained runs; 0 means unbounded.
	MaxItems int
	// RepoURL is stored in the document on every write.
	RepoURL string
}

var _ Writer = (*LocalFile)(nil)

// Write appends run to the file's history and, when Save is set, rewrites
// the whole document in place.
func (l *LocalFile) Write(_ context.Context, suite string, run bench.Run) (history.AppendResult, error) {
	store := history.Load(l.Path)
	res := store.Append(suite, run, l.MaxItems, l.RepoURL)

	if !l.Save {
		logging.S().Debugw("save disabled, benchmark data file not written", "path", l.Path)
		return res, nil
	}

	if dir := filepath.Dir(l.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return history.AppendResult{}, errors.Wrapf(err, "unable to create data directory for %s", l.Path)
		}
	}
	if err := os.WriteFile(l.Path, store.Encode(false), 0o644); err != nil {
		return history.AppendResult{}, errors.Wrapf(err, "unable to write benchmark data file %s", l.Path)
	}
	logging.S().Infow("benchmark data file updated", "path", l.Path, "suite", suite)
	return res, nil
}
