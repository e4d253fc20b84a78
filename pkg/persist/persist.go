// Package persist writes a benchmark run durably into per-suite history,
// either into a local JSON file or onto a shared git branch that other CI
// invocations may be writing at the same time.
package persist

import (
	"context"
	_ "embed"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/history"
)

// DefaultIndexHTML is the landing page placed next to the data file the
// first time a branch is written. It is created once and never overwritten,
// so downstream customizations survive.
//
//go:embed index.html
var DefaultIndexHTML []byte

// Syncer is the version-control capability the shared-branch backend
// consumes. Push must report a rejection caused by the remote advancing as
// vcs.ErrRemoteAdvanced; every other failure is treated as final.
type Syncer interface {
	Fetch(ctx context.Context, branch string) error
	Pull(ctx context.Context, branch string) error
	SwitchTo(branch string) error
	CheckoutPrevious() error
	Stage(paths ...string) error
	Commit(message string) error
	Reset(stepsBack int) error
	Push(ctx context.Context, branch string) error
	Dir() string
}

// Writer persists one run and returns the prior-runs view for detection.
type Writer interface {
	Write(ctx context.Context, suite string, run bench.Run) (history.AppendResult, error)
}
