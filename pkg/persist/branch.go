package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/history"
	"github.com/benchwatch/benchwatch/pkg/logging"
	"github.com/benchwatch/benchwatch/pkg/vcs"
)

// DefaultMaxRetries bounds the push-rejection retry loop.
const DefaultMaxRetries = 10

// Branch persists history onto a git branch shared with other CI
// invocations. Conflicting writers are detected at push time and resolved
// by rolling the local commit back and re-reading the advanced remote tip,
// up to MaxRetries attempts. Git has no transaction primitive; this is
// optimistic concurrency with the push as the compare-and-swap.
type Branch struct {
	Git Syncer
	// Name of the shared branch, e.g. "benchmark-data".
	Name string
	// DataPath is the data file's path relative to the worktree root.
	DataPath string
	// MaxItems bounds each suite's retained runs; 0 means unbounded.
	MaxItems int
	// RepoURL is stored in the document on every write.
	RepoURL string
	// SkipFetch suppresses the initial fetch and the per-attempt pull.
	SkipFetch bool
	// AutoPush publishes each commit; when false the commit is left local
	// and the caller pushes later.
	AutoPush bool
	// MaxRetries overrides DefaultMaxRetries when > 0.
	MaxRetries int
}

var _ Writer = (*Branch)(nil)

// Write runs the three-step remote protocol: fetch-or-skip, switch to the
// shared branch, do the bounded append-commit-push loop, and restore the
// original checkout no matter how the middle went.
func (b *Branch) Write(ctx context.Context, suite string, run bench.Run) (history.AppendResult, error) {
	if !b.SkipFetch {
		switch err := b.Git.Fetch(ctx, b.Name); {
		case err == nil:
		case errors.Is(err, vcs.ErrBranchNotFound):
			logging.S().Debugw("remote branch does not exist yet", "branch", b.Name)
		case errors.Is(err, vcs.ErrAuthRequired):
			// A private repository without a token: proceed on the local
			// state and surface the problem at push time if it matters.
			logging.S().Warnw("fetch requires credentials; continuing with local state",
				"branch", b.Name, "err", err)
		default:
			return history.AppendResult{}, err
		}
	}

	if err := b.Git.SwitchTo(b.Name); err != nil {
		return history.AppendResult{}, err
	}

	res, err := b.writeOnBranch(ctx, suite, run)

	// The branch switch must be undone even on error paths.
	if rerr := b.Git.CheckoutPrevious(); rerr != nil {
		if err == nil {
			err = rerr
		} else {
			logging.S().Errorw("unable to restore original checkout", "err", rerr)
		}
	}
	return res, err
}

func (b *Branch) writeOnBranch(ctx context.Context, suite string, run bench.Run) (history.AppendResult, error) {
	retries := b.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if !b.SkipFetch {
			if err := b.Git.Pull(ctx, b.Name); err != nil {
				return history.AppendResult{}, err
			}
		}

		dataFile := filepath.Join(b.Git.Dir(), b.DataPath)
		store := history.Load(dataFile)
		res := store.Append(suite, run, b.MaxItems, b.RepoURL)

		if dir := filepath.Dir(dataFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return history.AppendResult{}, errors.Wrapf(err, "unable to create data directory for %s", dataFile)
			}
		}
		if err := os.WriteFile(dataFile, store.Encode(true), 0o644); err != nil {
			return history.AppendResult{}, errors.Wrapf(err, "unable to write benchmark data file %s", dataFile)
		}

		staged := []string{b.DataPath}
		if p, err := b.ensureIndexPage(dataFile); err != nil {
			return history.AppendResult{}, err
		} else if p != "" {
			staged = append(staged, p)
		}

		if err := b.Git.Stage(staged...); err != nil {
			return history.AppendResult{}, err
		}
		msg := fmt.Sprintf("add %s (%s) benchmark result for %s", suite, run.Tool, run.Commit.ID)
		if err := b.Git.Commit(msg); err != nil {
			return history.AppendResult{}, err
		}

		if !b.AutoPush {
			logging.S().Infow("benchmark result committed; auto-push disabled", "branch", b.Name)
			return res, nil
		}

		err := b.Git.Push(ctx, b.Name)
		if err == nil {
			logging.S().Infow("benchmark result pushed", "branch", b.Name, "suite", suite, "attempt", attempt)
			return res, nil
		}
		if !errors.Is(err, vcs.ErrRemoteAdvanced) {
			return history.AppendResult{}, err
		}

		// Another writer got there first. Discard our commit and remerge
		// against the advanced tip.
		lastErr = err
		logging.S().Debugw("push rejected, rolling back and retrying",
			"branch", b.Name, "attempt", attempt, "err", err)
		if err := b.Git.Reset(1); err != nil {
			return history.AppendResult{}, err
		}
	}

	return history.AppendResult{}, errors.Wrapf(lastErr,
		"unable to push to branch %s: retry budget of %d attempts exhausted", b.Name, retries)
}

// ensureIndexPage drops the default landing page next to the data file the
// first time the branch is written. Returns the staged-relative path when a
// page was created.
func (b *Branch) ensureIndexPage(dataFile string) (string, error) {
	page := filepath.Join(filepath.Dir(dataFile), "index.html")
	if _, err := os.Stat(page); err == nil {
		return "", nil
	}
	if err := os.WriteFile(page, DefaultIndexHTML, 0o644); err != nil {
		return "", errors.Wrapf(err, "unable to write default index page %s", page)
	}
	logging.S().Infow("default index page created", "path", page)
	return filepath.Join(filepath.Dir(b.DataPath), "index.html"), nil
}
