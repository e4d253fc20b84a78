package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/history"
	"github.com/benchwatch/benchwatch/pkg/vcs"
)

// fakeSyncer simulates the shared branch with a plain directory. Pushing
// "publishes" the data file into remote; a scripted rejection simulates a
// concurrent writer, in which case the remote content is refreshed so the
// next pull observes the advanced tip.
type fakeSyncer struct {
	t   *testing.T
	dir string

	// remote state: contents of the data file on the remote tip.
	remote []byte
	// rejections to serve before pushes start succeeding. -1 rejects
	// forever.
	rejections int
	// content the concurrent writer put on the remote with each rejection.
	interloper func(attempt int) []byte

	pushErr error // non-rejection push failure, served once

	fetches, pulls, stages, commits, resets, pushes int
	switched, restored                              bool
}

func (f *fakeSyncer) Dir() string { return f.dir }

func (f *fakeSyncer) Fetch(context.Context, string) error { f.fetches++; return nil }

func (f *fakeSyncer) Pull(context.Context, string) error {
	f.pulls++
	path := filepath.Join(f.dir, "data.js")
	if f.remote == nil {
		os.Remove(path)
		return nil
	}
	return os.WriteFile(path, f.remote, 0o644)
}

func (f *fakeSyncer) SwitchTo(string) error      { f.switched = true; return nil }
func (f *fakeSyncer) CheckoutPrevious() error    { f.restored = true; return nil }
func (f *fakeSyncer) Stage(...string) error      { f.stages++; return nil }
func (f *fakeSyncer) Commit(string) error        { f.commits++; return nil }
func (f *fakeSyncer) Reset(stepsBack int) error {
	require.Equal(f.t, 1, stepsBack, "rollback is always one commit")
	f.resets++
	return nil
}

func (f *fakeSyncer) Push(context.Context, string) error {
	f.pushes++
	if f.pushErr != nil {
		err := f.pushErr
		f.pushErr = nil
		return err
	}
	if f.rejections != 0 {
		if f.rejections > 0 {
			f.rejections--
		}
		if f.interloper != nil {
			f.remote = f.interloper(f.pushes)
		}
		return errors.Wrap(vcs.ErrRemoteAdvanced, "simulated concurrent writer")
	}
	data, err := os.ReadFile(filepath.Join(f.dir, "data.js"))
	if err != nil {
		return err
	}
	f.remote = data
	return nil
}

func testRun(commit string) bench.Run {
	return bench.Run{
		Commit: bench.Commit{ID: commit},
		Tool:   bench.ToolGo,
		Date:   1700000000000,
		Benches: []bench.Result{
			{Name: "BenchmarkAlpha", Value: 100, Unit: "ns/op"},
		},
	}
}

func newBranch(f *fakeSyncer) *Branch {
	return &Branch{
		Git:      f,
		Name:     "benchmark-data",
		DataPath: "data.js",
		RepoURL:  "https://github.com/acme/widget",
		AutoPush: true,
	}
}

func TestBranchWriteFirstRun(t *testing.T) {
	f := &fakeSyncer{t: t, dir: t.TempDir()}
	b := newBranch(f)

	res, err := b.Write(context.Background(), "Benchmark", testRun("c1"))
	require.NoError(t, err)
	assert.Empty(t, res.Prior)
	assert.Equal(t, 1, f.pushes)
	assert.True(t, f.switched)
	assert.True(t, f.restored)

	// The remote now carries the script-form document.
	store, err := history.Decode(f.remote)
	require.NoError(t, err)
	assert.Len(t, store.Entries["Benchmark"], 1)

	// And the default landing page was created next to it.
	_, err = os.Stat(filepath.Join(f.dir, "index.html"))
	assert.NoError(t, err)
}

func TestBranchWriteRetriesOnRejection(t *testing.T) {
	f := &fakeSyncer{t: t, dir: t.TempDir(), rejections: 2}
	// each rejection means a concurrent writer appended a run for another
	// suite; the winning read must observe it.
	f.interloper = func(attempt int) []byte {
		s := history.Empty()
		for i := 0; i < attempt; i++ {
			s.Append("Other", testRun("x"), 0, "https://github.com/acme/widget")
		}
		return s.Encode(true)
	}
	b := newBranch(f)

	res, err := b.Write(context.Background(), "Benchmark", testRun("c1"))
	require.NoError(t, err)

	// rejected twice, rolled back twice, succeeded on the third attempt.
	assert.Equal(t, 3, f.pushes)
	assert.Equal(t, 2, f.resets)
	assert.Equal(t, 3, f.commits)
	assert.True(t, f.restored)

	// prior runs come from the read that succeeded alongside the winning
	// push: our suite was still empty there.
	assert.Empty(t, res.Prior)

	// the merged document carries the interloper's runs plus ours.
	store, err := history.Decode(f.remote)
	require.NoError(t, err)
	assert.Len(t, store.Entries["Other"], 2)
	assert.Len(t, store.Entries["Benchmark"], 1)
}

func TestBranchWriteExhaustsRetryBudget(t *testing.T) {
	f := &fakeSyncer{t: t, dir: t.TempDir(), rejections: -1}
	b := newBranch(f)
	b.MaxRetries = 3

	_, err := b.Write(context.Background(), "Benchmark", testRun("c1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, vcs.ErrRemoteAdvanced))
	assert.Contains(t, err.Error(), "benchmark-data")
	assert.Contains(t, err.Error(), "3 attempts")
	assert.Equal(t, 3, f.pushes)
	assert.Equal(t, 3, f.resets)
	assert.True(t, f.restored, "checkout restored on the failure path too")
}

func TestBranchWriteNonRejectionPushFailureIsFinal(t *testing.T) {
	f := &fakeSyncer{t: t, dir: t.TempDir(), pushErr: errors.New("remote: permission denied")}
	b := newBranch(f)

	_, err := b.Write(context.Background(), "Benchmark", testRun("c1"))
	require.Error(t, err)
	assert.Equal(t, 1, f.pushes)
	assert.Zero(t, f.resets, "no rollback for non-rejection failures")
	assert.True(t, f.restored)
}

func TestBranchWriteAutoPushDisabled(t *testing.T) {
	f := &fakeSyncer{t: t, dir: t.TempDir()}
	b := newBranch(f)
	b.AutoPush = false

	_, err := b.Write(context.Background(), "Benchmark", testRun("c1"))
	require.NoError(t, err)
	assert.Zero(t, f.pushes)
	assert.Equal(t, 1, f.commits)
}

func TestBranchWriteSkipFetch(t *testing.T) {
	f := &fakeSyncer{t: t, dir: t.TempDir()}
	b := newBranch(f)
	b.SkipFetch = true

	_, err := b.Write(context.Background(), "Benchmark", testRun("c1"))
	require.NoError(t, err)
	assert.Zero(t, f.fetches)
	assert.Zero(t, f.pulls)
}

func TestBranchWriteIndexPageNotOverwritten(t *testing.T) {
	f := &fakeSyncer{t: t, dir: t.TempDir()}
	custom := []byte("<html>custom dashboard</html>")
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "index.html"), custom, 0o644))
	b := newBranch(f)

	_, err := b.Write(context.Background(), "Benchmark", testRun("c1"))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(f.dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}
