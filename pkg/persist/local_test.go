package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchwatch/benchwatch/pkg/history"
)

func TestLocalFileWriteCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "benchmark", "data.json")
	l := &LocalFile{Path: path, Save: true, RepoURL: "https://github.com/acme/widget"}

	res, err := l.Write(context.Background(), "Benchmark", testRun("c1"))
	require.NoError(t, err)
	assert.Empty(t, res.Prior)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// the local backend writes plain JSON, no script marker.
	assert.Equal(t, byte('{'), data[0])

	store, err := history.Decode(data)
	require.NoError(t, err)
	assert.Len(t, store.Entries["Benchmark"], 1)
}

func TestLocalFileWriteAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	l := &LocalFile{Path: path, Save: true, RepoURL: "https://github.com/acme/widget"}

	_, err := l.Write(context.Background(), "Benchmark", testRun("c1"))
	require.NoError(t, err)
	res, err := l.Write(context.Background(), "Benchmark", testRun("c2"))
	require.NoError(t, err)

	require.Len(t, res.Prior, 1)
	assert.Equal(t, "c1", res.Prior[0].Commit.ID)
}

func TestLocalFileDryRunSkipsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	l := &LocalFile{Path: path, Save: false}

	_, err := l.Write(context.Background(), "Benchmark", testRun("c1"))
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalFileWriteFailureNamesTarget(t *testing.T) {
	dir := t.TempDir()
	// make the target path a directory so the write fails.
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.MkdirAll(path, 0o755))
	l := &LocalFile{Path: path, Save: true}

	_, err := l.Write(context.Background(), "Benchmark", testRun("c1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
