package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchwatch/benchwatch/pkg/bench"
)

const goOutput = `goos: linux
goarch: amd64
pkg: github.com/acme/widget
BenchmarkFib10-8         3000000               325 ns/op
BenchmarkDecode-8         500000              2845 ns/op             512 B/op          7 allocs/op
BenchmarkEncode          1000000              1024.5 ns/op
PASS
ok      github.com/acme/widget  4.911s
`

func TestGoBenchOutput(t *testing.T) {
	res, err := Output(bench.ToolGo, strings.NewReader(goOutput))
	require.NoError(t, err)

	byName := make(map[string]bench.Result)
	for _, r := range res {
		byName[r.Name] = r
	}

	fib := byName["BenchmarkFib10"]
	assert.Equal(t, 325.0, fib.Value)
	assert.Equal(t, "ns/op", fib.Unit)
	assert.Equal(t, "3000000 times", fib.Extra)

	assert.Equal(t, 1024.5, byName["BenchmarkEncode"].Value)

	// memory columns become their own entries.
	assert.Equal(t, 512.0, byName["BenchmarkDecode - B/op"].Value)
	assert.Equal(t, 7.0, byName["BenchmarkDecode - allocs/op"].Value)
}

func TestGoBenchNoResults(t *testing.T) {
	_, err := Output(bench.ToolGo, strings.NewReader("PASS\nok 0.01s\n"))
	assert.Error(t, err)
}

func TestCustomJSON(t *testing.T) {
	in := `[
		{"name": "throughput", "value": 1500, "unit": "ops/sec", "range": "±2%"},
		{"name": "p99", "value": 12.5, "unit": "ms"}
	]`
	res, err := Output(bench.ToolCustomBiggerIsBetter, strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "±2%", res[0].Range)
}

func TestCustomJSONRejectsDuplicates(t *testing.T) {
	in := `[{"name":"a","value":1,"unit":"x"},{"name":"a","value":2,"unit":"x"}]`
	_, err := Output(bench.ToolCustomSmallerIsBetter, strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestCustomJSONRequiresUnit(t *testing.T) {
	_, err := Output(bench.ToolCustomSmallerIsBetter, strings.NewReader(`[{"name":"a","value":1}]`))
	assert.Error(t, err)
}

func TestOutputUnknownExtractor(t *testing.T) {
	_, err := Output(bench.ToolCargo, strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractor")
}

func TestFilesGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bench1.txt"), []byte("BenchmarkA-4 100 10 ns/op\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bench2.txt"), []byte("BenchmarkB-4 100 20 ns/op\n"), 0o644))

	res, err := Files(bench.ToolGo, []string{filepath.Join(dir, "*.txt")})
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestFilesNoMatch(t *testing.T) {
	_, err := Files(bench.ToolGo, []string{filepath.Join(t.TempDir(), "*.out")})
	assert.Error(t, err)
}
