package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/detect"
	"github.com/benchwatch/benchwatch/pkg/history"
)

func TestFormatValue(t *testing.T) {
	cases := map[float64]string{
		2:        "2",
		100:      "100",
		2.5:      "2.50",
		1.666666: "1.67",
		0.25:     "0.25",
		0.05:     "0.05",
		0.001234: "0.001234",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatValue(in), "value %v", in)
	}
}

func sampleInput() Input {
	prev := bench.Run{
		Commit: bench.Commit{ID: "1111111deadbeef", URL: "https://github.com/acme/widget/commit/1111111deadbeef"},
		Tool:   bench.ToolGo,
		Date:   1700000000000,
		Benches: []bench.Result{
			{Name: "BenchmarkAlpha", Value: 100, Unit: "ns/op"},
			{Name: "BenchmarkBeta", Value: 50, Unit: "ns/op", Range: "±3%"},
		},
	}
	cur := bench.Run{
		Commit: bench.Commit{ID: "2222222cafebabe", URL: "https://github.com/acme/widget/commit/2222222cafebabe"},
		Tool:   bench.ToolGo,
		Benches: []bench.Result{
			{Name: "BenchmarkAlpha", Value: 250, Unit: "ns/op"},
			{Name: "BenchmarkBeta", Value: 50, Unit: "ns/op"},
		},
	}
	return Input{
		Suite: "Benchmark",
		Run:   cur,
		Result: history.AppendResult{
			Prior: []bench.Run{prev},
			Best:  map[string]bench.Result{"BenchmarkAlpha": {Name: "BenchmarkAlpha", Value: 90, Unit: "ns/op"}},
		},
		AlertThreshold: 2,
	}
}

func TestComparisonTable(t *testing.T) {
	body := Comparison(sampleInput())

	assert.Contains(t, body, "## Benchmark result: Benchmark")
	assert.Contains(t, body, "(previous run)")
	assert.Contains(t, body, "| Benchmark | Best | Previous | Current | Ratio |")
	// one row per metric of the current run.
	assert.Contains(t, body, "| `BenchmarkAlpha` | `90` ns/op | `100` ns/op | `250` ns/op | `2.50` |")
	assert.Contains(t, body, "`BenchmarkBeta`")
	assert.Contains(t, body, "(`±3%`)")
	// commit references are linked.
	assert.Contains(t, body, "[`2222222`](https://github.com/acme/widget/commit/2222222cafebabe)")
}

func TestComparisonHeaderForBestBaseline(t *testing.T) {
	in := sampleInput()
	in.CompareWithBest = true
	body := Comparison(in)
	assert.Contains(t, body, "(best recorded run)")
	assert.NotContains(t, body, "(previous run)")
}

func TestComparisonFirstRun(t *testing.T) {
	in := sampleInput()
	in.Result = history.AppendResult{}
	body := Comparison(in)
	assert.Contains(t, body, "First recorded run")
}

func TestAlertBodyListsOnlyFlaggedMetrics(t *testing.T) {
	in := sampleInput()
	in.Mentions = []string{"alice", "@bob"}
	in.Footer = "posted by the perf bot"
	alerts := []detect.Alert{{
		Current:  bench.Result{Name: "BenchmarkAlpha", Value: 250, Unit: "ns/op"},
		Baseline: bench.Result{Name: "BenchmarkAlpha", Value: 100, Unit: "ns/op"},
		Ratio:    2.5,
	}}

	body := AlertBody(in, alerts)
	assert.Contains(t, body, "# :warning: **Performance Alert** :warning:")
	assert.Contains(t, body, "benchmark **Benchmark**")
	assert.Contains(t, body, "threshold `2`")
	assert.Contains(t, body, "`BenchmarkAlpha`")
	assert.NotContains(t, body, "BenchmarkBeta", "unflagged metrics stay out of the alert")
	assert.Contains(t, body, "CC: @alice @bob")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "posted by the perf bot"))
}

func TestFailureSummaryNamesOnlyFailingMetrics(t *testing.T) {
	failing := []detect.Alert{{
		Current: bench.Result{Name: "BenchmarkGamma"},
		Ratio:   2.5,
	}}
	msg := FailureSummary(failing, 2.0)
	assert.Contains(t, msg, "1 benchmark(s)")
	assert.Contains(t, msg, "BenchmarkGamma (ratio 2.50)")
	assert.Contains(t, msg, "threshold 2")
}

func TestPrinterSummary(t *testing.T) {
	in := sampleInput()
	alerts := []detect.Alert{{
		Current:  bench.Result{Name: "BenchmarkAlpha", Value: 250, Unit: "ns/op"},
		Baseline: bench.Result{Name: "BenchmarkAlpha", Value: 100, Unit: "ns/op"},
		Ratio:    2.5,
	}}

	var buf bytes.Buffer
	NewPrinter(false).Summary(&buf, in, alerts, alerts)
	out := buf.String()

	require.NotEmpty(t, out)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "BenchmarkAlpha")
	assert.Contains(t, out, "2.50x")
	assert.Contains(t, out, `suite "Benchmark": 1 prior run(s)`)
}
