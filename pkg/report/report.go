// Package report renders comparison tables and alert bodies from detector
// output. Everything here is pure text construction; posting and printing
// belong to the callers.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/detect"
	"github.com/benchwatch/benchwatch/pkg/history"
)

// Input bundles everything the builders need to render one run.
type Input struct {
	Suite           string
	Run             bench.Run
	Result          history.AppendResult
	CompareWithBest bool
	AlertThreshold  float64
	Mentions        []string // accounts to cc on alerts, without the @
	Footer          string   // optional trailer appended to every body
}

func (in Input) baselineLabel() string {
	if in.CompareWithBest {
		return "best recorded run"
	}
	return "previous run"
}

// FormatValue renders a metric value under the fixed precision policy:
// integers unformatted, values above 0.1 rounded to two decimals, smaller
// values at full precision.
func FormatValue(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v > 0.1 {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatResult(b bench.Result) string {
	s := fmt.Sprintf("`%s` %s", FormatValue(b.Value), b.Unit)
	if b.Range != "" {
		s += fmt.Sprintf(" (`%s`)", b.Range)
	}
	return s
}

func shortSHA(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}

func commitRef(c bench.Commit) string {
	if c.URL != "" {
		return fmt.Sprintf("[`%s`](%s)", shortSHA(c.ID), c.URL)
	}
	return fmt.Sprintf("`%s`", shortSHA(c.ID))
}

// Comparison renders the routine report: one row per metric with the best,
// previous and current values and the regression ratio against the chosen
// baseline.
func Comparison(in Input) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Benchmark result: %s\n\n", in.Suite)

	prev := in.Result.PreviousRun()
	if prev != nil {
		fmt.Fprintf(&sb, "Comparing %s with %s (%s).\n\n", commitRef(in.Run.Commit), commitRef(prev.Commit), in.baselineLabel())
	} else {
		fmt.Fprintf(&sb, "First recorded run for this suite at %s; nothing to compare against yet.\n\n", commitRef(in.Run.Commit))
	}

	sb.WriteString("| Benchmark | Best | Previous | Current | Ratio |\n")
	sb.WriteString("|-|-|-|-|-|\n")
	for _, cur := range in.Run.Benches {
		best := "-"
		if b, ok := in.Result.Best[cur.Name]; ok {
			best = formatResult(b)
		}
		prevCell, ratio := "-", "-"
		if prev != nil {
			if p := prev.Find(cur.Name); p != nil {
				prevCell = formatResult(*p)
			}
		}
		if base, ok := baselineFor(in, cur.Name); ok {
			ratio = "`" + FormatValue(detect.Ratio(in.Run.Tool, cur.Value, base.Value)) + "`"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | %s |\n",
			cur.Name, best, prevCell, formatResult(cur), ratio)
	}

	appendFooter(&sb, in.Footer)
	return sb.String()
}

// AlertBody renders the regression alert: only the flagged metrics, with a
// lead sentence naming the suite and the crossed threshold.
func AlertBody(in Input, alerts []detect.Alert) string {
	var sb strings.Builder
	sb.WriteString("# :warning: **Performance Alert** :warning:\n\n")
	fmt.Fprintf(&sb, "Possible performance regression was detected for benchmark **%s**.\n", in.Suite)
	fmt.Fprintf(&sb, "Benchmark result of this commit is worse than the %s exceeding threshold `%s`.\n\n",
		in.baselineLabel(), FormatValue(in.AlertThreshold))

	prevSHA := ""
	if prev := in.Result.PreviousRun(); prev != nil {
		prevSHA = shortSHA(prev.Commit.ID)
	}
	baseHeader := fmt.Sprintf("Previous: `%s`", prevSHA)
	if in.CompareWithBest {
		baseHeader = "Best"
	}
	fmt.Fprintf(&sb, "| Benchmark suite | Current: `%s` | %s | Ratio |\n", shortSHA(in.Run.Commit.ID), baseHeader)
	sb.WriteString("|-|-|-|-|\n")
	for _, a := range alerts {
		fmt.Fprintf(&sb, "| `%s` | %s | %s | `%s` |\n",
			a.Current.Name, formatResult(a.Current), formatResult(a.Baseline), FormatValue(a.Ratio))
	}

	if len(in.Mentions) > 0 {
		handles := make([]string, len(in.Mentions))
		for i, m := range in.Mentions {
			handles[i] = "@" + strings.TrimPrefix(m, "@")
		}
		fmt.Fprintf(&sb, "\nCC: %s\n", strings.Join(handles, " "))
	}

	appendFooter(&sb, in.Footer)
	return sb.String()
}

// FailureSummary names the metrics that crossed the fail threshold, for use
// as the terminal error of a failed invocation.
func FailureSummary(failing []detect.Alert, failThreshold float64) string {
	names := make([]string, len(failing))
	for i, a := range failing {
		names[i] = fmt.Sprintf("%s (ratio %s)", a.Current.Name, FormatValue(a.Ratio))
	}
	return fmt.Sprintf("%d benchmark(s) regressed beyond the failure threshold %s: %s",
		len(failing), FormatValue(failThreshold), strings.Join(names, ", "))
}

func baselineFor(in Input, name string) (bench.Result, bool) {
	if in.CompareWithBest {
		b, ok := in.Result.Best[name]
		return b, ok
	}
	prev := in.Result.PreviousRun()
	if prev == nil {
		return bench.Result{}, false
	}
	if p := prev.Find(name); p != nil {
		return *p, true
	}
	return bench.Result{}, false
}

func appendFooter(sb *strings.Builder, footer string) {
	if footer != "" {
		fmt.Fprintf(sb, "\n%s\n", footer)
	}
}
