// Package detect compares a benchmark run against its history and decides
// which metrics regressed badly enough to alert on or to fail the build.
package detect

import (
	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/history"
)

// Alert flags one metric whose regression ratio crossed the alert
// threshold.
type Alert struct {
	Current  bench.Result
	Baseline bench.Result
	// Ratio is how many times worse Current is than Baseline, regardless
	// of the tool's ordering policy. Values > 1 mean regression.
	Ratio float64
}

// Options configure a detection pass.
type Options struct {
	// AlertThreshold is the ratio above which a metric is flagged.
	AlertThreshold float64
	// FailThreshold is the ratio above which a flagged metric fails the
	// build. Config validation guarantees FailThreshold >= AlertThreshold.
	FailThreshold float64
	// CompareWithBest selects the best-ever result as the baseline instead
	// of the previous run.
	CompareWithBest bool
}

// Ratio computes the degradation factor of current against baseline under
// the tool's ordering policy.
func Ratio(tool bench.Tool, current, baseline float64) float64 {
	if tool.BiggerIsBetter() {
		return baseline / current
	}
	return current / baseline
}

// FindAlerts scans every metric of run against the chosen baseline and
// returns one alert per metric whose ratio exceeds the alert threshold.
// Without a previous run there is nothing to compare: no alerts. Metrics
// absent from the baseline are new, not regressed, and are skipped.
func FindAlerts(run bench.Run, res history.AppendResult, opts Options) []Alert {
	prev := res.PreviousRun()
	if prev == nil {
		return nil
	}

	baseline := make(map[string]bench.Result)
	if opts.CompareWithBest {
		for name, b := range res.Best {
			baseline[name] = b
		}
	} else {
		for _, b := range prev.Benches {
			baseline[b.Name] = b
		}
	}

	var alerts []Alert
	for _, cur := range run.Benches {
		base, ok := baseline[cur.Name]
		if !ok {
			continue
		}
		ratio := Ratio(run.Tool, cur.Value, base.Value)
		if ratio > opts.AlertThreshold {
			alerts = append(alerts, Alert{Current: cur, Baseline: base, Ratio: ratio})
		}
	}
	return alerts
}

// Failing filters alerts down to the subset that crosses the fail
// threshold. A non-empty result is a fatal outcome for the caller.
func Failing(alerts []Alert, failThreshold float64) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Ratio > failThreshold {
			out = append(out, a)
		}
	}
	return out
}
