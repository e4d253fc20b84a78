// Package bench holds the normalized benchmark data model shared by every
// other package: tools, results, commits and runs.
package bench

// Tool identifies the benchmark harness that produced a run. The set is
// closed; values outside it are rejected during config validation, so the
// rest of the code treats a Tool as already vetted.
type Tool string

const (
	ToolCargo           Tool = "cargo"
	ToolGo              Tool = "go"
	ToolBenchmarkJS     Tool = "benchmarkjs"
	ToolPytest          Tool = "pytest"
	ToolGoogleCpp       Tool = "googlecpp"
	ToolCatch2          Tool = "catch2"
	ToolJulia           Tool = "julia"
	ToolJMH             Tool = "jmh"
	ToolBenchmarkDotNet Tool = "benchmarkdotnet"

	// Synthetic tools for pre-normalized results whose ordering is declared
	// directly rather than implied by a harness.
	ToolCustomBiggerIsBetter  Tool = "customBiggerIsBetter"
	ToolCustomSmallerIsBetter Tool = "customSmallerIsBetter"
)

// Tools enumerates every valid tool identifier.
func Tools() []Tool {
	return []Tool{
		ToolCargo,
		ToolGo,
		ToolBenchmarkJS,
		ToolPytest,
		ToolGoogleCpp,
		ToolCatch2,
		ToolJulia,
		ToolJMH,
		ToolBenchmarkDotNet,
		ToolCustomBiggerIsBetter,
		ToolCustomSmallerIsBetter,
	}
}

// Valid reports whether t is a member of the closed tool set.
func (t Tool) Valid() bool {
	for _, k := range Tools() {
		if t == k {
			return true
		}
	}
	return false
}

// BiggerIsBetter is the metric ordering policy: it reports whether a larger
// value represents an improvement for results produced by this tool.
// Throughput-style harnesses (ops/sec) score up; everything else measures
// time or allocations and scores down.
func (t Tool) BiggerIsBetter() bool {
	return t == ToolBenchmarkJS || t == ToolCustomBiggerIsBetter
}

// Result is a single named measurement within a run. Immutable once
// recorded.
type Result struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Range string  `json:"range,omitempty"`
	Extra string  `json:"extra,omitempty"`
}

// Actor is the author or committer of a commit.
type Actor struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Commit captures the metadata of the commit a run was measured at.
type Commit struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // epoch millis
	URL       string `json:"url,omitempty"`
	Author    Actor  `json:"author"`
	Committer Actor  `json:"committer,omitempty"`
}

// Run is one measured snapshot of a suite at a specific commit. It is the
// atomic unit appended to history and is never mutated after creation.
type Run struct {
	Commit  Commit   `json:"commit"`
	Tool    Tool     `json:"tool"`
	Date    int64    `json:"date"` // epoch millis of the recording
	Benches []Result `json:"benches"`
}

// Find returns the result with the given name, or nil.
func (r *Run) Find(name string) *Result {
	for i := range r.Benches {
		if r.Benches[i].Name == name {
			return &r.Benches[i]
		}
	}
	return nil
}
