// Package history implements the append-only, bounded-retention time series
// of benchmark runs, keyed by suite name, together with its serialized form.
package history

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/logging"
)

// DataMarker prefixes the serialized store on the git-backed path, so the
// data file doubles as a browser script assigning the document to a
// well-known variable. Readers must strip this exact prefix before parsing.
const DataMarker = "window.BENCHMARK_DATA = "

// Store is the root document: the full benchmark history of a repository.
// One load/mutate/persist cycle per invocation; there is no long-lived
// instance.
type Store struct {
	LastUpdate int64                  `json:"lastUpdate"` // epoch millis of last successful write
	RepoURL    string                 `json:"repoUrl"`
	Entries    map[string][]bench.Run `json:"entries"` // suite name -> chronological runs
}

// AppendResult carries the two derived views the detector needs: the runs
// recorded before this append (deduplicated by commit id) and the best value
// seen so far for each metric in the new run.
type AppendResult struct {
	// Prior holds the suite's pre-append runs whose commit id differs from
	// the appended run's, so a re-run of the same commit does not shift the
	// comparison baseline. Empty for a suite's first run.
	Prior []bench.Run

	// Best maps each metric name in the appended run to the best result
	// (per the tool's ordering policy) among all pre-append runs, including
	// runs of the same commit.
	Best map[string]bench.Result
}

// PreviousRun returns the comparison baseline: the most recently recorded
// prior run, or nil if the suite had no history.
func (r AppendResult) PreviousRun() *bench.Run {
	if len(r.Prior) == 0 {
		return nil
	}
	return &r.Prior[len(r.Prior)-1]
}

// clock is swapped out by tests.
var clock = time.Now

// Empty returns the well-defined first-run state.
func Empty() *Store {
	return &Store{Entries: make(map[string][]bench.Run)}
}

// Decode parses a serialized store. A leading DataMarker is stripped if
// present, so both the plain-JSON and the browser-script forms are accepted.
func Decode(data []byte) (*Store, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte(DataMarker))
	s := Empty()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Entries == nil {
		s.Entries = make(map[string][]bench.Run)
	}
	return s, nil
}

// Encode serializes the store. When marker is set the output is the
// browser-script form written to the shared branch; otherwise plain JSON.
func (s *Store) Encode(marker bool) []byte {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		// The store contains only JSON-encodable types.
		panic(err)
	}
	if marker {
		out = append([]byte(DataMarker), out...)
		out = append(out, '\n')
	}
	return out
}

// Load reads a store from path. Absence of prior history is the expected
// first-run state, not an error: a missing or unparseable file yields the
// empty default.
func Load(path string) *Store {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.S().Debugw("no benchmark data file, starting fresh", "path", path, "reason", err)
		return Empty()
	}
	s, err := Decode(data)
	if err != nil {
		logging.S().Warnw("malformed benchmark data file, starting fresh", "path", path, "err", err)
		return Empty()
	}
	return s
}

// Append merges run into the suite's history and returns the prior-runs
// view for regression detection. The stored sequence keeps same-commit
// re-runs; only the returned Prior list filters them out. When maxItems > 0
// and the sequence grows beyond it, the oldest runs are dropped from the
// front. LastUpdate and RepoURL are refreshed on every call.
func (s *Store) Append(suite string, run bench.Run, maxItems int, repoURL string) AppendResult {
	existing := s.Entries[suite]

	res := AppendResult{Best: bestOf(run, existing)}
	for _, prev := range existing {
		if prev.Commit.ID != run.Commit.ID {
			res.Prior = append(res.Prior, prev)
		}
	}

	seq := append(existing, run)
	if maxItems > 0 && len(seq) > maxItems {
		seq = seq[len(seq)-maxItems:]
	}
	s.Entries[suite] = seq

	s.LastUpdate = clock().UnixMilli()
	s.RepoURL = repoURL
	return res
}

// Suites returns the suite names present in the store, unordered.
func (s *Store) Suites() []string {
	names := make([]string, 0, len(s.Entries))
	for name := range s.Entries {
		names = append(names, name)
	}
	return names
}

// bestOf derives the best-ever result per metric name in run, scanning all
// prior runs of the suite. Self-comparison against an earlier run of the
// same commit is intentional here, unlike the previous-run baseline.
func bestOf(run bench.Run, prior []bench.Run) map[string]bench.Result {
	best := make(map[string]bench.Result)
	bigger := run.Tool.BiggerIsBetter()
	for _, b := range run.Benches {
		for _, p := range prior {
			found := p.Find(b.Name)
			if found == nil {
				continue
			}
			cur, ok := best[b.Name]
			if !ok || better(found.Value, cur.Value, bigger) {
				best[b.Name] = *found
			}
		}
	}
	return best
}

func better(candidate, incumbent float64, biggerIsBetter bool) bool {
	if biggerIsBetter {
		return candidate > incumbent
	}
	return candidate < incumbent
}
