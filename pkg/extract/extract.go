// Package extract normalizes raw benchmark tool output into the shared
// result structure. Only the tools whose output this project records in CI
// have parsers here; the remaining members of the tool enumeration are
// accepted pre-normalized through the custom JSON form.
package extract

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/logging"
)

// Output parses r according to tool and returns the normalized results.
func Output(tool bench.Tool, r io.Reader) ([]bench.Result, error) {
	switch tool {
	case bench.ToolGo:
		return goBench(r)
	case bench.ToolCustomBiggerIsBetter, bench.ToolCustomSmallerIsBetter:
		return customJSON(r)
	default:
		return nil, errors.Errorf("no extractor for tool %q; supply pre-normalized JSON via the custom tools", tool)
	}
}

// Files expands the glob patterns and parses every match, concatenating the
// results in match order.
func Files(tool bench.Tool, patterns []string) ([]bench.Result, error) {
	var out []bench.Result
	matched := 0
	for _, pattern := range patterns {
		paths, err := zglob.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "bad input pattern %q", pattern)
		}
		for _, path := range paths {
			f, err := os.Open(path)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to open benchmark output %s", path)
			}
			res, err := Output(tool, f)
			f.Close()
			if err != nil {
				return nil, errors.Wrapf(err, "unable to parse benchmark output %s", path)
			}
			logging.S().Debugw("parsed benchmark output", "path", path, "results", len(res))
			out = append(out, res...)
			matched++
		}
	}
	if matched == 0 {
		return nil, errors.Errorf("no files matched input patterns %v", patterns)
	}
	return out, nil
}

// goBenchLine matches one `go test -bench` measurement line:
//
//	BenchmarkFib10-8   3000000   325 ns/op   16 B/op   1 allocs/op
var goBenchLine = regexp.MustCompile(`^(Benchmark\S+?)(?:-\d+)?\s+(\d+)\s+([0-9.]+) ns/op(?:\s+(\d+) B/op)?(?:\s+(\d+) allocs/op)?`)

func goBench(r io.Reader) ([]bench.Result, error) {
	var out []bench.Result
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := goBenchLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		name, iters := m[1], m[2]
		nsop, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad ns/op in line %q", sc.Text())
		}
		out = append(out, bench.Result{
			Name:  name,
			Value: nsop,
			Unit:  "ns/op",
			Extra: iters + " times",
		})
		if m[4] != "" {
			v, _ := strconv.ParseFloat(m[4], 64)
			out = append(out, bench.Result{Name: name + " - B/op", Value: v, Unit: "B/op"})
		}
		if m[5] != "" {
			v, _ := strconv.ParseFloat(m[5], 64)
			out = append(out, bench.Result{Name: name + " - allocs/op", Value: v, Unit: "allocs/op"})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read benchmark output")
	}
	if len(out) == 0 {
		return nil, errors.New("no benchmark lines found in go test output")
	}
	return out, nil
}

func customJSON(r io.Reader) ([]bench.Result, error) {
	var out []bench.Result
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "unable to decode custom benchmark JSON")
	}
	seen := make(map[string]struct{}, len(out))
	for i, b := range out {
		if b.Name == "" {
			return nil, errors.Errorf("entry %d is missing a name", i)
		}
		if b.Unit == "" {
			return nil, errors.Errorf("entry %q is missing a unit", b.Name)
		}
		if _, dup := seen[b.Name]; dup {
			return nil, errors.Errorf("duplicate benchmark name %q", b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	if len(out) == 0 {
		return nil, errors.New("custom benchmark JSON holds no entries")
	}
	return out, nil
}
