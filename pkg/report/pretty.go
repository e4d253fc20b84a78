package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/logrusorgru/aurora"

	"github.com/benchwatch/benchwatch/pkg/detect"
)

// Printer writes a colored per-metric summary of a run to a terminal.
type Printer struct {
	au aurora.Aurora
}

// NewPrinter constructs a console summary printer. Pass colored=false when
// the output is not a TTY.
func NewPrinter(colored bool) *Printer {
	return &Printer{au: aurora.NewAurora(colored)}
}

// Summary prints one line per metric, classed OK, ALERT or FAIL, followed
// by a suite trailer.
func (p *Printer) Summary(w io.Writer, in Input, alerts, failing []detect.Alert) {
	class := func(name string) aurora.Value {
		for _, a := range failing {
			if a.Current.Name == name {
				return p.au.BgRed("FAIL ").White()
			}
		}
		for _, a := range alerts {
			if a.Current.Name == name {
				return p.au.BgYellow("ALERT").Black()
			}
		}
		return p.au.BgGreen("OK   ").White()
	}
	ratioFor := func(name string) string {
		for _, a := range alerts {
			if a.Current.Name == name {
				return FormatValue(a.Ratio) + "x"
			}
		}
		if base, ok := baselineFor(in, name); ok {
			cur := in.Run.Find(name)
			return FormatValue(detect.Ratio(in.Run.Tool, cur.Value, base.Value)) + "x"
		}
		return "-"
	}

	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	for _, b := range in.Run.Benches {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n",
			class(b.Name), b.Name, FormatValue(b.Value), b.Unit, ratioFor(b.Name))
	}
	tw.Flush()

	trailer := fmt.Sprintf("suite %q: %d prior run(s)", in.Suite, len(in.Result.Prior))
	if prev := in.Result.PreviousRun(); prev != nil && prev.Date > 0 {
		trailer += fmt.Sprintf(", previous recorded %s", humanize.Time(time.UnixMilli(prev.Date)))
	}
	fmt.Fprintln(w, p.au.Faint(trailer))
}
