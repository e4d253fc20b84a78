package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/benchwatch/benchwatch/pkg/history"
	"github.com/benchwatch/benchwatch/pkg/report"
)

var HistoryCommand = cli.Command{
	Name:  "history",
	Usage: "list the runs recorded in a data file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Value:   "data.js",
			Usage:   "data `FILE` to read; accepts both the script form and plain JSON",
		},
		&cli.StringFlag{
			Name:    "suite",
			Aliases: []string{"s"},
			Usage:   "`NAME` of the suite to show; omit to list suites",
		},
	},
	Action: historyCommand,
}

func historyCommand(c *cli.Context) error {
	store := history.Load(c.String("file"))

	suite := c.String("suite")
	if suite == "" {
		names := store.Suites()
		if len(names) == 0 {
			fmt.Fprintln(c.App.Writer, "no suites recorded")
			return nil
		}
		sort.Strings(names)
		tw := tabwriter.NewWriter(c.App.Writer, 2, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SUITE\tRUNS\tLAST RUN")
		for _, name := range names {
			runs := store.Entries[name]
			last := runs[len(runs)-1]
			fmt.Fprintf(tw, "%s\t%d\t%s\n", name, len(runs),
				humanize.Time(time.UnixMilli(last.Date)))
		}
		return tw.Flush()
	}

	runs, ok := store.Entries[suite]
	if !ok {
		return errors.Errorf("no suite %q in %s", suite, c.String("file"))
	}

	tw := tabwriter.NewWriter(c.App.Writer, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMMIT\tTOOL\tWHEN\tBENCHES")
	for _, run := range runs {
		id := run.Commit.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", id, run.Tool,
			humanize.Time(time.UnixMilli(run.Date)), len(run.Benches))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// Close with the latest run's metrics so the common question, "what did
	// the last run measure", needs no second invocation.
	last := runs[len(runs)-1]
	fmt.Fprintf(c.App.Writer, "\nlatest run (%s):\n", last.Commit.ID)
	for _, r := range last.Benches {
		fmt.Fprintf(c.App.Writer, "  %s: %s %s\n", r.Name, report.FormatValue(r.Value), r.Unit)
	}
	return nil
}
