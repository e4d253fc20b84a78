package cmd

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/extract"
)

var ExtractCommand = cli.Command{
	Name:      "extract",
	Usage:     "parse raw benchmark output and print the normalized results as JSON",
	ArgsUsage: "[glob...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "tool",
			Aliases:  []string{"t"},
			Usage:    "benchmark `TOOL` that produced the output",
			Required: true,
		},
	},
	Action: extractCommand,
}

func extractCommand(c *cli.Context) error {
	tool := bench.Tool(c.String("tool"))
	if !tool.Valid() {
		return errors.Errorf("unknown tool %q; valid tools: %v", tool, bench.Tools())
	}

	var (
		res []bench.Result
		err error
	)
	if c.NArg() == 0 {
		// No globs given; read a single document from stdin.
		res, err = extract.Output(tool, os.Stdin)
	} else {
		res, err = extract.Files(tool, c.Args().Slice())
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
