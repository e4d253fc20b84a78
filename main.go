package main

import (
	"fmt"
	"os"

	"github.com/benchwatch/benchwatch/pkg/cmd"
	"github.com/benchwatch/benchwatch/pkg/logging"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

func main() {
	app := cli.NewApp()
	app.Name = "benchwatch"
	app.Usage = "continuous benchmarking: record results over time and catch performance regressions in CI"
	app.Commands = cmd.RootCommands
	app.Flags = cmd.RootFlags
	// Disable the built-in -v flag (version), to avoid collisions with the
	// verbosity flags.
	app.HideVersion = true
	app.Before = func(c *cli.Context) error {
		configureLogging(c)
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func configureLogging(c *cli.Context) {
	logging.TerminalMode()

	// The LOG_LEVEL environment variable takes precedence.
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			panic(err)
		}
		logging.SetLevel(l)
		return
	}

	// Apply verbosity flags.
	switch {
	case c.Bool("v"):
		logging.SetLevel(zapcore.DebugLevel)
	case c.Bool("q"):
		logging.SetLevel(zapcore.WarnLevel)
	default:
		// Do nothing; level remains at default (INFO).
	}
}
