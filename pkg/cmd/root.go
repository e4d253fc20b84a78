package cmd

import "github.com/urfave/cli/v2"

// RootCommands collects all subcommands of the benchwatch CLI.
var RootCommands = cli.Commands{
	&RecordCommand,
	&ExtractCommand,
	&HistoryCommand,
	&ServeCommand,
}

var RootFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "v",
		Usage: "verbose output (equivalent to DEBUG log level)",
	},
	&cli.BoolFlag{
		Name:  "q",
		Usage: "quiet output (equivalent to WARN log level)",
	},
}
