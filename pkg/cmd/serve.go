package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/benchwatch/benchwatch/pkg/logging"
	"github.com/benchwatch/benchwatch/pkg/server"
)

var ServeCommand = cli.Command{
	Name:  "serve",
	Usage: "serve a local preview of the benchmark dashboard",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Aliases: []string{"l"},
			Value:   "localhost:8080",
			Usage:   "listen `ADDRESS`",
		},
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Value:   ".",
			Usage:   "`DIRECTORY` holding the data file, usually a checkout of the data branch",
		},
	},
	Action: serveCommand,
}

func serveCommand(c *cli.Context) error {
	srv, err := server.New(c.String("listen"), c.String("dir"))
	if err != nil {
		return err
	}
	logging.S().Infow("dashboard listening", "addr", srv.Addr, "dir", c.String("dir"))
	return srv.ListenAndServe()
}
