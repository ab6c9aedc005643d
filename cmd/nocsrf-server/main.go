package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/nocsrf-go/internal/infra/buildinfo"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to the YAML configuration file",
	EnvVars: []string{"NOCSRF_CONFIG"},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "nocsrf-server",
		Usage:   "CSRF token service",
		Version: buildinfo.String(),
		Commands: []*cli.Command{
			serveCommand(),
			configCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(c *cli.Context) error {
			info := buildinfo.Get()
			fmt.Fprintf(c.App.Writer, "nocsrf-server %s\n", info.String())
			return nil
		},
	}
}
