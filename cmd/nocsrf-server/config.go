package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/nocsrf-go/internal/server/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect server configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Load and verify the configuration, then print it with secrets masked",
				Flags:  []cli.Flag{configFlag},
				Action: validateAction,
			},
		},
	}
}

func validateAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String(configFlag.Name))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(config.Sanitize(cfg)); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// loadConfig loads and verifies the configuration at path.
func loadConfig(path string) (*config.ServerConfig, error) {
	cfg, err := config.Load(path, nil)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
