package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/nocsrf-go/pkg/token"
)

// KeyCommand returns the key subcommand group.
func KeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Work with session secret keys",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate random secret keys",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "bytes",
						Aliases: []string{"b"},
						Usage:   fmt.Sprintf("Key entropy in bytes (min %d)", token.MinKeyBytes),
						Value:   token.DefaultKeyBytes,
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of keys",
						Value:   1,
					},
				},
				Action: keyGenerate,
			},
		},
	}
}

// KeyResult is one generated key.
type KeyResult struct {
	Key   string `json:"key"`
	Bytes int    `json:"bytes"`
}

func keyGenerate(c *cli.Context) error {
	count := c.Int("count")
	if count < 1 {
		return cli.Exit("count must be at least 1", 2)
	}

	gen, err := token.NewRandomGenerator(c.Int("bytes"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	keys := make([]KeyResult, 0, count)
	for i := 0; i < count; i++ {
		key, err := gen.Generate()
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		keys = append(keys, KeyResult{Key: key, Bytes: gen.Bytes()})
	}
	return printResult(c, keys)
}
