package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/core/service"
	"github.com/yndnr/nocsrf-go/pkg/token"
)

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	codecFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "key",
			Aliases:  []string{"k"},
			Usage:    "Session secret key",
			EnvVars:  []string{"NOCSRF_KEY"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "session",
			Aliases:  []string{"i"},
			Usage:    "Session identity the token is bound to",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "algorithm",
			Aliases: []string{"a"},
			Usage:   "HMAC algorithm: " + strings.Join(token.Algorithms(), ", "),
			Value:   string(token.DefaultAlgorithm),
		},
	}

	return &cli.Command{
		Name:  "token",
		Usage: "Mint, verify and inspect CSRF tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "mint",
				Usage: "Create a token for a session and key",
				Flags: append(append([]cli.Flag{}, codecFlags...), &cli.Int64Flag{
					Name:  "at",
					Usage: "Issue time in Unix milliseconds (default now)",
				}),
				Action: tokenMint,
			},
			{
				Name:      "verify",
				Usage:     "Check a token against a session and key",
				ArgsUsage: "TOKEN",
				Flags:     codecFlags,
				Action:    tokenVerify,
			},
			{
				Name:      "inspect",
				Usage:     "Decode a token without a key",
				ArgsUsage: "TOKEN",
				Action:    tokenInspect,
			},
		},
	}
}

// MintResult is the output of token mint.
type MintResult struct {
	Token     string    `json:"token"`
	Session   string    `json:"session"`
	Algorithm string    `json:"algorithm"`
	IssuedAt  time.Time `json:"issued_at"`
}

// VerifyResult is the output of token verify.
type VerifyResult struct {
	Valid    bool      `json:"valid"`
	Reason   string    `json:"reason,omitempty"`
	IssuedAt time.Time `json:"issued_at,omitzero"`
	Age      string    `json:"age,omitempty"`
}

// InspectResult is the output of token inspect.
type InspectResult struct {
	MAC        string    `json:"mac" table:"wide"`
	Timestamp  string    `json:"timestamp"`
	IssuedAt   time.Time `json:"issued_at,omitzero"`
	WellFormed bool      `json:"well_formed"`
	MACBits    int       `json:"mac_bits"`
	Algorithms []string  `json:"algorithms,omitempty"`
}

// identity is a fixed session identity for offline minting.
type identity string

func (s identity) IsActive() bool { return s != "" }

func (s identity) Identity() (string, error) {
	if s == "" {
		return "", domain.ErrSessionUnavailable
	}
	return string(s), nil
}

func (s identity) Write(string, string) error { return domain.ErrSessionNotActive }

func (s identity) Read(_, def string) (string, error) { return def, domain.ErrSessionNotActive }

func newCodec(c *cli.Context, now func() time.Time) (*service.HMACCodec, error) {
	alg, err := token.ParseAlgorithm(c.String("algorithm"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	opts := []service.CodecOption{}
	if now != nil {
		opts = append(opts, service.WithClock(now))
	}
	return service.NewHMACCodec(alg, opts...)
}

func tokenMint(c *cli.Context) error {
	var now func() time.Time
	if c.IsSet("at") {
		at := time.UnixMilli(c.Int64("at"))
		now = func() time.Time { return at }
	}

	codec, err := newCodec(c, now)
	if err != nil {
		return err
	}

	sess := identity(c.String("session"))
	tok, err := codec.NewToken(sess, c.String("key"))
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	issuedAt, _ := domain.TokenIssuedAt(tok)

	return printResult(c, &MintResult{
		Token:     tok,
		Session:   string(sess),
		Algorithm: string(codec.Algorithm()),
		IssuedAt:  issuedAt.UTC(),
	})
}

func tokenVerify(c *cli.Context) error {
	candidate := c.Args().First()
	if candidate == "" {
		return cli.Exit("TOKEN argument is required", 2)
	}

	codec, err := newCodec(c, nil)
	if err != nil {
		return err
	}

	ok, err := codec.VerifyToken(identity(c.String("session")), candidate, c.String("key"))
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}

	result := &VerifyResult{Valid: ok}
	if issuedAt, err := domain.TokenIssuedAt(candidate); err == nil {
		result.IssuedAt = issuedAt.UTC()
		result.Age = time.Since(issuedAt).Truncate(time.Second).String()
	}
	switch {
	case ok:
	case !domain.ValidateTokenFormat(candidate):
		result.Reason = "malformed"
	default:
		result.Reason = "mismatch"
	}

	if err := printResult(c, result); err != nil {
		return err
	}
	if !ok {
		return cli.Exit("", 1)
	}
	return nil
}

func tokenInspect(c *cli.Context) error {
	tok := c.Args().First()
	if tok == "" {
		return cli.Exit("TOKEN argument is required", 2)
	}
	return printResult(c, inspect(tok))
}

func inspect(tok string) *InspectResult {
	mac, ts := domain.SplitToken(tok)
	result := &InspectResult{
		MAC:        mac,
		Timestamp:  ts,
		WellFormed: domain.ValidateTokenFormat(tok),
		MACBits:    len(mac) * 4,
	}
	if issuedAt, err := domain.TokenIssuedAt(tok); err == nil {
		result.IssuedAt = issuedAt.UTC()
	}
	if result.WellFormed {
		for _, name := range token.Algorithms() {
			if token.Algorithm(name).Size()*8 == result.MACBits {
				result.Algorithms = append(result.Algorithms, name)
			}
		}
	}
	return result
}
