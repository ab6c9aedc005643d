package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/nocsrf-go/internal/cli/connection"
	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/server/httpserver"
	"github.com/yndnr/nocsrf-go/internal/server/httpserver/handler"
)

// ProbeCommand returns the probe command.
func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Run an end-to-end CSRF check against a running server",
		Description: "Fetches a token, verifies it, confirms that a protected request " +
			"without a token is rejected, and revokes the probe session.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "keep-session",
				Usage: "Do not revoke the probe session at the end",
			},
		},
		Action: probe,
	}
}

// ProbeStep is the outcome of one probe step.
type ProbeStep struct {
	Step   string `json:"step"`
	Status int    `json:"status"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func probe(c *cli.Context) error {
	client, err := NewClient(c)
	if err != nil {
		return err
	}
	verbosef(c, "probing %s", client.BaseURL())

	steps := RunProbe(c.Context, client, !c.Bool("keep-session"))
	if err := printResult(c, steps); err != nil {
		return err
	}
	for _, s := range steps {
		if !s.OK {
			return cli.Exit(fmt.Sprintf("probe failed at %q", s.Step), 1)
		}
	}
	return nil
}

// RunProbe walks the token lifecycle against the server behind client.
// It stops at the first step that cannot continue.
func RunProbe(ctx context.Context, client *connection.HTTPClient, revoke bool) []ProbeStep {
	var steps []ProbeStep
	record := func(step string, status int, ok bool, detail string) bool {
		steps = append(steps, ProbeStep{Step: step, Status: status, OK: ok, Detail: detail})
		return ok
	}

	// health
	resp, err := client.Get(ctx, httpserver.PathHealth)
	if err != nil {
		record("health", 0, false, err.Error())
		return steps
	}
	status := resp.StatusCode
	if err := connection.ParseResponse(resp, nil); !record("health", status, err == nil, errDetail(err)) {
		return steps
	}

	// token
	resp, err = client.Get(ctx, httpserver.PathToken)
	if err != nil {
		record("issue token", 0, false, err.Error())
		return steps
	}
	status = resp.StatusCode
	var tok handler.TokenResponse
	if err := connection.ParseResponse(resp, &tok); err != nil || tok.Token == "" {
		record("issue token", status, false, errDetail(err))
		return steps
	}
	if resp.Header.Get(tok.HeaderName) != tok.Token {
		record("issue token", status, false, "response header does not match body")
		return steps
	}
	record("issue token", status, true, "")

	csrfHeader := http.Header{}
	csrfHeader.Set(tok.HeaderName, tok.Token)

	// verify
	resp, err = client.Post(ctx, httpserver.PathVerify, &handler.VerifyRequest{Token: tok.Token}, nil)
	if err != nil {
		record("verify token", 0, false, err.Error())
		return steps
	}
	status = resp.StatusCode
	var vr handler.VerifyResponse
	err = connection.ParseResponse(resp, &vr)
	if !record("verify token", status, err == nil && vr.Valid, verifyDetail(err, vr)) {
		return steps
	}

	// A protected request without a token must be refused.
	resp, err = client.Post(ctx, httpserver.PathRevoke, nil, nil)
	if err != nil {
		record("reject missing token", 0, false, err.Error())
		return steps
	}
	status = resp.StatusCode
	err = connection.ParseResponse(resp, nil)
	var apiErr *connection.APIError
	rejected := errors.As(err, &apiErr) && apiErr.Code == domain.ErrTokenMissing.Code
	if !record("reject missing token", status, rejected, errDetail(err)) {
		return steps
	}

	if !revoke {
		return steps
	}

	resp, err = client.Post(ctx, httpserver.PathRevoke, nil, csrfHeader)
	if err != nil {
		record("revoke session", 0, false, err.Error())
		return steps
	}
	status = resp.StatusCode
	var rr handler.RevokeResponse
	err = connection.ParseResponse(resp, &rr)
	record("revoke session", status, err == nil && rr.Revoked, errDetail(err))
	return steps
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func verifyDetail(err error, vr handler.VerifyResponse) string {
	if err != nil {
		return err.Error()
	}
	return vr.Reason
}
