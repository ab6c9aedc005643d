// Package command defines the nocsrf-cli commands using urfave/cli/v2.
//
//   - root.go: the App, global flags and output helpers
//   - key.go: key generate
//   - token.go: token mint, verify and inspect
//   - probe.go: end-to-end check against a running server
//
// Key and token commands work offline with the same codec the server uses.
package command
