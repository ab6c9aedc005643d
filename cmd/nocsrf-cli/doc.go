// Package main provides the entry point for nocsrf-cli.
//
// nocsrf-cli mints, verifies and inspects tokens offline, generates keys,
// and probes a running nocsrf-server end to end.
package main
