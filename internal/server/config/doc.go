// Package config defines the nocsrf-server configuration.
//
//   - spec.go: the ServerConfig tree and its koanf keys
//   - default.go: defaults applied before any source is read
//   - load.go: file, environment and flag layering through confloader
//   - verify.go: semantic validation
//   - sanitize.go: a copy safe to log
package config
