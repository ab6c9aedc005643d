// Package buildinfo reports the version of the running binary.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/nocsrf-go/internal/infra/buildinfo.Version=v0.3.0 \
//	  -X github.com/yndnr/nocsrf-go/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// Values left unset are filled from runtime/debug.ReadBuildInfo where the
// toolchain recorded them.
package buildinfo
