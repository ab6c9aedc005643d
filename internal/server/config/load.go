package config

import (
	"github.com/yndnr/nocsrf-go/internal/infra/confloader"
)

// Load builds the configuration from defaults, the optional YAML file at
// path, NOCSRF_ environment variables and flag overrides, in that order.
// The result is not verified.
func Load(path string, overrides map[string]any) (*ServerConfig, error) {
	cfg := Default()

	l := confloader.NewLoader(confloader.WithConfigFile(path))
	if err := l.LoadFile(path); err != nil {
		return nil, err
	}
	if err := l.LoadEnv(); err != nil {
		return nil, err
	}
	if err := l.LoadMap(overrides); err != nil {
		return nil, err
	}
	if err := l.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
