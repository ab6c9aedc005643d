package config

import (
	"net/http"
	"time"

	"github.com/yndnr/nocsrf-go/internal/core/service"
	"github.com/yndnr/nocsrf-go/pkg/token"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	BackendMemory = "memory"
	BackendBadger = "badger"

	DefaultCookieName    = "nocsrf_sid"
	DefaultSameSite      = "lax"
	DefaultSessionTTL    = 24 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
	DefaultDataDir       = "/var/lib/nocsrf-server"

	DefaultRateBurst = 20

	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMetricsPath = "/metrics"
)

// DefaultProtectMethods are the state-changing methods checked by default.
var DefaultProtectMethods = []string{
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Default returns the configuration used when no source overrides a value.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				IdleTimeout:     DefaultIdleTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		CSRF: CSRFSection{
			KeyBytes:       token.DefaultKeyBytes,
			Algorithm:      string(token.DefaultAlgorithm),
			KeyVariable:    service.DefaultKeyVariable,
			FormField:      service.DefaultFormField,
			HeaderName:     service.DefaultHeaderName,
			ProtectMethods: append([]string(nil), DefaultProtectMethods...),
		},
		Session: SessionSection{
			Backend:         BackendMemory,
			CookieName:      DefaultCookieName,
			CookieSecure:    false,
			CookieSameSite:  DefaultSameSite,
			TTL:             DefaultSessionTTL,
			SweepInterval:   DefaultSweepInterval,
			MaxWriteRetries: 5,
			DataDir:         DefaultDataDir,
		},
		Security: SecuritySection{
			RateLimit: 0,
			RateBurst: DefaultRateBurst,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}
