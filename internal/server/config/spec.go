package config

import "time"

// ServerConfig is the root configuration for nocsrf-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server" yaml:"server"`
	CSRF     CSRFSection     `koanf:"csrf" yaml:"csrf"`
	Session  SessionSection  `koanf:"session" yaml:"session"`
	Security SecuritySection `koanf:"security" yaml:"security"`
	Log      LogSection      `koanf:"log" yaml:"log"`
	Metrics  MetricsSection  `koanf:"metrics" yaml:"metrics"`
}

// ServerSection configures listeners.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http" yaml:"http"`
}

// HTTPConfig configures the HTTP listener. TLS is enabled when both files
// are set.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" yaml:"addr"`
	TLSCertFile     string        `koanf:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile      string        `koanf:"tls_key_file" yaml:"tls_key_file"`
	ReadTimeout     time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// TLSEnabled reports whether both certificate and key are configured.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// CSRFSection configures key generation, token signing and where the
// token is looked for on incoming requests.
type CSRFSection struct {
	// KeyBytes is the entropy of a freshly generated session key.
	KeyBytes int `koanf:"key_bytes" yaml:"key_bytes"`

	// Algorithm names the HMAC hash, e.g. sha512 or sha3-256.
	Algorithm string `koanf:"algorithm" yaml:"algorithm"`

	// KeyVariable is the session variable that holds the key.
	KeyVariable string `koanf:"key_variable" yaml:"key_variable"`

	FormField  string `koanf:"form_field" yaml:"form_field"`
	HeaderName string `koanf:"header_name" yaml:"header_name"`

	// ProtectMethods lists the HTTP methods that must carry a valid token.
	ProtectMethods []string `koanf:"protect_methods" yaml:"protect_methods"`
}

// SessionSection configures the session store and its cookie.
type SessionSection struct {
	// Backend is "memory" or "badger".
	Backend string `koanf:"backend" yaml:"backend"`

	CookieName     string `koanf:"cookie_name" yaml:"cookie_name"`
	CookieSecure   bool   `koanf:"cookie_secure" yaml:"cookie_secure"`
	CookieSameSite string `koanf:"cookie_same_site" yaml:"cookie_same_site"`

	// TTL is the idle lifetime; every request slides it. Zero never expires.
	TTL           time.Duration `koanf:"ttl" yaml:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval" yaml:"sweep_interval"`

	MaxWriteRetries int `koanf:"max_write_retries" yaml:"max_write_retries"`

	// DataDir and EncryptionKey apply to the badger backend only.
	DataDir       string `koanf:"data_dir" yaml:"data_dir"`
	EncryptionKey string `koanf:"encryption_key" yaml:"encryption_key"`
}

// SecuritySection configures request throttling and CORS.
type SecuritySection struct {
	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" yaml:"rate_burst"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" yaml:"cors_allowed_origins"`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers" yaml:"trust_proxy_headers"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}
