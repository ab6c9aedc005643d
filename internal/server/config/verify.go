package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/pkg/token"
)

// MinEncryptionKeyLength is the shortest accepted at-rest secret.
const MinEncryptionKeyLength = 16

var (
	validLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats  = map[string]bool{"json": true, "text": true}
	validSameSite = map[string]bool{"lax": true, "strict": true, "none": true}
	knownMethods  = map[string]bool{
		http.MethodGet: true, http.MethodHead: true, http.MethodPost: true,
		http.MethodPut: true, http.MethodPatch: true, http.MethodDelete: true,
		http.MethodOptions: true,
	}
)

// Verify reports every problem found in cfg, joined into one error.
// For the badger backend it also creates the data directory.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	return errors.Join(
		verifyHTTP(&cfg.Server.HTTP),
		verifyCSRF(&cfg.CSRF),
		verifySession(&cfg.Session),
		verifySecurity(&cfg.Security),
		verifyLog(&cfg.Log),
		verifyMetrics(&cfg.Metrics),
	)
}

func verifyHTTP(c *HTTPConfig) error {
	var errs []error
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.http.addr %q: %w", c.Addr, err))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	for key, path := range map[string]string{"tls_cert_file": c.TLSCertFile, "tls_key_file": c.TLSKeyFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, fmt.Errorf("server.http.%s: %w", key, err))
		}
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 || c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.http timeouts must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyCSRF(c *CSRFSection) error {
	var errs []error
	if c.KeyBytes < token.MinKeyBytes {
		errs = append(errs, fmt.Errorf("csrf.key_bytes must be at least %d", token.MinKeyBytes))
	} else if n := base64.StdEncoding.EncodedLen(c.KeyBytes); n > domain.MaxDataValueLength {
		errs = append(errs, fmt.Errorf("csrf.key_bytes %d encodes to %d characters, more than a session variable holds (%d)",
			c.KeyBytes, n, domain.MaxDataValueLength))
	}
	if _, err := token.ParseAlgorithm(c.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("csrf.algorithm: %w (supported: %s)",
			err, strings.Join(token.Algorithms(), ", ")))
	}
	if strings.TrimSpace(c.KeyVariable) == "" {
		errs = append(errs, errors.New("csrf.key_variable is required"))
	} else if len(c.KeyVariable) > domain.MaxDataKeyLength {
		errs = append(errs, fmt.Errorf("csrf.key_variable must be at most %d characters", domain.MaxDataKeyLength))
	}
	if strings.TrimSpace(c.FormField) == "" {
		errs = append(errs, errors.New("csrf.form_field is required"))
	}
	if !validHeaderName(c.HeaderName) {
		errs = append(errs, fmt.Errorf("csrf.header_name %q is not a valid header name", c.HeaderName))
	}
	for _, m := range c.ProtectMethods {
		if !knownMethods[strings.ToUpper(m)] {
			errs = append(errs, fmt.Errorf("csrf.protect_methods: unknown method %q", m))
		}
	}
	return errors.Join(errs...)
}

func verifySession(c *SessionSection) error {
	var errs []error
	switch c.Backend {
	case BackendMemory:
		if c.EncryptionKey != "" {
			errs = append(errs, errors.New("session.encryption_key is only used by the badger backend"))
		}
	case BackendBadger:
		if c.DataDir == "" {
			errs = append(errs, errors.New("session.data_dir is required for the badger backend"))
		} else if err := os.MkdirAll(c.DataDir, 0o750); err != nil {
			errs = append(errs, fmt.Errorf("session.data_dir: %w", err))
		}
		if c.EncryptionKey != "" && len(c.EncryptionKey) < MinEncryptionKeyLength {
			errs = append(errs, fmt.Errorf("session.encryption_key must be at least %d characters", MinEncryptionKeyLength))
		}
	default:
		errs = append(errs, fmt.Errorf("session.backend %q: want memory or badger", c.Backend))
	}

	if !validHeaderName(c.CookieName) {
		errs = append(errs, fmt.Errorf("session.cookie_name %q is not a valid cookie name", c.CookieName))
	}
	sameSite := strings.ToLower(c.CookieSameSite)
	if !validSameSite[sameSite] {
		errs = append(errs, fmt.Errorf("session.cookie_same_site %q: want lax, strict or none", c.CookieSameSite))
	} else if sameSite == "none" && !c.CookieSecure {
		errs = append(errs, errors.New("session.cookie_same_site none requires cookie_secure"))
	}
	if c.TTL < 0 {
		errs = append(errs, errors.New("session.ttl must not be negative"))
	}
	if c.TTL > 0 && c.SweepInterval <= 0 {
		errs = append(errs, errors.New("session.sweep_interval must be positive when sessions expire"))
	}
	if c.MaxWriteRetries < 1 {
		errs = append(errs, errors.New("session.max_write_retries must be at least 1"))
	}
	return errors.Join(errs...)
}

func verifySecurity(c *SecuritySection) error {
	var errs []error
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("security.rate_limit must not be negative"))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		errs = append(errs, errors.New("security.rate_burst must be at least 1 when rate_limit is set"))
	}
	for _, o := range c.CORSAllowedOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			errs = append(errs, fmt.Errorf("security.cors_allowed_origins: %q is not an origin", o))
		}
	}
	return errors.Join(errs...)
}

func verifyLog(c *LogSection) error {
	var errs []error
	if !validLevels[strings.ToLower(c.Level)] {
		errs = append(errs, fmt.Errorf("log.level %q: want debug, info, warn or error", c.Level))
	}
	if !validFormats[strings.ToLower(c.Format)] {
		errs = append(errs, fmt.Errorf("log.format %q: want json or text", c.Format))
	}
	return errors.Join(errs...)
}

func verifyMetrics(c *MetricsSection) error {
	if c.Enabled && !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Path)
	}
	return nil
}

// validHeaderName accepts RFC 7230 token characters.
func validHeaderName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("!#$%&'*+-.^_`|~", r):
		default:
			return false
		}
	}
	return true
}
