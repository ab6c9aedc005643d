package service

import (
	"net/http"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/telemetry/logger"
	"github.com/yndnr/nocsrf-go/pkg/token"
)

// Default request field names for the CSRF candidate.
const (
	DefaultFormField  = "_csrfToken"
	DefaultHeaderName = "X-CSRF-Token"
)

// Config selects the strategies a Guard uses. Nil entries fall back to
// the defaults, so a Config may be shared by every request.
type Config struct {
	KeyGenerator token.KeyGenerator
	KeyStore     KeyStore
	TokenCodec   TokenCodec
	FormField    string
	HeaderName   string
	Logger       logger.Logger
}

// DefaultConfig returns a 32-byte random key, the session key store and
// HMAC-SHA512 tokens.
func DefaultConfig() *Config {
	gen := must(token.NewRandomGenerator(token.DefaultKeyBytes))
	codec := must(NewHMACCodec(token.DefaultAlgorithm))
	return &Config{
		KeyGenerator: gen,
		KeyStore:     NewSessionKeyStore(DefaultKeyVariable),
		TokenCodec:   codec,
		FormField:    DefaultFormField,
		HeaderName:   DefaultHeaderName,
		Logger:       logger.Default(),
	}
}

// must panics on err. It guards constructors whose arguments are
// compile-time defaults, where an error is a programming mistake.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// withDefaults returns a copy of cfg with every nil entry filled in.
func (cfg *Config) withDefaults() *Config {
	def := DefaultConfig()
	if cfg == nil {
		return def
	}

	out := *cfg
	if out.KeyGenerator == nil {
		out.KeyGenerator = def.KeyGenerator
	}
	if out.KeyStore == nil {
		out.KeyStore = def.KeyStore
	}
	if out.TokenCodec == nil {
		out.TokenCodec = def.TokenCodec
	}
	if out.FormField == "" {
		out.FormField = def.FormField
	}
	if out.HeaderName == "" {
		out.HeaderName = def.HeaderName
	}
	if out.Logger == nil {
		out.Logger = def.Logger
	}
	return &out
}

// Guard issues and verifies CSRF tokens for one session.
//
// The key is loaded at most once and the first issued token is reused, so a
// Guard should live for a single request. It is not safe for concurrent use.
type Guard struct {
	sess Session
	cfg  *Config

	key       string
	keyLoaded bool
	token     string
}

// NewGuard creates a Guard bound to sess.
func NewGuard(sess Session, cfg *Config) *Guard {
	return &Guard{
		sess: sess,
		cfg:  cfg.withDefaults(),
	}
}

// Session returns the bound session.
func (g *Guard) Session() Session {
	return g.sess
}

// Key returns the session's secret key, generating and saving one on first use.
//
// A key that could not be saved is still returned and cached; tokens built
// from it verify only within this Guard.
func (g *Guard) Key() (string, error) {
	if g.keyLoaded {
		return g.key, nil
	}

	key, err := g.cfg.KeyStore.Read(g.sess)
	if err != nil {
		return "", err
	}

	if key == "" {
		key, err = g.cfg.KeyGenerator.Generate()
		if err != nil {
			return "", domain.ErrKeyGeneration.WithCause(err)
		}
		if !g.cfg.KeyStore.Save(g.sess, key) {
			g.cfg.Logger.Warn("csrf key could not be saved to the session",
				"key_length", len(key))
		} else {
			g.cfg.Logger.Debug("csrf key generated")
		}
	}

	g.key = key
	g.keyLoaded = true
	return key, nil
}

// Token returns the Guard's token, minting it on first call.
func (g *Guard) Token() (string, error) {
	if g.token != "" {
		return g.token, nil
	}

	key, err := g.Key()
	if err != nil {
		return "", err
	}

	tok, err := g.cfg.TokenCodec.NewToken(g.sess, key)
	if err != nil {
		return "", err
	}
	g.token = tok
	return tok, nil
}

// Verify checks candidate against the session key. An empty candidate is
// never valid.
func (g *Guard) Verify(candidate string) (bool, error) {
	if candidate == "" {
		return false, nil
	}

	key, err := g.Key()
	if err != nil {
		return false, err
	}
	return g.cfg.TokenCodec.VerifyToken(g.sess, candidate, key)
}

// Candidate returns the token submitted with r under the configured names.
func (g *Guard) Candidate(r *http.Request) string {
	return ExtractToken(r, g.cfg.FormField, g.cfg.HeaderName)
}

// VerifyRequest verifies the candidate carried by r.
func (g *Guard) VerifyRequest(r *http.Request) (bool, error) {
	return g.Verify(g.Candidate(r))
}

// ExtractToken returns the CSRF candidate from the submitted form field,
// falling back to the header. It returns "" when neither is present.
func ExtractToken(r *http.Request, formField, header string) string {
	if r == nil {
		return ""
	}
	if formField == "" {
		formField = DefaultFormField
	}
	if header == "" {
		header = DefaultHeaderName
	}

	if v := r.PostFormValue(formField); v != "" {
		return v
	}
	return r.Header.Get(header)
}
