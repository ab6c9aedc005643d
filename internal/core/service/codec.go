package service

import (
	"strconv"
	"time"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/pkg/token"
)

// TokenCodec derives and verifies CSRF tokens.
type TokenCodec interface {
	// NewToken returns a fresh token for the session and key.
	NewToken(sess Session, key string) (string, error)

	// VerifyToken reports whether candidate was derived from the session and key.
	// A malformed candidate yields false, not an error.
	VerifyToken(sess Session, candidate, key string) (bool, error)
}

// HMACCodec produces "<hex mac>.<unix millis>" tokens where the mac is
// HMAC(algorithm, key, identity || millis).
//
// Tokens carry their issue time but the codec never checks their age.
type HMACCodec struct {
	alg token.Algorithm
	now func() time.Time
}

// CodecOption configures an HMACCodec.
type CodecOption func(*HMACCodec)

// WithClock replaces the time source.
func WithClock(now func() time.Time) CodecOption {
	return func(c *HMACCodec) {
		c.now = now
	}
}

// NewHMACCodec creates a codec for the algorithm. An empty algorithm
// selects token.DefaultAlgorithm.
func NewHMACCodec(alg token.Algorithm, opts ...CodecOption) (*HMACCodec, error) {
	if alg == "" {
		alg = token.DefaultAlgorithm
	}
	if !alg.Valid() {
		return nil, domain.ErrUnsupportedAlgorithm.WithDetails(string(alg))
	}

	c := &HMACCodec{
		alg: alg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Algorithm returns the configured algorithm.
func (c *HMACCodec) Algorithm() token.Algorithm {
	return c.alg
}

// NewToken mints a token stamped with the current time.
func (c *HMACCodec) NewToken(sess Session, key string) (string, error) {
	id, err := sessionIdentity(sess)
	if err != nil {
		return "", err
	}
	now := c.now()
	mac, err := c.sign(id, key, strconv.FormatInt(now.UnixMilli(), 10))
	if err != nil {
		return "", err
	}
	return domain.FormatToken(mac, now), nil
}

// VerifyToken recomputes the token for the candidate's timestamp and compares
// the whole string in constant time.
func (c *HMACCodec) VerifyToken(sess Session, candidate, key string) (bool, error) {
	if candidate == "" {
		return false, nil
	}
	id, err := sessionIdentity(sess)
	if err != nil {
		return false, err
	}

	_, ts := domain.SplitToken(candidate)
	mac, err := c.sign(id, key, ts)
	if err != nil {
		return false, err
	}
	return token.Equal(domain.JoinToken(mac, ts), candidate), nil
}

func (c *HMACCodec) sign(identity, key, ts string) (string, error) {
	mac, err := token.Sign(c.alg, []byte(key), []byte(identity+ts))
	if err != nil {
		return "", domain.ErrUnsupportedAlgorithm.WithCause(err)
	}
	return mac, nil
}

func sessionIdentity(sess Session) (string, error) {
	if sess == nil {
		return "", domain.ErrSessionUnavailable.WithDetails("no session")
	}
	id, err := sess.Identity()
	if err != nil {
		return "", domain.ErrSessionUnavailable.WithCause(err)
	}
	if id == "" {
		return "", domain.ErrSessionUnavailable.WithDetails("empty session identity")
	}
	return id, nil
}
