// Package token provides the cryptographic primitives behind CSRF tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// DefaultKeyBytes is the default secret key strength in bytes.
	DefaultKeyBytes = 32

	// MinKeyBytes is the smallest secret key a generator will produce.
	MinKeyBytes = 16
)

// KeyGenerator produces per-session secret keys.
type KeyGenerator interface {
	// Generate returns a fresh secret key as text.
	Generate() (string, error)
}

// RandomGenerator draws secret keys from a cryptographically secure source.
type RandomGenerator struct {
	bytes  int
	reader io.Reader
}

// GeneratorOption configures a RandomGenerator.
type GeneratorOption func(*RandomGenerator)

// WithReader replaces the entropy source. Only tests should need this.
func WithReader(r io.Reader) GeneratorOption {
	return func(g *RandomGenerator) {
		g.reader = r
	}
}

// NewRandomGenerator creates a generator producing keys of the given byte length.
// A length of 0 selects DefaultKeyBytes.
func NewRandomGenerator(bytes int, opts ...GeneratorOption) (*RandomGenerator, error) {
	if bytes == 0 {
		bytes = DefaultKeyBytes
	}
	if bytes < MinKeyBytes {
		return nil, fmt.Errorf("token: key length %d below minimum of %d bytes", bytes, MinKeyBytes)
	}

	g := &RandomGenerator{
		bytes:  bytes,
		reader: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate draws a new key. A short read is an error; there is no fallback source.
func (g *RandomGenerator) Generate() (string, error) {
	buf := make([]byte, g.bytes)
	if _, err := io.ReadFull(g.reader, buf); err != nil {
		return "", fmt.Errorf("token: read entropy: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Bytes returns the configured key length.
func (g *RandomGenerator) Bytes() int {
	return g.bytes
}

// GenerateWithLength returns length random bytes as unpadded base64url text,
// for identifiers such as request IDs.
func GenerateWithLength(length int) (string, error) {
	bytes, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateBytes reads length bytes from crypto/rand.
func GenerateBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}
