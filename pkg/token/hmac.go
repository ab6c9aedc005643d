// Package token provides the cryptographic primitives behind CSRF tokens.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm names a keyed-hash family.
type Algorithm string

// Supported algorithms.
const (
	SHA256     Algorithm = "sha256"
	SHA384     Algorithm = "sha384"
	SHA512     Algorithm = "sha512"
	SHA512_256 Algorithm = "sha512-256"
	SHA3_256   Algorithm = "sha3-256"
	SHA3_512   Algorithm = "sha3-512"
	BLAKE2b512 Algorithm = "blake2b-512"

	// DefaultAlgorithm is used when no algorithm is configured.
	DefaultAlgorithm = SHA512
)

var algorithms = map[Algorithm]func() hash.Hash{
	SHA256:     sha256.New,
	SHA384:     sha512.New384,
	SHA512:     sha512.New,
	SHA512_256: sha512.New512_256,
	SHA3_256:   sha3.New256,
	SHA3_512:   sha3.New512,
	BLAKE2b512: newBLAKE2b512,
}

// newBLAKE2b512 returns unkeyed BLAKE2b-512; HMAC supplies the key.
func newBLAKE2b512() hash.Hash {
	h, err := blake2b.New512(nil)
	if err != nil {
		// New512 only fails for keys longer than 64 bytes.
		panic(err)
	}
	return h
}

// ParseAlgorithm resolves an algorithm name.
//
// Matching is case-insensitive and tolerates the common spellings
// "sha-512", "SHA512" and "hmac-sha512". An empty name selects DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return DefaultAlgorithm, nil
	}
	n = strings.TrimPrefix(n, "hmac-")
	n = strings.TrimPrefix(n, "hmac_")

	if alg := Algorithm(n); algorithms[alg] != nil {
		return alg, nil
	}
	// sha-512 -> sha512, sha3_256 -> sha3-256
	compact := strings.NewReplacer("-", "", "_", "").Replace(n)
	for alg := range algorithms {
		if strings.ReplaceAll(string(alg), "-", "") == compact {
			return alg, nil
		}
	}
	return "", fmt.Errorf("token: unsupported algorithm %q", name)
}

// Algorithms returns the supported algorithm names, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for alg := range algorithms {
		names = append(names, string(alg))
	}
	sort.Strings(names)
	return names
}

// Size returns the MAC length in bytes.
func (a Algorithm) Size() int {
	fn, ok := algorithms[a]
	if !ok {
		return 0
	}
	return fn().Size()
}

// Valid reports whether the algorithm is registered.
func (a Algorithm) Valid() bool {
	_, ok := algorithms[a]
	return ok
}

// Sign computes HMAC(alg, key, data) and returns it as lowercase hex.
func Sign(alg Algorithm, key, data []byte) (string, error) {
	fn, ok := algorithms[alg]
	if !ok {
		return "", fmt.Errorf("token: unsupported algorithm %q", alg)
	}
	mac := hmac.New(fn, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Equal compares two strings in constant time with respect to their contents.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
