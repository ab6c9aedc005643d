// Package token provides the cryptographic primitives behind CSRF tokens.
//
// Secret keys:
//
//   - Drawn from crypto/rand (or an injected reader in tests)
//   - 32 random bytes by default, never fewer than 16
//   - Encoded with standard Base64 so they can live in any session store
//
// Keyed hashing:
//
//   - HMAC over a registry of hash families (SHA-2, SHA-3, BLAKE2b)
//   - sha512 is the default algorithm
//   - Lowercase hex output, compared in constant time
package token
