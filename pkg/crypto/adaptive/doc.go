// Package adaptive provides authenticated encryption for data at rest.
//
// New picks AES-256-GCM on platforms where Go's crypto/aes is hardware
// accelerated and ChaCha20-Poly1305 elsewhere. XChaCha20-Poly1305 is
// available explicitly for callers that prefer random 24-byte nonces.
//
// Ciphertexts are self-contained: the random nonce is prepended to the
// sealed output, so Decrypt needs only the key and the associated data.
//
//	key, _ := adaptive.DeriveKey([]byte(secret), nil, "session-records")
//	c, _ := adaptive.New(key)
//	sealed, _ := c.Encrypt(plaintext, []byte(recordID))
package adaptive
