package adaptive

import (
	"bytes"
	"errors"
	"testing"
)

func testKey() []byte {
	k := make([]byte, KeySize)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

var allTypes = []CipherType{CipherAESGCM, CipherChaCha20, CipherXChaCha20}

func TestNew(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if typ := c.Type(); typ != CipherAESGCM && typ != CipherChaCha20 {
		t.Errorf("New().Type() = %s, want aes-gcm or chacha20-poly1305", typ)
	}
}

func TestNewWithType_Errors(t *testing.T) {
	if _, err := NewWithType(make([]byte, 16), CipherAESGCM); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("NewWithType(16-byte key) = %v, want ErrInvalidKey", err)
	}
	if _, err := NewWithType(testKey(), "rot13"); err == nil {
		t.Error("NewWithType(unknown) succeeded")
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	plaintext := []byte(`{"id":"ncss-x","data":{"__nocsrf_key":"abc"}}`)
	aad := []byte("ncss-x")

	for _, typ := range allTypes {
		t.Run(string(typ), func(t *testing.T) {
			c, err := NewWithType(testKey(), typ)
			if err != nil {
				t.Fatalf("NewWithType() error = %v", err)
			}

			sealed, err := c.Encrypt(plaintext, aad)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if want := c.NonceSize() + len(plaintext) + c.Overhead(); len(sealed) != want {
				t.Errorf("len(sealed) = %d, want %d", len(sealed), want)
			}

			got, err := c.Decrypt(sealed, aad)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Errorf("Decrypt() = %q, want %q", got, plaintext)
			}

			again, _ := c.Encrypt(plaintext, aad)
			if bytes.Equal(again, sealed) {
				t.Error("two encryptions produced identical output")
			}
		})
	}
}

func TestCipher_Tamper(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(string(typ), func(t *testing.T) {
			c, _ := NewWithType(testKey(), typ)
			sealed, _ := c.Encrypt([]byte("payload"), []byte("a"))

			if _, err := c.Decrypt(sealed, []byte("b")); err == nil {
				t.Error("Decrypt() with wrong aad succeeded")
			}

			flipped := bytes.Clone(sealed)
			flipped[len(flipped)-1] ^= 0x01
			if _, err := c.Decrypt(flipped, []byte("a")); err == nil {
				t.Error("Decrypt() of modified ciphertext succeeded")
			}

			if _, err := c.Decrypt(sealed[:c.NonceSize()], []byte("a")); !errors.Is(err, ErrCiphertextTooShort) {
				t.Errorf("Decrypt(short) = %v, want ErrCiphertextTooShort", err)
			}
		})
	}
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey([]byte("secret"), nil, "sessions")
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if len(a) != KeySize {
		t.Fatalf("len(key) = %d, want %d", len(a), KeySize)
	}

	b, _ := DeriveKey([]byte("secret"), nil, "sessions")
	if !bytes.Equal(a, b) {
		t.Error("DeriveKey() is not deterministic")
	}

	c, _ := DeriveKey([]byte("secret"), nil, "other")
	if bytes.Equal(a, c) {
		t.Error("different info produced the same key")
	}

	if _, err := DeriveKey(nil, nil, "x"); err == nil {
		t.Error("DeriveKey(empty) succeeded")
	}
}

func BenchmarkEncrypt(b *testing.B) {
	payload := make([]byte, 512)
	for _, typ := range allTypes {
		c, _ := NewWithType(testKey(), typ)
		b.Run(string(typ), func(b *testing.B) {
			b.SetBytes(int64(len(payload)))
			for i := 0; i < b.N; i++ {
				if _, err := c.Encrypt(payload, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
