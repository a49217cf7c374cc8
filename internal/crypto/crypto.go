package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// ErrDecryption is returned when a ciphertext/nonce pair does not
// authenticate — a tampered cache or a key derived from a different
// session. Callers treat this as "cache unusable", not as a crash.
var ErrDecryption = errors.New("decryption failed")

const (
	// keySalt is the fixed application salt for session key derivation.
	keySalt = "secure-password-manager-salt"
	// keyIterations is the PBKDF2 iteration count.
	keyIterations = 100_000
	keyLen        = 32
)

// DeriveKey derives the AES-256 cache key from the session token using
// PBKDF2-SHA256. The same token always yields the same key; the key is
// held only for the duration of one operation and never persisted.
func DeriveKey(sessionToken string) []byte {
	return pbkdf2.Key([]byte(sessionToken), []byte(keySalt), keyIterations, keyLen, sha256.New)
}

// Encrypt encrypts plaintext with AES-256-GCM under a fresh random 96-bit
// nonce. Returns ciphertext and nonce separately.
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("creating GCM: %w", err)
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}
	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts an AES-256-GCM envelope. Authentication failure wraps
// ErrDecryption.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

// GenerateSessionToken returns a 256-bit random session token, hex encoded.
func GenerateSessionToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// HashPassword returns the SHA-256 hex digest of a password. Provided for
// at-rest hashing in the directory; the default validation path compares
// plaintext and does not use it.
func HashPassword(password string) string {
	h := sha256.Sum256([]byte(password))
	return hex.EncodeToString(h[:])
}

// Wipe zeroes sensitive byte material in place.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
