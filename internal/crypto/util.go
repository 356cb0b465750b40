package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Ch4lkP0wd3r/CalcPro/internal/misc"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

// ErrDecryptFailed covers every way an envelope can fail to open: malformed
// structure, bad encoding, truncated payload, or a key that does not
// authenticate. Callers must not distinguish these cases to the end user.
var ErrDecryptFailed = errors.New("decryption failed")

// Envelope is the self-describing outer record persisted for each vault slot.
// Salt is the per-encryption PBKDF2 salt, Data is nonce||ciphertext. Both are
// base64 encoded so the envelope survives any text-safe storage.
type Envelope struct {
	Salt string `json:"salt"`
	Data string `json:"data"`
}

// HashPin produces the deterministic authentication hash for a PIN.
//
// The hash is SHA-256 over a fixed application domain string plus the PIN,
// hex encoded. It is used only for comparison against the stored setup
// hashes, never as key material; DeriveKey serves that purpose with a
// per-operation random salt.
func HashPin(pin string) string {
	sum := sha256.Sum256([]byte(misc.PinHashDomain + ":" + pin))
	return hex.EncodeToString(sum[:])
}

// DeriveKey stretches a PIN into a 256-bit encryption key using
// PBKDF2-SHA256. PINs are low entropy, so the iteration count is deliberately
// high; the salt must be freshly random per encryption call and is stored in
// the envelope (salts are not secret).
func DeriveKey(pin string, salt []byte) []byte {
	return pbkdf2.Key([]byte(pin), salt, misc.PBKDF2Iterations, misc.KeyLen, sha256.New)
}

// NewSalt returns a fresh random salt for a single encryption operation.
func NewSalt() ([]byte, error) {
	salt := make([]byte, misc.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// EncryptWithPin encrypts plaintext under a key derived from the PIN and a
// fresh random salt, using ChaCha20-Poly1305 AEAD, and returns the serialized
// envelope. Two calls with identical inputs always produce different
// envelopes; ciphertext comparison must not leak payload equality across
// saves.
func EncryptWithPin(plaintext []byte, pin string) ([]byte, error) {
	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}

	key := DeriveKey(pin, salt)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	// Combine nonce and ciphertext into the envelope payload
	payload := make([]byte, len(nonce)+len(ciphertext))
	copy(payload[:len(nonce)], nonce)
	copy(payload[len(nonce):], ciphertext)

	envelope := Envelope{
		Salt: base64.StdEncoding.EncodeToString(salt),
		Data: base64.StdEncoding.EncodeToString(payload),
	}

	encoded, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize envelope: %w", err)
	}

	return encoded, nil
}

// DecryptWithPin parses an envelope, re-derives the key from the embedded
// salt and the supplied PIN, and attempts authenticated decryption.
//
// Every failure path returns ErrDecryptFailed. A wrong PIN, a corrupted
// envelope, and a tampered ciphertext are indistinguishable from the
// caller's point of view; the Poly1305 tag rejects all of them.
func DecryptWithPin(encoded []byte, pin string) ([]byte, error) {
	var envelope Envelope
	if err := json.Unmarshal(encoded, &envelope); err != nil {
		return nil, ErrDecryptFailed
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil || len(salt) == 0 {
		return nil, ErrDecryptFailed
	}

	payload, err := base64.StdEncoding.DecodeString(envelope.Data)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	key := DeriveKey(pin, salt)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	if len(payload) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrDecryptFailed
	}

	nonce := payload[:aead.NonceSize()]
	ciphertext := payload[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return plaintext, nil
}

// CalculateChecksum calculates SHA-256 checksum of data
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
