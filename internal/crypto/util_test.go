package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	testCases := [][]byte{
		[]byte("[]"),
		[]byte(`[{"id":"1"}]`),
		[]byte("Special chars: !@#$%^&*()_+{}|"),
		[]byte("Unicode: こんにちは"),
		bytes.Repeat([]byte("x"), 64*1024), // Large payload
	}

	for i, tc := range testCases {
		t.Run(fmt.Sprintf("Case_%d", i), func(t *testing.T) {
			envelope, err := EncryptWithPin(tc, "1234")
			if err != nil {
				t.Fatalf("Failed to encrypt: %v", err)
			}

			if bytes.Equal(envelope, tc) {
				t.Error("Envelope is identical to plaintext")
			}

			plaintext, err := DecryptWithPin(envelope, "1234")
			if err != nil {
				t.Fatalf("Failed to decrypt: %v", err)
			}

			if !bytes.Equal(plaintext, tc) {
				t.Errorf("Decrypted text doesn't match original.\nExpected: %q\nGot: %q",
					string(tc), string(plaintext))
			}
		})
	}
}

func TestEncryptNeverReusesSalt(t *testing.T) {
	plaintext := []byte("same payload every time")

	first, err := EncryptWithPin(plaintext, "1234")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	second, err := EncryptWithPin(plaintext, "1234")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	if bytes.Equal(first, second) {
		t.Fatal("Two encryptions of the same payload produced identical envelopes")
	}

	var env1, env2 Envelope
	if err := json.Unmarshal(first, &env1); err != nil {
		t.Fatalf("Failed to parse envelope: %v", err)
	}
	if err := json.Unmarshal(second, &env2); err != nil {
		t.Fatalf("Failed to parse envelope: %v", err)
	}
	if env1.Salt == env2.Salt {
		t.Error("Salt was reused across encryption calls")
	}
}

func TestDecryptWithWrongPinFails(t *testing.T) {
	envelope, err := EncryptWithPin([]byte("sensitive"), "1234")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	if _, err = DecryptWithPin(envelope, "4321"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("Expected ErrDecryptFailed for wrong PIN, got %v", err)
	}
}

func TestDecryptMalformedEnvelope(t *testing.T) {
	malformed := [][]byte{
		nil,
		[]byte(""),
		[]byte("not json"),
		[]byte(`{"salt":"","data":""}`),
		[]byte(`{"salt":"!!!!","data":"!!!!"}`),
		[]byte(`{"salt":"QUJdDEY=","data":"c2hvcnQ="}`), // truncated payload
	}

	for i, tc := range malformed {
		if _, err := DecryptWithPin(tc, "1234"); !errors.Is(err, ErrDecryptFailed) {
			t.Errorf("Case %d: expected ErrDecryptFailed, got %v", i, err)
		}
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	envelope, err := EncryptWithPin([]byte("tamper target"), "1234")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(envelope, &env); err != nil {
		t.Fatalf("Failed to parse envelope: %v", err)
	}

	// Flip one character inside the payload encoding
	data := []byte(env.Data)
	mid := len(data) / 2
	if data[mid] == 'A' {
		data[mid] = 'B'
	} else {
		data[mid] = 'A'
	}
	env.Data = string(data)

	tampered, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Failed to reserialize envelope: %v", err)
	}

	if _, err = DecryptWithPin(tampered, "1234"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("Expected ErrDecryptFailed for tampered ciphertext, got %v", err)
	}
}

func TestHashPinDeterministic(t *testing.T) {
	if HashPin("1234") != HashPin("1234") {
		t.Fatal("HashPin is not deterministic")
	}
	if HashPin("1234") == HashPin("4321") {
		t.Fatal("Different PINs hashed to the same value")
	}
	if HashPin("1234") == HashPin("12345") {
		t.Fatal("Different PINs hashed to the same value")
	}
}

func TestHashPinDistinctFromDerivedKey(t *testing.T) {
	// The auth hash must never double as key material.
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}
	key := DeriveKey("1234", salt)
	if HashPin("1234") == string(key) {
		t.Fatal("Authentication hash equals derived key")
	}
	if len(key) != 32 {
		t.Fatalf("Expected 32-byte key, got %d", len(key))
	}
}

func TestDeriveKeyDeterministicPerSalt(t *testing.T) {
	salt1, _ := NewSalt()
	salt2, _ := NewSalt()

	if !bytes.Equal(DeriveKey("1234", salt1), DeriveKey("1234", salt1)) {
		t.Fatal("DeriveKey not deterministic for fixed (pin, salt)")
	}
	if bytes.Equal(DeriveKey("1234", salt1), DeriveKey("1234", salt2)) {
		t.Fatal("DeriveKey ignored the salt")
	}
	if bytes.Equal(DeriveKey("1234", salt1), DeriveKey("4321", salt1)) {
		t.Fatal("DeriveKey ignored the PIN")
	}
}
