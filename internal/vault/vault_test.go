package vault

import (
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintexts := []string{
		"abandon ability able about above absent absorb abstract absurd abuse access accident",
		"5Kb8kLf9zgWQnogidDA76MzPL6TsZZY36hWXMssSzNydYXYB9KF",
		"",
	}
	for _, p := range plaintexts {
		blob, err := Encrypt(p, "hunter2")
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		got, err := Decrypt(blob, "hunter2")
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if got != p {
			t.Fatalf("round trip mismatch: got %q want %q", got, p)
		}
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	a, err := Encrypt("secret material", "pw")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := Encrypt("secret material", "pw")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if a == b {
		t.Fatalf("two encryptions of the same plaintext produced identical blobs")
	}
}

func TestWrongPasswordIndistinguishableFromCorruption(t *testing.T) {
	blob, err := Encrypt("secret material", "correct")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := Decrypt(blob, "wrong"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("wrong password: got %v, want ErrDecryptFailed", err)
	}

	// Tampered ciphertext must fail with the same error kind.
	parts := strings.Split(blob, ":")
	parts[3] = parts[3][:len(parts[3])-4] + "AAA="
	if _, err := Decrypt(strings.Join(parts, ":"), "correct"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("tampered blob: got %v, want ErrDecryptFailed", err)
	}

	// As must a structurally malformed blob.
	if _, err := Decrypt("not:a:blob", "correct"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("malformed blob: got %v, want ErrDecryptFailed", err)
	}
	if _, err := Decrypt("@@@@:"+parts[1]+":"+parts[2]+":"+parts[3], "correct"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("bad base64: got %v, want ErrDecryptFailed", err)
	}
}

func TestBlobFormat(t *testing.T) {
	blob, err := Encrypt("secret material", "pw")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if got := len(strings.Split(blob, ":")); got != 4 {
		t.Fatalf("blob has %d components, want 4", got)
	}
}
