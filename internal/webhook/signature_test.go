package webhook

import (
	"testing"
	"time"
)

func TestSignatureSkippedWithoutKey(t *testing.T) {
	v := NewSignatureValidator("", nil)
	if v.Enabled() {
		t.Fatal("validator should be disabled without a key")
	}
	if !v.Valid("") || !v.Valid("Bearer garbage") {
		t.Fatal("disabled validator must accept everything")
	}
}

func TestSignatureValid(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	v := NewSignatureValidator("topsecret", func() time.Time { return now })

	token, err := SignToken("topsecret", map[string]any{"exp": now.Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !v.Valid("Bearer " + token) {
		t.Fatal("correctly signed token rejected")
	}
}

func TestSignatureRejections(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	v := NewSignatureValidator("topsecret", func() time.Time { return now })

	good, _ := SignToken("topsecret", map[string]any{"exp": now.Add(time.Hour).Unix()})
	wrongKey, _ := SignToken("other", map[string]any{"exp": now.Add(time.Hour).Unix()})
	expired, _ := SignToken("topsecret", map[string]any{"exp": now.Add(-time.Minute).Unix()})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", good},
		{"not a jwt", "Bearer abc"},
		{"wrong key", "Bearer " + wrongKey},
		{"expired", "Bearer " + expired},
		{"tampered signature", "Bearer " + good + "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if v.Valid(tc.header) {
				t.Fatalf("header %q accepted", tc.header)
			}
		})
	}
}

func TestSignatureNoExpiry(t *testing.T) {
	v := NewSignatureValidator("topsecret", nil)
	token, _ := SignToken("topsecret", map[string]any{"sub": "webhook"})
	if !v.Valid("Bearer " + token) {
		t.Fatal("token without exp claim rejected")
	}
}
