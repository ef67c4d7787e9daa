package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	raw, err := codec.Encode("alice", true, 30*time.Minute)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Username != "alice" {
		t.Fatalf("expected username alice, got %q", claims.Username)
	}
	if !claims.IsAdmin {
		t.Fatal("expected admin flag to survive the round trip")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatal("expected issued-at and expiry to be set")
	}
	if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		t.Fatal("expiry must be strictly later than issuance")
	}
}

func TestDecodeExpiredToken(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return issued }
	raw, err := codec.Encode("alice", false, 720*time.Hour)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// 31 days after issuance of a 30-day token.
	codec.now = func() time.Time { return issued.Add(31 * 24 * time.Hour) }
	if _, err := codec.Decode(raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestDecodeJustBeforeExpiry(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return issued }
	raw, err := codec.Encode("bob", false, 30*time.Minute)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	codec.now = func() time.Time { return issued.Add(29 * time.Minute) }
	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("decode before expiry: %v", err)
	}
	if claims.Username != "bob" {
		t.Fatalf("unexpected username %q", claims.Username)
	}
}

func TestDecodeMalformedInputs(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"two segments": "aaaa.bbbb",
	}
	for name, raw := range cases {
		if _, err := codec.Decode(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	theirs, err := New("their-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	ours, err := New("our-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	raw, err := theirs.Encode("mallory", true, time.Hour)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := ours.Decode(raw); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for foreign signature, got %v", err)
	}
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	raw, err := codec.Encode("alice", false, time.Hour)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	// Swap the payload for one signed under the same header shape.
	other, err := codec.Encode("mallory", true, time.Hour)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tampered := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]
	if _, err := codec.Decode(tampered); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for tampered payload, got %v", err)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestEncodeRequiresPositiveValidity(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	if _, err := codec.Encode("alice", false, 0); err == nil {
		t.Fatal("expected error for zero validity")
	}
}
