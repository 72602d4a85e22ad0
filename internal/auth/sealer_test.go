package auth

import (
	"errors"
	"testing"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("super-secret")
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}

	sealed, err := s.Seal("ya29.access-token")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if string(sealed) == "ya29.access-token" {
		t.Fatal("sealed value equals plaintext")
	}

	again, _ := s.Seal("ya29.access-token")
	if string(again) == string(sealed) {
		t.Error("sealing twice produced identical ciphertext")
	}

	got, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got != "ya29.access-token" {
		t.Errorf("Open() = %q", got)
	}
}

func TestSealer_WrongKey(t *testing.T) {
	a, _ := NewSealer("key-a")
	b, _ := NewSealer("key-b")

	sealed, _ := a.Seal("token")
	if _, err := b.Open(sealed); !errors.Is(err, ErrUnseal) {
		t.Errorf("expected ErrUnseal, got %v", err)
	}
	if _, err := a.Open([]byte("short")); !errors.Is(err, ErrUnseal) {
		t.Errorf("expected ErrUnseal for truncated input, got %v", err)
	}
}

func TestSealer_Empty(t *testing.T) {
	s, _ := NewSealer("k")
	sealed, err := s.Seal("")
	if err != nil || sealed != nil {
		t.Errorf("Seal(\"\") = %v, %v", sealed, err)
	}
	if got, err := s.Open(nil); err != nil || got != "" {
		t.Errorf("Open(nil) = %q, %v", got, err)
	}
	if _, err := NewSealer(""); err == nil {
		t.Error("expected error for empty secret")
	}
}
