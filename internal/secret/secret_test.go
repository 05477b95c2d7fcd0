package secret

import (
	"errors"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestSealOpen(t *testing.T) {
	box, err := NewBox(testKey)
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	sealed, err := box.Seal("123456:telegram-token")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed == "123456:telegram-token" {
		t.Fatal("sealed value equals plaintext")
	}

	again, err := box.Seal("123456:telegram-token")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if again == sealed {
		t.Error("two seals of the same value should differ by nonce")
	}

	plain, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if plain != "123456:telegram-token" {
		t.Errorf("open = %q", plain)
	}
}

func TestEmptyPassesThrough(t *testing.T) {
	box, err := NewBox(testKey)
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	sealed, err := box.Seal("")
	if err != nil || sealed != "" {
		t.Fatalf("seal empty = %q, %v", sealed, err)
	}
	plain, err := box.Open("")
	if err != nil || plain != "" {
		t.Fatalf("open empty = %q, %v", plain, err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	box, err := NewBox(testKey)
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	if _, err := box.Open("not base64!"); err == nil {
		t.Error("expected decode error")
	}
	if _, err := box.Open("YWJj"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("err = %v, want ErrCiphertextTooShort", err)
	}

	other, err := NewBox("fedcba9876543210fedcba9876543210")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	sealed, err := other.Seal("secret")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := box.Open(sealed); err == nil {
		t.Error("expected decrypt error with the wrong key")
	}
}

func TestNewBoxRejectsBadKey(t *testing.T) {
	if _, err := NewBox("short"); err == nil {
		t.Error("expected error for a short key")
	}
}
