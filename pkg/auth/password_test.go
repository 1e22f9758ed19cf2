package auth

import (
	"errors"
	"testing"
)

func TestHashPasswordAndCheckPasswordBcrypt(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" || hash == "s3cret" {
		t.Fatalf("expected opaque non-empty hash, got %q", hash)
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected bcrypt password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected bcrypt password check to fail")
	}
}

func TestHashPasswordSalts(t *testing.T) {
	first, err := HashPassword("same")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	second, err := HashPassword("same")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct salted hashes")
	}
	if !CheckPassword("same", first) || !CheckPassword("same", second) {
		t.Fatalf("expected both hashes to verify")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	for _, stored := range []string{"", "not-a-hash", "$2a$10$short", "salt$deadbeef"} {
		if CheckPassword("anything", stored) {
			t.Fatalf("expected malformed hash %q to fail", stored)
		}
	}
}

func TestHashPasswordRequiresValue(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
}
