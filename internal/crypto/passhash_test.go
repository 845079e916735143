package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal", n)
	}
}

func TestHashPassword_Format(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("p@ssw0rd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(h1, "$argon2id$v=19$m=65536,t=3,p=1$") {
		t.Fatalf("unexpected encoding %q", h1)
	}
	h2, err := HashPassword("p@ssw0rd")
	if err != nil {
		t.Fatalf("HashPassword(2): %v", err)
	}
	if h1 == h2 {
		t.Fatalf("same password must get a fresh salt")
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword: ok=%v err=%v", ok, err)
	}
	for _, pw := range []string{"wrong", "", "correct horse battery staple "} {
		ok, err := VerifyPassword(pw, hash)
		if err != nil || ok {
			t.Fatalf("VerifyPassword(%q): ok=%v err=%v", pw, ok, err)
		}
	}
}

func TestVerifyPassword_Malformed(t *testing.T) {
	t.Parallel()

	for _, enc := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=3,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=1$!!$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$",
	} {
		if _, err := VerifyPassword("pw", enc); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("VerifyPassword(%q): want ErrMalformedHash, got %v", enc, err)
		}
	}
}
