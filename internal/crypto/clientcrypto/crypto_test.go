package clientcrypto

import (
	"bytes"
	"crypto/subtle"
	"testing"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	const n = 48
	a, err := Rand(n)
	if err != nil {
		t.Fatalf("Rand: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := Rand(n)
	if bytes.Equal(a, b) {
		t.Fatalf("Rand produced equal slices")
	}
}

func TestDeriveKEK_DeterministicAndSaltDependent(t *testing.T) {
	t.Parallel()
	pw := []byte("secret-pass")
	s1 := []byte("salt-1")
	s2 := []byte("salt-2")
	k1 := DeriveKEK(pw, s1)
	k2 := DeriveKEK(pw, s1)
	if subtle.ConstantTimeCompare(k1, k2) != 1 {
		t.Fatalf("DeriveKEK not deterministic")
	}
	if subtle.ConstantTimeCompare(k1, DeriveKEK(pw, s2)) != 0 {
		t.Fatalf("DeriveKEK must change with salt")
	}
	if subtle.ConstantTimeCompare(k1, DeriveKEK([]byte("other"), s1)) != 0 {
		t.Fatalf("DeriveKEK must change with passphrase")
	}
}

func TestWrapUnwrapKey(t *testing.T) {
	t.Parallel()
	kek := DeriveKEK([]byte("pw"), []byte("salt"))
	master, _ := Rand(KeyLen)

	wrapped, err := WrapKey(kek, master)
	if err != nil {
		t.Fatalf("WrapKey: %v", err)
	}
	out, err := UnwrapKey(kek, wrapped)
	if err != nil {
		t.Fatalf("UnwrapKey: %v", err)
	}
	if subtle.ConstantTimeCompare(out, master) != 1 {
		t.Fatalf("unwrap != original")
	}

	bad := DeriveKEK([]byte("pw2"), []byte("salt"))
	if _, err := UnwrapKey(bad, wrapped); err == nil {
		t.Fatalf("UnwrapKey with wrong kek must fail")
	}
}

func TestDeriveSubkey_DiffPerPurpose(t *testing.T) {
	t.Parallel()
	master, _ := Rand(KeyLen)
	a, err := DeriveSubkey(master, "vault")
	if err != nil {
		t.Fatalf("DeriveSubkey: %v", err)
	}
	b, _ := DeriveSubkey(master, "other")
	again, _ := DeriveSubkey(master, "vault")

	if len(a) != KeyLen {
		t.Fatalf("len=%d", len(a))
	}
	if bytes.Equal(a, b) {
		t.Fatalf("subkeys for different purposes must differ")
	}
	if !bytes.Equal(a, again) {
		t.Fatalf("DeriveSubkey not deterministic")
	}
}

func TestSealOpen_AADBound(t *testing.T) {
	t.Parallel()
	key, _ := Rand(KeyLen)
	pt := []byte(`{"access_token":"abc"}`)

	blob, err := Seal(key, []byte("aad"), pt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(blob, pt) {
		t.Fatalf("plaintext leaked into blob")
	}
	got, err := Open(key, []byte("aad"), blob)
	if err != nil || !bytes.Equal(got, pt) {
		t.Fatalf("Open: %v %q", err, got)
	}
	if _, err := Open(key, []byte("other"), blob); err == nil {
		t.Fatalf("Open with different aad must fail")
	}

	tampered := append([]byte(nil), blob...)
	tampered[len(tampered)-1] ^= 0xFF
	if _, err := Open(key, []byte("aad"), tampered); err == nil {
		t.Fatalf("Open must detect tampering")
	}
	if _, err := Open(key, nil, []byte{1, 2}); err != ErrCiphertextTooShort {
		t.Fatalf("want ErrCiphertextTooShort, got %v", err)
	}
}
