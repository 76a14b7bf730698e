package crypto

import (
	"strings"
	"testing"
)

func TestSha256HexKnownVector(t *testing.T) {
	got := Sha256Hex([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("sha256(abc) = %s, want %s", got, want)
	}
}

func TestSha3HexKnownVector(t *testing.T) {
	got := Sha3Hex([]byte("abc"))
	want := "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"
	if got != want {
		t.Fatalf("sha3-256(abc) = %s, want %s", got, want)
	}
}

func TestDigestByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: Sha256Hex([]byte("x"))},
		{name: "sha256", want: Sha256Hex([]byte("x"))},
		{name: " SHA3-256 ", want: Sha3Hex([]byte("x"))},
		{name: "sha3", want: Sha3Hex([]byte("x"))},
		{name: "md5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DigestByName(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DigestByName(%q) expected error", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("DigestByName(%q) unexpected error: %v", tt.name, err)
			}
			if got := d([]byte("x")); got != tt.want {
				t.Errorf("digest mismatch: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeHash(t *testing.T) {
	if _, err := DecodeHash(""); err == nil {
		t.Errorf("expected error for empty hash")
	}
	if _, err := DecodeHash("zz"); err == nil {
		t.Errorf("expected error for non-hex input")
	}
	b, err := DecodeHash(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b) != 32 {
		t.Errorf("decoded length = %d, want 32", len(b))
	}
}

func TestConstantTimeEqualString(t *testing.T) {
	if !ConstantTimeEqualString("key", "key") {
		t.Errorf("equal strings should compare equal")
	}
	if ConstantTimeEqualString("key", "kez") || ConstantTimeEqualString("key", "keys") {
		t.Errorf("different strings should not compare equal")
	}
}
