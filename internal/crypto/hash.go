package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Digest maps a serialized payload to a lowercase hex string.
type Digest func(data []byte) string

const (
	DigestSHA256  = "sha256"
	DigestSHA3256 = "sha3-256"
)

func Sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func Sha3Hex(data []byte) string {
	h := sha3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// DigestByName resolves a configured digest name. Empty means sha256.
func DigestByName(name string) (Digest, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DigestSHA256:
		return Sha256Hex, nil
	case DigestSHA3256, "sha3":
		return Sha3Hex, nil
	default:
		return nil, fmt.Errorf("unknown digest: %q", name)
	}
}
