package consensus

import (
	"context"
	"errors"
)

// Candidate is anything whose digest can be evaluated at a given nonce
// without being mutated.
type Candidate interface {
	HashAt(nonce uint64) string
}

// Proof is the outcome of a successful search.
type Proof struct {
	Nonce    uint64
	Hash     string
	Attempts uint64
}

// Engine defines the sealing rules for a chain.
type Engine interface {
	Seal(ctx context.Context, c Candidate) (Proof, error)
	MeetsTarget(hash string) bool
}

var (
	ErrInvalidDifficulty   = errors.New("invalid difficulty")
	ErrNonceSpaceExhausted = errors.New("nonce space exhausted")
)
