package consensus

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// MaxDifficulty is the length of a hex-encoded 256-bit digest.
const MaxDifficulty = 64

// PoW seals a candidate by finding the smallest nonce whose hex digest starts
// with Difficulty '0' characters.
type PoW struct {
	difficulty int
	target     string
}

var _ Engine = (*PoW)(nil)

func NewPoW(difficulty int) (*PoW, error) {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return nil, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidDifficulty, difficulty, MaxDifficulty)
	}
	return &PoW{difficulty: difficulty, target: strings.Repeat("0", difficulty)}, nil
}

func (p *PoW) Difficulty() int { return p.difficulty }

func (p *PoW) MeetsTarget(hash string) bool {
	return MeetsDifficulty(hash, p.difficulty)
}

// Seal searches nonces 0, 1, 2, ... and returns the first that meets the
// target. The search is unbounded and stops only on success or when ctx is
// done.
func (p *PoW) Seal(ctx context.Context, c Candidate) (Proof, error) {
	done := ctx.Done()
	var attempts uint64
	for nonce := uint64(0); ; nonce++ {
		select {
		case <-done:
			return Proof{Attempts: attempts}, ctx.Err()
		default:
		}

		attempts++
		h := c.HashAt(nonce)
		if strings.HasPrefix(h, p.target) {
			return Proof{Nonce: nonce, Hash: h, Attempts: attempts}, nil
		}
		if nonce == math.MaxUint64 {
			return Proof{Attempts: attempts}, ErrNonceSpaceExhausted
		}
	}
}

// MeetsDifficulty reports whether hash starts with difficulty '0' characters.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty < 0 || len(hash) < difficulty {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}
