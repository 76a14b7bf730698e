package ledger

import (
	"fmt"

	"github.com/Rubinstd/LearningBlockchain/internal/blockchain"
)

// IsValidProof reports whether claimed meets the difficulty target and equals
// the digest recomputed from the block's current fields.
func (l *Ledger) IsValidProof(b blockchain.Block, claimed string) bool {
	return l.engine.MeetsTarget(claimed) && claimed == b.ComputeHashWith(l.digest)
}

// AddBlock seals candidate with proof and appends it. candidate must be
// unsealed; a block keeps the hash it was sealed with. On any error the chain
// is left unchanged.
func (l *Ledger) AddBlock(candidate blockchain.Block, proof string) error {
	l.mineMu.Lock()
	defer l.mineMu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(candidate, proof)
}

// TryAddBlock is AddBlock reduced to an accepted/rejected outcome.
func (l *Ledger) TryAddBlock(candidate blockchain.Block, proof string) bool {
	return l.AddBlock(candidate, proof) == nil
}

// appendLocked requires l.mu held for writing.
func (l *Ledger) appendLocked(candidate blockchain.Block, proof string) error {
	last := l.chain[len(l.chain)-1]

	if candidate.PreviousHash != last.Hash {
		l.log.Warn("block rejected", "index", candidate.Index, "reason", "linkage")
		return fmt.Errorf("%w: got %q, tip is %q", ErrLinkageMismatch, candidate.PreviousHash, last.Hash)
	}
	if candidate.Sealed() {
		l.log.Warn("block rejected", "index", candidate.Index, "reason", "sealed")
		return fmt.Errorf("%w: candidate already carries hash %q", ErrInvalidProof, candidate.Hash)
	}
	if !l.IsValidProof(candidate, proof) {
		l.log.Warn("block rejected", "index", candidate.Index, "reason", "proof")
		return fmt.Errorf("%w: %q", ErrInvalidProof, proof)
	}
	if candidate.Index != last.Index+1 {
		l.log.Warn("block rejected", "index", candidate.Index, "reason", "index")
		return fmt.Errorf("%w: expected %d, got %d", ErrIndexMismatch, last.Index+1, candidate.Index)
	}

	sealed := candidate.Clone()
	sealed.Hash = proof

	if err := l.index.put(sealed.Hash, sealed.Index); err != nil {
		return err
	}
	l.chain = append(l.chain, sealed)
	return nil
}

// Verify audits the whole chain: genesis shape, contiguous indexes, hash
// linkage, seals and the difficulty target on every non-genesis block.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.chain) == 0 {
		return fmt.Errorf("%w: empty chain", ErrCorruptChain)
	}

	g := l.chain[0]
	if g.Index != 0 || g.PreviousHash != blockchain.GenesisPreviousHash {
		return fmt.Errorf("%w: invalid genesis block", ErrCorruptChain)
	}
	if !g.Sealed() || g.Hash != g.ComputeHashWith(l.digest) {
		return fmt.Errorf("%w: genesis seal mismatch", ErrCorruptChain)
	}

	for i := 1; i < len(l.chain); i++ {
		cur, prev := l.chain[i], l.chain[i-1]

		if !cur.Sealed() {
			return fmt.Errorf("%w: block %d: not sealed", ErrCorruptChain, i)
		}
		if cur.Index != uint64(i) {
			return fmt.Errorf("%w: block %d: index is %d", ErrCorruptChain, i, cur.Index)
		}
		if cur.PreviousHash != prev.Hash {
			return fmt.Errorf("%w: block %d: previous hash mismatch", ErrCorruptChain, i)
		}
		if !l.IsValidProof(cur, cur.Hash) {
			return fmt.Errorf("%w: block %d: seal does not match content", ErrCorruptChain, i)
		}
	}
	return nil
}
