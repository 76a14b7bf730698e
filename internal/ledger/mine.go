package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Rubinstd/LearningBlockchain/internal/blockchain"
	"github.com/Rubinstd/LearningBlockchain/internal/consensus"
)

type MineResult struct {
	Index    uint64
	Block    blockchain.Block
	Attempts uint64
	Elapsed  time.Duration
}

// AddTransaction queues tx for the next block. No validation happens here.
func (l *Ledger) AddTransaction(tx blockchain.Transaction) {
	l.mu.Lock()
	l.pending = append(l.pending, tx)
	l.mu.Unlock()
}

// ProofOfWork searches for the smallest qualifying nonce of candidate.
// candidate is not modified; build the sealed block from the returned proof.
func (l *Ledger) ProofOfWork(ctx context.Context, candidate blockchain.Block) (consensus.Proof, error) {
	return l.engine.Seal(ctx, blockchain.NewCandidate(candidate, l.digest))
}

// Mine packs the whole pending queue into a new block, searches its nonce and
// appends it. The mined transactions leave the queue only if the append
// succeeds; on ErrNothingToMine, cancellation or rejection nothing changes.
func (l *Ledger) Mine(ctx context.Context) (MineResult, error) {
	l.mineMu.Lock()
	defer l.mineMu.Unlock()

	l.mu.RLock()
	batch := blockchain.CloneTransactions(l.pending)
	last := l.chain[len(l.chain)-1]
	l.mu.RUnlock()

	if len(batch) == 0 {
		return MineResult{}, ErrNothingToMine
	}

	candidate := blockchain.NewBlock(last.Index+1, batch, l.clock().UTC().Unix(), last.Hash)

	start := time.Now()
	proof, err := l.ProofOfWork(ctx, candidate)
	elapsed := time.Since(start)
	if err != nil {
		l.log.Warn("mining aborted",
			"index", candidate.Index,
			"attempts", proof.Attempts,
			"elapsed", elapsed,
			"err", err,
		)
		return MineResult{}, fmt.Errorf("mine block %d: %w", candidate.Index, err)
	}

	sealed := candidate.WithNonce(proof.Nonce)

	l.mu.Lock()
	if err := l.appendLocked(sealed, proof.Hash); err != nil {
		l.mu.Unlock()
		return MineResult{}, fmt.Errorf("mine block %d: %w", candidate.Index, err)
	}
	rest := make([]blockchain.Transaction, len(l.pending)-len(batch))
	copy(rest, l.pending[len(batch):])
	l.pending = rest
	mined := l.chain[len(l.chain)-1].Clone()
	l.mu.Unlock()

	l.log.Info("block mined",
		"index", mined.Index,
		"txs", len(mined.Transactions),
		"nonce", mined.Nonce,
		"attempts", proof.Attempts,
		"elapsed", elapsed,
		"hash", mined.Hash,
	)

	return MineResult{
		Index:    mined.Index,
		Block:    mined,
		Attempts: proof.Attempts,
		Elapsed:  elapsed,
	}, nil
}
