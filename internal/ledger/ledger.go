package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Rubinstd/LearningBlockchain/internal/blockchain"
	"github.com/Rubinstd/LearningBlockchain/internal/consensus"
	vcrypto "github.com/Rubinstd/LearningBlockchain/internal/crypto"
)

// DefaultDifficulty is what the node and CLI configure when nothing else is
// set. Options has no implicit default.
const DefaultDifficulty = 2

var (
	ErrLinkageMismatch = errors.New("previous hash does not match chain tip")
	ErrInvalidProof    = errors.New("invalid proof of work")
	ErrIndexMismatch   = errors.New("block index does not follow chain tip")
	ErrNothingToMine   = errors.New("no transactions to mine")
	ErrCorruptChain    = errors.New("corrupt chain")
	ErrBlockNotFound   = errors.New("block not found")
)

type Options struct {
	// Difficulty is the number of leading '0' hex characters a sealed
	// non-genesis hash must carry. Fixed for the lifetime of the ledger.
	// Zero is not replaced with DefaultDifficulty: it disables the work
	// requirement and every candidate seals at nonce 0.
	Difficulty int
	// Digest names the hash function: sha256 (default) or sha3-256.
	Digest string
	// GenesisTime stamps block 0. Zero means the Unix epoch.
	GenesisTime time.Time
	// Clock stamps mined blocks. Nil means time.Now.
	Clock  func() time.Time
	Logger *slog.Logger
}

// Ledger owns the chain and the pending transaction queue.
// It is safe for concurrent use; miners are serialized end to end.
type Ledger struct {
	// mineMu serializes Mine and AddBlock, including the nonce search.
	mineMu sync.Mutex

	mu      sync.RWMutex
	chain   []blockchain.Block
	pending []blockchain.Transaction
	index   *hashIndex

	engine     consensus.Engine
	difficulty int
	digestName string
	digest     vcrypto.Digest
	clock      func() time.Time
	log        *slog.Logger
}

// New creates a ledger holding only the genesis block.
func New(opts Options) (*Ledger, error) {
	pow, err := consensus.NewPoW(opts.Difficulty)
	if err != nil {
		return nil, err
	}
	digest, err := vcrypto.DigestByName(opts.Digest)
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var genesisTS int64
	if !opts.GenesisTime.IsZero() {
		genesisTS = opts.GenesisTime.UTC().Unix()
	}
	genesis := blockchain.NewGenesisBlock(genesisTS, digest)

	l := &Ledger{
		chain:      []blockchain.Block{genesis},
		pending:    []blockchain.Transaction{},
		index:      newHashIndex(),
		engine:     pow,
		difficulty: opts.Difficulty,
		digestName: opts.Digest,
		digest:     digest,
		clock:      clock,
		log:        log,
	}
	if err := l.index.put(genesis.Hash, 0); err != nil {
		return nil, fmt.Errorf("index genesis: %w", err)
	}
	if l.digestName == "" {
		l.digestName = vcrypto.DigestSHA256
	}

	if l.difficulty == 0 {
		log.Warn("difficulty is 0; blocks seal without proof-of-work")
	}
	log.Debug("ledger initialized",
		"difficulty", l.difficulty,
		"digest", l.digestName,
		"genesis", genesis.Hash,
	)
	return l, nil
}

func (l *Ledger) Difficulty() int { return l.difficulty }

func (l *Ledger) DigestName() string { return l.digestName }

func (l *Ledger) LastBlock() blockchain.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[len(l.chain)-1].Clone()
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// Blocks returns a deep copy of the chain, genesis first.
func (l *Ledger) Blocks() []blockchain.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]blockchain.Block, len(l.chain))
	for i := range l.chain {
		out[i] = l.chain[i].Clone()
	}
	return out
}

func (l *Ledger) BlockByIndex(index uint64) (blockchain.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index >= uint64(len(l.chain)) {
		return blockchain.Block{}, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
	}
	return l.chain[index].Clone(), nil
}

func (l *Ledger) BlockByHash(hash string) (blockchain.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	height, ok := l.index.get(hash)
	if !ok || height >= uint64(len(l.chain)) {
		return blockchain.Block{}, fmt.Errorf("%w: hash %s", ErrBlockNotFound, hash)
	}
	return l.chain[height].Clone(), nil
}

// Pending returns the queue verbatim, oldest first.
func (l *Ledger) Pending() []blockchain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return blockchain.CloneTransactions(l.pending)
}

func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}
