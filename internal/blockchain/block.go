package blockchain

import (
	"encoding/hex"
	"encoding/json"
	"unicode/utf8"

	vcrypto "github.com/Rubinstd/LearningBlockchain/internal/crypto"
)

// GenesisPreviousHash is the sentinel back-reference of block 0.
const GenesisPreviousHash = "0"

type Block struct {
	Index        uint64        `json:"index"`
	Transactions []Transaction `json:"transactions"`
	Timestamp    int64         `json:"timestamp"`
	PreviousHash string        `json:"previous_hash"`
	Nonce        uint64        `json:"nonce"`
	Hash         string        `json:"hash"`
}

// hashView is the hashed form of a block. Fields are declared in sorted key
// order so encoding/json emits a canonical object; Hash is left out.
type hashView struct {
	Index        uint64     `json:"index"`
	Nonce        uint64     `json:"nonce"`
	PreviousHash hashString `json:"previous_hash"`
	Timestamp    int64      `json:"timestamp"`
	Transactions []hashTx   `json:"transactions"`
}

type hashTx struct {
	Author    hashString `json:"author"`
	Content   hashString `json:"content"`
	Timestamp int64      `json:"timestamp"`
}

// hashString encodes valid UTF-8 as a plain JSON string. Anything else would
// be coerced to U+FFFD by encoding/json, so it is written as {"hex":"..."}
// instead and distinct byte strings keep distinct encodings.
type hashString string

func (s hashString) MarshalJSON() ([]byte, error) {
	if utf8.ValidString(string(s)) {
		return json.Marshal(string(s))
	}
	return json.Marshal(struct {
		Hex string `json:"hex"`
	}{hex.EncodeToString([]byte(s))})
}

// NewBlock builds an unsealed block with nonce 0. txs is copied.
func NewBlock(index uint64, txs []Transaction, timestamp int64, previousHash string) Block {
	return Block{
		Index:        index,
		Transactions: CloneTransactions(txs),
		Timestamp:    timestamp,
		PreviousHash: previousHash,
	}
}

// NewGenesisBlock builds and seals block 0. Genesis is not subject to
// proof-of-work.
func NewGenesisBlock(timestamp int64, digest vcrypto.Digest) Block {
	g := NewBlock(0, nil, timestamp, GenesisPreviousHash)
	g.Hash = g.ComputeHashWith(digest)
	return g
}

// CanonicalBytes is the serialization that ComputeHash digests.
func (b Block) CanonicalBytes() []byte {
	txs := make([]hashTx, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = hashTx{
			Author:    hashString(tx.Author),
			Content:   hashString(tx.Content),
			Timestamp: tx.Timestamp,
		}
	}
	// Marshal cannot fail for integer and string fields.
	raw, _ := json.Marshal(hashView{
		Index:        b.Index,
		Nonce:        b.Nonce,
		PreviousHash: hashString(b.PreviousHash),
		Timestamp:    b.Timestamp,
		Transactions: txs,
	})
	return raw
}

// ComputeHash returns the SHA-256 hex digest of every field except Hash.
func (b Block) ComputeHash() string {
	return b.ComputeHashWith(vcrypto.Sha256Hex)
}

func (b Block) ComputeHashWith(digest vcrypto.Digest) string {
	if digest == nil {
		digest = vcrypto.Sha256Hex
	}
	return digest(b.CanonicalBytes())
}

// WithNonce returns an unsealed copy carrying nonce.
func (b Block) WithNonce(nonce uint64) Block {
	out := b.Clone()
	out.Nonce = nonce
	out.Hash = ""
	return out
}

func (b Block) Sealed() bool { return b.Hash != "" }

// Clone deep-copies the block so callers cannot reach ledger-owned slices.
func (b Block) Clone() Block {
	out := b
	out.Transactions = CloneTransactions(b.Transactions)
	return out
}

// Candidate adapts an unsealed block to the nonce search. Each HashAt call
// hashes a private copy, so the block itself is never touched.
type Candidate struct {
	block  Block
	digest vcrypto.Digest
}

func NewCandidate(b Block, digest vcrypto.Digest) Candidate {
	if digest == nil {
		digest = vcrypto.Sha256Hex
	}
	return Candidate{block: b.Clone(), digest: digest}
}

func (c Candidate) HashAt(nonce uint64) string {
	b := c.block
	b.Nonce = nonce
	return b.ComputeHashWith(c.digest)
}

func (c Candidate) Block() Block { return c.block.Clone() }
