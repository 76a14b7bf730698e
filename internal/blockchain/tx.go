package blockchain

import "time"

// Transaction is an application record carried by a block. The core does not
// inspect it beyond hashing.
type Transaction struct {
	Author    string `json:"author"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// NewTransaction stamps a record with the given time (UTC, unix seconds).
// A zero time means now.
func NewTransaction(author, content string, at time.Time) Transaction {
	if at.IsZero() {
		at = time.Now()
	}
	return Transaction{
		Author:    author,
		Content:   content,
		Timestamp: at.UTC().Unix(),
	}
}

// CloneTransactions returns a copy of txs that never aliases the input.
// A nil input yields an empty, non-nil slice so hashing sees "[]".
func CloneTransactions(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}
