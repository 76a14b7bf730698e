package api

import (
	"github.com/Rubinstd/LearningBlockchain/internal/blockchain"
	papi "github.com/Rubinstd/LearningBlockchain/pkg/api"
)

func toWireTx(tx blockchain.Transaction) papi.Transaction {
	return papi.Transaction{
		Author:    tx.Author,
		Content:   tx.Content,
		Timestamp: tx.Timestamp,
	}
}

func toWireTxs(txs []blockchain.Transaction) []papi.Transaction {
	out := make([]papi.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = toWireTx(tx)
	}
	return out
}

func toWireBlock(b blockchain.Block) papi.Block {
	return papi.Block{
		Index:        b.Index,
		Transactions: toWireTxs(b.Transactions),
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
		Hash:         b.Hash,
	}
}

func toWireBlocks(bs []blockchain.Block) []papi.Block {
	out := make([]papi.Block, len(bs))
	for i, b := range bs {
		out[i] = toWireBlock(b)
	}
	return out
}
