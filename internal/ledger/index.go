package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"

	vcrypto "github.com/Rubinstd/LearningBlockchain/internal/crypto"
)

// hashIndex maps raw block hash bytes to a big-endian height. It lives in
// memory only and is rebuilt with the chain on every start.
type hashIndex struct {
	db *memdb.DB
}

func newHashIndex() *hashIndex {
	return &hashIndex{db: memdb.New(comparer.DefaultComparer, 0)}
}

func (x *hashIndex) put(hash string, height uint64) error {
	key, err := vcrypto.DecodeHash(hash)
	if err != nil {
		return fmt.Errorf("index block %d: %w", height, err)
	}
	var val [8]byte
	binary.BigEndian.PutUint64(val[:], height)
	return x.db.Put(key, val[:])
}

func (x *hashIndex) get(hash string) (uint64, bool) {
	key, err := vcrypto.DecodeHash(hash)
	if err != nil {
		return 0, false
	}
	val, err := x.db.Get(key)
	if err != nil || len(val) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(val), true
}

func (x *hashIndex) len() int { return x.db.Len() }
