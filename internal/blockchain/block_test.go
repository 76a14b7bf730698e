package blockchain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	vcrypto "github.com/Rubinstd/LearningBlockchain/internal/crypto"
)

func sampleBlock() Block {
	txs := []Transaction{
		{Author: "a", Content: "hello", Timestamp: 1700000000},
		{Author: "b", Content: "world", Timestamp: 1700000001},
	}
	return NewBlock(1, txs, 1700000002, strings.Repeat("ab", 32))
}

func TestComputeHashDeterministic(t *testing.T) {
	b := sampleBlock()
	h1 := b.ComputeHash()
	h2 := b.ComputeHash()
	if h1 != h2 {
		t.Fatalf("ComputeHash not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("hash length = %d, want 64", len(h1))
	}
	if strings.ToLower(h1) != h1 {
		t.Fatalf("hash must be lowercase hex: %s", h1)
	}
}

func TestComputeHashIgnoresHashField(t *testing.T) {
	b := sampleBlock()
	before := b.ComputeHash()
	b.Hash = "whatever"
	if after := b.ComputeHash(); after != before {
		t.Fatalf("hash field leaked into digest: %s != %s", after, before)
	}
}

func TestComputeHashCoversEveryField(t *testing.T) {
	base := sampleBlock()
	want := base.ComputeHash()

	mutations := map[string]func(*Block){
		"index":         func(b *Block) { b.Index++ },
		"nonce":         func(b *Block) { b.Nonce++ },
		"timestamp":     func(b *Block) { b.Timestamp++ },
		"previous_hash": func(b *Block) { b.PreviousHash = "deadbeef" },
		"tx content":    func(b *Block) { b.Transactions[0].Content = "tampered" },
		"tx order": func(b *Block) {
			b.Transactions[0], b.Transactions[1] = b.Transactions[1], b.Transactions[0]
		},
		"tx appended": func(b *Block) {
			b.Transactions = append(b.Transactions, Transaction{Author: "c"})
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			b := base.Clone()
			mutate(&b)
			if got := b.ComputeHash(); got == want {
				t.Fatalf("mutation %q did not change the hash", name)
			}
		})
	}
}

func TestCanonicalBytesSortedKeys(t *testing.T) {
	b := sampleBlock()
	raw := string(b.CanonicalBytes())

	keys := []string{`"index"`, `"nonce"`, `"previous_hash"`, `"timestamp"`, `"transactions"`}
	last := -1
	for _, k := range keys {
		i := strings.Index(raw, k)
		if i < 0 {
			t.Fatalf("key %s missing from %s", k, raw)
		}
		if i < last {
			t.Fatalf("key %s out of order in %s", k, raw)
		}
		last = i
	}
	if strings.Contains(raw, `"hash"`) {
		t.Fatalf("canonical form must not contain the hash field: %s", raw)
	}

	txKeys := []string{`"author"`, `"content"`}
	tx := raw[strings.Index(raw, `"transactions"`):]
	last = -1
	for _, k := range txKeys {
		i := strings.Index(tx, k)
		if i < last || i < 0 {
			t.Fatalf("transaction key %s out of order in %s", k, tx)
		}
		last = i
	}
}

func TestNilAndEmptyTransactionsHashEqual(t *testing.T) {
	a := Block{Index: 0, Transactions: nil, PreviousHash: GenesisPreviousHash}
	b := Block{Index: 0, Transactions: []Transaction{}, PreviousHash: GenesisPreviousHash}
	if a.ComputeHash() != b.ComputeHash() {
		t.Fatalf("nil and empty transaction lists must hash the same")
	}
	if !strings.Contains(string(a.CanonicalBytes()), `"transactions":[]`) {
		t.Fatalf("nil transactions should serialize as []: %s", a.CanonicalBytes())
	}
}

func TestComputeHashWithDigest(t *testing.T) {
	b := sampleBlock()
	if b.ComputeHashWith(nil) != b.ComputeHash() {
		t.Fatalf("nil digest should default to sha256")
	}
	if b.ComputeHashWith(vcrypto.Sha3Hex) == b.ComputeHash() {
		t.Fatalf("sha3 and sha256 digests should differ")
	}
	if got, want := b.ComputeHash(), vcrypto.Sha256Hex(b.CanonicalBytes()); got != want {
		t.Fatalf("ComputeHash = %s, want sha256(canonical) %s", got, want)
	}
}

func TestNewBlockCopiesTransactions(t *testing.T) {
	txs := []Transaction{{Author: "a", Content: "x"}}
	b := NewBlock(1, txs, 1, "p")
	txs[0].Content = "changed"
	if b.Transactions[0].Content != "x" {
		t.Fatalf("NewBlock aliases caller slice:\n%s", spew.Sdump(b))
	}
	if b.Nonce != 0 || b.Sealed() {
		t.Fatalf("new block should start unsealed with nonce 0:\n%s", spew.Sdump(b))
	}
}

func TestCloneIsDeep(t *testing.T) {
	b := sampleBlock()
	c := b.Clone()
	c.Transactions[0].Author = "mallory"
	if b.Transactions[0].Author == "mallory" {
		t.Fatalf("Clone shares transaction storage")
	}
}

func TestWithNonceClearsSeal(t *testing.T) {
	b := sampleBlock()
	b.Hash = b.ComputeHash()
	n := b.WithNonce(42)
	if n.Nonce != 42 || n.Sealed() {
		t.Fatalf("WithNonce should set nonce and clear hash:\n%s", spew.Sdump(n))
	}
	if b.Nonce != 0 {
		t.Fatalf("WithNonce mutated receiver")
	}
}

func TestGenesisBlock(t *testing.T) {
	g := NewGenesisBlock(0, vcrypto.Sha256Hex)
	if g.Index != 0 || g.PreviousHash != GenesisPreviousHash || len(g.Transactions) != 0 {
		t.Fatalf("unexpected genesis:\n%s", spew.Sdump(g))
	}
	if g.Hash != g.ComputeHash() {
		t.Fatalf("genesis seal mismatch")
	}
	again := NewGenesisBlock(0, vcrypto.Sha256Hex)
	if again.Hash != g.Hash {
		t.Fatalf("genesis with fixed timestamp should be deterministic")
	}
}

func TestCandidateHashAtDoesNotMutate(t *testing.T) {
	b := sampleBlock()
	c := NewCandidate(b, nil)

	for n := uint64(0); n < 5; n++ {
		want := b.WithNonce(n).ComputeHash()
		if got := c.HashAt(n); got != want {
			t.Fatalf("HashAt(%d) = %s, want %s", n, got, want)
		}
	}
	if got := c.Block(); !reflect.DeepEqual(got, b) {
		t.Fatalf("candidate block changed during search:\n%s", spew.Sdump(got))
	}
}

func TestBlockJSONFieldNames(t *testing.T) {
	b := sampleBlock()
	b.Hash = b.ComputeHash()
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"index", "transactions", "timestamp", "previous_hash", "nonce", "hash"} {
		if _, ok := m[k]; !ok {
			t.Errorf("block JSON missing %q: %s", k, raw)
		}
	}
}

func TestNewTransaction(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	tx := NewTransaction("a", "hello", at)
	if tx.Author != "a" || tx.Content != "hello" || tx.Timestamp != at.Unix() {
		t.Fatalf("unexpected transaction:\n%s", spew.Sdump(tx))
	}
	if now := NewTransaction("a", "b", time.Time{}); now.Timestamp == 0 {
		t.Fatalf("zero time should default to now")
	}
}

func TestCloneTransactionsNil(t *testing.T) {
	out := CloneTransactions(nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("CloneTransactions(nil) = %#v, want empty non-nil slice", out)
	}
}

func TestComputeHashDistinguishesInvalidUTF8(t *testing.T) {
	base := NewBlock(1, []Transaction{{Author: "a", Content: "x\xff", Timestamp: 1}}, 1, "0")
	variants := map[string]string{
		"other invalid byte": "x\xfe",
		"replacement rune":   "x\uFFFD",
		"hex lookalike":      `{"hex":"78ff"}`,
	}
	for name, content := range variants {
		t.Run(name, func(t *testing.T) {
			other := base.Clone()
			other.Transactions[0].Content = content
			if other.ComputeHash() == base.ComputeHash() {
				t.Fatalf("%q and %q hash the same:\n%s", base.Transactions[0].Content, content, other.CanonicalBytes())
			}
		})
	}
}

func TestCanonicalBytesValidStringsStayPlain(t *testing.T) {
	b := NewBlock(1, []Transaction{{Author: "a", Content: "héllo", Timestamp: 1}}, 2, "0")
	want := `{"index":1,"nonce":0,"previous_hash":"0","timestamp":2,"transactions":[{"author":"a","content":"héllo","timestamp":1}]}`
	if got := string(b.CanonicalBytes()); got != want {
		t.Fatalf("CanonicalBytes =\n%s\nwant\n%s", got, want)
	}

	bad := NewBlock(1, []Transaction{{Author: "a", Content: "x\xff", Timestamp: 1}}, 2, "0")
	if !strings.Contains(string(bad.CanonicalBytes()), `"content":{"hex":"78ff"}`) {
		t.Fatalf("invalid UTF-8 not hex-tagged: %s", bad.CanonicalBytes())
	}
}
