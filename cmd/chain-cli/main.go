package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/Rubinstd/LearningBlockchain/internal/blockchain"
	"github.com/Rubinstd/LearningBlockchain/internal/ledger"
	"github.com/Rubinstd/LearningBlockchain/internal/logging"
	"github.com/Rubinstd/LearningBlockchain/pkg/api"
	"github.com/Rubinstd/LearningBlockchain/pkg/version"
)

const defaultNode = "http://127.0.0.1:8080"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "version":
		runVersion()
	case "submit":
		runSubmit(os.Args[2:])
	case "mine":
		runMine(os.Args[2:])
	case "chain":
		runChain(os.Args[2:])
	case "pending":
		runPending(os.Args[2:])
	case "verify":
		runVerify(os.Args[2:])
	case "block":
		runBlock(os.Args[2:])
	case "local-mine":
		runLocalMine(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Print(`chain CLI

Usage:
  chain-cli version
  chain-cli submit --author <name> --content <text> [--node <url>] [--key <api key>]
  chain-cli mine [--timeout 60s] [--node <url>] [--key <api key>]
  chain-cli chain [--node <url>]
  chain-cli pending [--node <url>]
  chain-cli verify [--node <url>]
  chain-cli block (--index <n> | --hash <hex>) [--node <url>]
  chain-cli local-mine [--difficulty 2] [--digest sha256] [--log-level warn] --tx author:content ...

Notes:
  - --node defaults to $CHAIN_NODE or ` + defaultNode + `.
  - local-mine runs an in-process ledger; nothing is sent to a node.
`)
}

type remoteFlags struct {
	node *string
	key  *string
}

func newRemoteFlags(fs *flag.FlagSet) remoteFlags {
	node := os.Getenv("CHAIN_NODE")
	if node == "" {
		node = defaultNode
	}
	return remoteFlags{
		node: fs.String("node", node, "Node base URL"),
		key:  fs.String("key", os.Getenv("CHAIN_API_KEY"), "API key for submit and mine"),
	}
}

func (r remoteFlags) client() *api.Client {
	c, err := api.New(*r.node, api.WithAPIKey(*r.key))
	if err != nil {
		fatal(err)
	}
	return c
}

func runVersion() {
	v := version.Get()
	pterm.DefaultBox.WithTitle("chain-cli").Println(fmt.Sprintf(
		"Version: %s\nCommit:  %s\nGo:      %s\nTarget:  %s",
		v.Version, v.Commit, v.GoVersion, v.Platform))
}

func runSubmit(args []string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	rf := newRemoteFlags(fs)
	author := fs.String("author", "", "Transaction author")
	content := fs.String("content", "", "Transaction content")
	_ = fs.Parse(args)

	if strings.TrimSpace(*author) == "" || strings.TrimSpace(*content) == "" {
		fatal(errors.New("--author and --content are required"))
	}

	tx, err := rf.client().SubmitTransaction(context.Background(), *author, *content)
	if err != nil {
		fatal(err)
	}
	pterm.Success.Printfln("queued transaction from %s at %s", tx.Author, formatUnix(tx.Timestamp))
}

func runMine(args []string) {
	fs := flag.NewFlagSet("mine", flag.ExitOnError)
	rf := newRemoteFlags(fs)
	timeout := fs.Duration("timeout", 60*time.Second, "Give up waiting after this long")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	spin, _ := pterm.DefaultSpinner.Start("mining pending transactions")
	res, err := rf.client().Mine(ctx)
	switch {
	case errors.Is(err, api.ErrNothingToMine):
		spin.Warning("no transactions to mine")
		return
	case err != nil:
		spin.Fail(err.Error())
		os.Exit(1)
	}
	spin.Success(fmt.Sprintf("mined block %d after %d attempts in %dms", res.Index, res.Attempts, res.ElapsedMs))
	printBlock(*res.Block)
}

func runChain(args []string) {
	fs := flag.NewFlagSet("chain", flag.ExitOnError)
	rf := newRemoteFlags(fs)
	_ = fs.Parse(args)

	ch, err := rf.client().Chain(context.Background())
	if err != nil {
		fatal(err)
	}
	pterm.Info.Printfln("length %d, difficulty %d, digest %s", ch.Length, ch.Difficulty, ch.Digest)
	printChain(ch.Chain)
}

func runPending(args []string) {
	fs := flag.NewFlagSet("pending", flag.ExitOnError)
	rf := newRemoteFlags(fs)
	_ = fs.Parse(args)

	p, err := rf.client().Pending(context.Background())
	if err != nil {
		fatal(err)
	}
	if p.Count == 0 {
		pterm.Info.Println("pending queue is empty")
		return
	}
	printTransactions(p.Transactions)
}

func runVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	rf := newRemoteFlags(fs)
	_ = fs.Parse(args)

	_, err := rf.client().Verify(context.Background())
	var se *api.StatusError
	switch {
	case err == nil:
		pterm.Success.Println("VALID")
	case errors.As(err, &se) && se.Status == 409:
		pterm.Error.Println("INVALID: " + se.Message)
		os.Exit(1)
	default:
		fatal(err)
	}
}

func runBlock(args []string) {
	fs := flag.NewFlagSet("block", flag.ExitOnError)
	rf := newRemoteFlags(fs)
	index := fs.String("index", "", "Block height")
	hash := fs.String("hash", "", "Block hash (hex)")
	_ = fs.Parse(args)

	var (
		b   api.Block
		err error
	)
	switch {
	case *index != "" && *hash != "":
		fatal(errors.New("use either --index or --hash"))
	case *hash != "":
		b, err = rf.client().BlockByHash(context.Background(), strings.TrimSpace(*hash))
	default:
		n, perr := strconv.ParseUint(*index, 10, 64)
		if perr != nil {
			fatal(fmt.Errorf("--index: %w", perr))
		}
		b, err = rf.client().Block(context.Background(), n)
	}
	if err != nil {
		fatal(err)
	}
	printBlock(b)
}

type txList []string

func (l *txList) String() string     { return strings.Join(*l, ",") }
func (l *txList) Set(v string) error { *l = append(*l, v); return nil }

func runLocalMine(args []string) {
	fs := flag.NewFlagSet("local-mine", flag.ExitOnError)
	difficulty := fs.Int("difficulty", ledger.DefaultDifficulty, "Leading zero hex digits")
	digest := fs.String("digest", "sha256", "sha256|sha3-256")
	logLevel := fs.String("log-level", "warn", "Ledger log level on stderr: debug|info|warn|error")
	var txs txList
	fs.Var(&txs, "tx", "Transaction as author:content (repeatable)")
	_ = fs.Parse(args)

	if len(txs) == 0 {
		fatal(errors.New("at least one --tx is required"))
	}

	log := logging.NewWithWriter(os.Stderr, logging.Config{
		App:    "chain-cli",
		Level:  *logLevel,
		Format: "text",
	})
	led, err := ledger.New(ledger.Options{Difficulty: *difficulty, Digest: *digest, Logger: log})
	if err != nil {
		fatal(err)
	}
	for _, raw := range txs {
		author, content, ok := strings.Cut(raw, ":")
		if !ok || author == "" || content == "" {
			fatal(fmt.Errorf("bad --tx %q, want author:content", raw))
		}
		led.AddTransaction(blockchain.NewTransaction(author, content, time.Time{}))
	}

	spin, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("mining %d transactions at difficulty %d", len(txs), *difficulty))
	res, err := led.Mine(context.Background())
	if err != nil {
		spin.Fail(err.Error())
		os.Exit(1)
	}
	spin.Success(fmt.Sprintf("mined block %d after %d attempts in %s", res.Index, res.Attempts, res.Elapsed.Round(time.Millisecond)))

	if err := led.Verify(); err != nil {
		fatal(err)
	}
	printChain(localBlocks(led.Blocks()))
}

func localBlocks(blocks []blockchain.Block) []api.Block {
	out := make([]api.Block, 0, len(blocks))
	for _, b := range blocks {
		txs := make([]api.Transaction, 0, len(b.Transactions))
		for _, tx := range b.Transactions {
			txs = append(txs, api.Transaction{Author: tx.Author, Content: tx.Content, Timestamp: tx.Timestamp})
		}
		out = append(out, api.Block{
			Index:        b.Index,
			Transactions: txs,
			Timestamp:    b.Timestamp,
			PreviousHash: b.PreviousHash,
			Nonce:        b.Nonce,
			Hash:         b.Hash,
		})
	}
	return out
}

func printChain(blocks []api.Block) {
	data := pterm.TableData{{"Index", "Txs", "Timestamp", "Nonce", "Previous", "Hash"}}
	for _, b := range blocks {
		data = append(data, []string{
			strconv.FormatUint(b.Index, 10),
			strconv.Itoa(len(b.Transactions)),
			formatUnix(b.Timestamp),
			strconv.FormatUint(b.Nonce, 10),
			short(b.PreviousHash),
			short(b.Hash),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		fatal(err)
	}
}

func printBlock(b api.Block) {
	body := fmt.Sprintf("Timestamp: %s\nNonce:     %d\nPrevious:  %s\nHash:      %s",
		formatUnix(b.Timestamp), b.Nonce, b.PreviousHash, b.Hash)
	pterm.DefaultBox.WithTitle(pterm.LightCyan(fmt.Sprintf("|BLOCK %d|", b.Index))).WithTitleTopCenter().Println(body)
	if len(b.Transactions) > 0 {
		printTransactions(b.Transactions)
	}
}

func printTransactions(txs []api.Transaction) {
	data := pterm.TableData{{"Author", "Content", "Timestamp"}}
	for _, tx := range txs {
		data = append(data, []string{tx.Author, tx.Content, formatUnix(tx.Timestamp)})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		fatal(err)
	}
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

func short(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "…"
}

func fatal(err error) {
	_, _ = os.Stderr.WriteString("chain-cli error: " + err.Error() + "\n")
	os.Exit(1)
}
