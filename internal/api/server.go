package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Rubinstd/LearningBlockchain/internal/blockchain"
	vcrypto "github.com/Rubinstd/LearningBlockchain/internal/crypto"
	"github.com/Rubinstd/LearningBlockchain/internal/ledger"
	papi "github.com/Rubinstd/LearningBlockchain/pkg/api"
	"github.com/Rubinstd/LearningBlockchain/pkg/version"
)

const maxBodyBytes = 64 << 10

// ErrMalformedInput marks a submission rejected at the boundary. It never
// reaches the ledger.
var ErrMalformedInput = errors.New("malformed input")

// Chain is the ledger surface the HTTP layer needs.
type Chain interface {
	AddTransaction(tx blockchain.Transaction)
	Mine(ctx context.Context) (ledger.MineResult, error)
	Blocks() []blockchain.Block
	BlockByIndex(index uint64) (blockchain.Block, error)
	BlockByHash(hash string) (blockchain.Block, error)
	Pending() []blockchain.Transaction
	Difficulty() int
	DigestName() string
	Verify() error
}

type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MineTimeout  time.Duration

	APIKey         string
	AllowedOrigins []string
	RatePerMinute  int
	RateBurst      int
}

type Server struct {
	chain     Chain
	cfg       Config
	log       *slog.Logger
	startedAt time.Time
	now       func() time.Time

	baseCtx    context.Context
	cancelBase context.CancelFunc
	srv        *http.Server
}

func NewServer(chain Chain, cfg Config, log *slog.Logger) *Server {
	if cfg.MineTimeout <= 0 {
		cfg.MineTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		chain:      chain,
		cfg:        cfg,
		log:        log,
		startedAt:  time.Now().UTC(),
		now:        time.Now,
		baseCtx:    ctx,
		cancelBase: cancel,
	}
	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	return s
}

// Handler returns the routed and wrapped API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("POST /new_transaction", s.handleSubmit)
	mux.HandleFunc("GET /mine", s.handleMine)
	mux.HandleFunc("POST /mine", s.handleMine)
	mux.HandleFunc("GET /chain", s.handleChain)
	mux.HandleFunc("GET /chain/verify", s.handleVerify)
	mux.HandleFunc("GET /block/{index}", s.handleBlock)
	mux.HandleFunc("GET /block/hash/{hash}", s.handleBlockByHash)
	mux.HandleFunc("GET /pending_tx", s.handlePending)

	writes := map[string]bool{
		"/new_transaction": true,
		"/mine":            true,
	}

	limited := NewPerMinuteLimiter(s.cfg.RatePerMinute, s.cfg.RateBurst).Middleware(writes, mux)

	return SecurityMiddleware(SecurityConfig{
		AllowedOrigins: s.cfg.AllowedOrigins,
		APIKey:         s.cfg.APIKey,
		RequireKeyFor:  writes,
	}, limited)
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("api listening", "addr", s.cfg.ListenAddr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown cancels in-flight mining and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, papi.Health{
		OK:   true,
		Time: s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	v := version.Get()
	writeJSON(w, http.StatusOK, papi.VersionInfo{
		Version:   v.Version,
		Commit:    v.Commit,
		GoVersion: v.GoVersion,
		Platform:  v.Platform,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := readBodyLimited(r.Body, maxBodyBytes)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	tx, err := s.parseSubmission(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.chain.AddTransaction(tx)
	s.log.Debug("transaction queued", "author", tx.Author, "timestamp", tx.Timestamp)

	writeJSON(w, http.StatusCreated, papi.SubmitResponse{
		OK:          true,
		Transaction: toWireTx(tx),
	})
}

func (s *Server) parseSubmission(body []byte) (blockchain.Transaction, error) {
	var req papi.SubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return blockchain.Transaction{}, fmt.Errorf("%w: invalid json", ErrMalformedInput)
	}
	if strings.TrimSpace(req.Author) == "" {
		return blockchain.Transaction{}, fmt.Errorf("%w: author is required", ErrMalformedInput)
	}
	if strings.TrimSpace(req.Content) == "" {
		return blockchain.Transaction{}, fmt.Errorf("%w: content is required", ErrMalformedInput)
	}
	return blockchain.NewTransaction(req.Author, req.Content, s.now()), nil
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.MineTimeout)
	defer cancel()

	res, err := s.chain.Mine(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrNothingToMine):
		writeJSON(w, http.StatusOK, papi.MineResponse{OK: false, Message: "No transactions to mine"})
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.log.Warn("mine request aborted", "err", err)
		writeError(w, http.StatusServiceUnavailable, "mining aborted: "+err.Error())
		return
	case errors.Is(err, ledger.ErrLinkageMismatch),
		errors.Is(err, ledger.ErrInvalidProof),
		errors.Is(err, ledger.ErrIndexMismatch):
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		s.log.Error("mine failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	b := toWireBlock(res.Block)
	writeJSON(w, http.StatusOK, papi.MineResponse{
		OK:        true,
		Index:     res.Index,
		Block:     &b,
		Attempts:  res.Attempts,
		ElapsedMs: res.Elapsed.Milliseconds(),
	})
}

func (s *Server) handleChain(w http.ResponseWriter, _ *http.Request) {
	blocks := s.chain.Blocks()
	writeJSON(w, http.StatusOK, papi.ChainResponse{
		Length:     len(blocks),
		Difficulty: s.chain.Difficulty(),
		Digest:     s.chain.DigestName(),
		Chain:      toWireBlocks(blocks),
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, _ *http.Request) {
	if err := s.chain.Verify(); err != nil {
		writeJSON(w, http.StatusConflict, papi.VerifyResponse{OK: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, papi.VerifyResponse{OK: true})
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block index")
		return
	}
	b, err := s.chain.BlockByIndex(index)
	s.writeBlock(w, b, err)
}

func (s *Server) handleBlockByHash(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	if _, err := vcrypto.DecodeHash(hash); err != nil {
		writeError(w, http.StatusBadRequest, "invalid block hash")
		return
	}
	b, err := s.chain.BlockByHash(hash)
	s.writeBlock(w, b, err)
}

func (s *Server) writeBlock(w http.ResponseWriter, b blockchain.Block, err error) {
	if err != nil {
		if errors.Is(err, ledger.ErrBlockNotFound) {
			writeError(w, http.StatusNotFound, "block not found")
			return
		}
		s.log.Error("block lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toWireBlock(b))
}

func (s *Server) handlePending(w http.ResponseWriter, _ *http.Request) {
	txs := s.chain.Pending()
	writeJSON(w, http.StatusOK, papi.PendingResponse{
		Count:        len(txs),
		Transactions: toWireTxs(txs),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, papi.ErrorResponse{OK: false, Error: msg})
}

func readBodyLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("request too large")
	}
	return b, nil
}
