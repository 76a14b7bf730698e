package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNothingToMine is returned by Client.Mine when the node had no pending
// transactions.
var ErrNothingToMine = errors.New("no transactions to mine")

// StatusError carries a non-2xx reply.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("http %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithAPIKey(key string) Option {
	return func(cl *Client) {
		cl.apiKey = strings.TrimSpace(key)
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("baseURL must not be empty")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cl := &Client{
		baseURL: baseURL,
		http: &http.Client{
			// Mining may run for a while; callers bound it with ctx.
			Timeout: 2 * time.Minute,
		},
	}
	for _, o := range opts {
		o(cl)
	}
	return cl, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	var out VersionInfo
	if err := c.do(ctx, http.MethodGet, "/version", nil, &out); err != nil {
		return VersionInfo{}, err
	}
	return out, nil
}

func (c *Client) SubmitTransaction(ctx context.Context, author, content string) (Transaction, error) {
	var out SubmitResponse
	req := SubmitRequest{Author: author, Content: content}
	if err := c.do(ctx, http.MethodPost, "/new_transaction", req, &out); err != nil {
		return Transaction{}, err
	}
	return out.Transaction, nil
}

// Mine asks the node to seal its pending queue. It returns ErrNothingToMine
// when the queue was empty.
func (c *Client) Mine(ctx context.Context) (MineResponse, error) {
	var out MineResponse
	if err := c.do(ctx, http.MethodPost, "/mine", nil, &out); err != nil {
		return MineResponse{}, err
	}
	if !out.OK {
		return out, ErrNothingToMine
	}
	return out, nil
}

func (c *Client) Chain(ctx context.Context) (ChainResponse, error) {
	var out ChainResponse
	if err := c.do(ctx, http.MethodGet, "/chain", nil, &out); err != nil {
		return ChainResponse{}, err
	}
	return out, nil
}

func (c *Client) Pending(ctx context.Context) (PendingResponse, error) {
	var out PendingResponse
	if err := c.do(ctx, http.MethodGet, "/pending_tx", nil, &out); err != nil {
		return PendingResponse{}, err
	}
	return out, nil
}

func (c *Client) Block(ctx context.Context, index uint64) (Block, error) {
	var out Block
	if err := c.do(ctx, http.MethodGet, "/block/"+strconv.FormatUint(index, 10), nil, &out); err != nil {
		return Block{}, err
	}
	return out, nil
}

func (c *Client) BlockByHash(ctx context.Context, hash string) (Block, error) {
	var out Block
	if err := c.do(ctx, http.MethodGet, "/block/hash/"+url.PathEscape(hash), nil, &out); err != nil {
		return Block{}, err
	}
	return out, nil
}

// Verify reports the node's own chain audit. A failed audit is returned as a
// *StatusError with status 409.
func (c *Client) Verify(ctx context.Context) (VerifyResponse, error) {
	var out VerifyResponse
	if err := c.do(ctx, http.MethodGet, "/chain/verify", nil, &out); err != nil {
		return VerifyResponse{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, Status: resp.StatusCode}
		var er ErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er) == nil {
			se.Message = er.Error
		}
		return se
	}

	dec := json.NewDecoder(resp.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
