// Package client talks to an escrowd node over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/api"
	"github.com/LeJamon/goEscrow/internal/core/tx"
)

// DefaultTimeout bounds each request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// ErrNotFound is returned when the node has no such account, offer or
// transaction.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx reply from the node.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("node returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New creates a client for the node at baseURL, e.g. http://127.0.0.1:8899.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid node url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid node url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health returns the node status.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit sends a signed transaction. A transaction the node rejects is not
// an error; inspect the Applied and Result fields.
func (c *Client) Submit(ctx context.Context, txn *tx.Transaction) (*api.SubmitResponse, error) {
	raw, err := txn.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	req := &api.SubmitRequest{Transaction: base64.StdEncoding.EncodeToString(raw)}
	var out api.SubmitResponse
	err = c.do(ctx, http.MethodPost, "/v1/transactions", req, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
		return &out, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Account fetches one account with its decoded program state.
func (c *Client) Account(ctx context.Context, key solana.PublicKey) (*api.AccountResponse, error) {
	var out api.AccountResponse
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+key.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Escrow fetches the open offer with the given id.
func (c *Client) Escrow(ctx context.Context, id uint64) (*api.EscrowView, error) {
	var out api.EscrowView
	if err := c.do(ctx, http.MethodGet, "/v1/escrows/"+strconv.FormatUint(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Escrows lists open offers, optionally only those made by maker.
func (c *Client) Escrows(ctx context.Context, maker *solana.PublicKey) ([]*api.EscrowView, error) {
	path := "/v1/escrows"
	if maker != nil {
		path += "?maker=" + url.QueryEscape(maker.String())
	}
	var out api.EscrowsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Escrows, nil
}

// Airdrop asks the node faucet to credit key and returns the new balance.
func (c *Client) Airdrop(ctx context.Context, key solana.PublicKey, lamports uint64) (uint64, error) {
	var out api.AirdropResponse
	if err := c.do(ctx, http.MethodPost, "/v1/airdrop", &api.AirdropRequest{Address: key, Lamports: lamports}, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// Transaction fetches a journaled transaction.
func (c *Client) Transaction(ctx context.Context, hash tx.Hash) (*api.TransactionResponse, error) {
	var out api.TransactionResponse
	if err := c.do(ctx, http.MethodGet, "/v1/transactions/"+hash.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccountTransactions lists journaled transactions touching key, newest
// first.
func (c *Client) AccountTransactions(ctx context.Context, key solana.PublicKey, limit int) ([]*api.TransactionResponse, error) {
	path := fmt.Sprintf("/v1/accounts/%s/transactions", key)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []*api.TransactionResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do sends body as JSON and decodes the reply into out. The reply body is
// decoded even for error statuses when it is not an error document.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
		}
		if resp.StatusCode == http.StatusUnprocessableEntity && out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
