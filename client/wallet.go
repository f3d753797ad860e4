// Package client provides a typed HTTP client for the solwallet service.
// It mirrors the server's JSON surface one method per endpoint and adds the
// two composite operations the browser UI performs: a concurrent
// balance+history refresh and a fixed-interval balance watch.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Balance is a point-in-time balance for one account.
type Balance struct {
	SOL      float64 `json:"balance"`
	Lamports uint64  `json:"lamports"`
}

// Transaction is the server's normalized view of one ledger entry.
type Transaction struct {
	Signature       string  `json:"signature"`
	Type            string  `json:"type"` // "sent", "received", or "unknown"
	Amount          float64 `json:"amount"`
	Status          string  `json:"status"`
	Timestamp       string  `json:"timestamp"`
	Recipient       *string `json:"recipient,omitempty"`
	Sender          *string `json:"sender,omitempty"`
	BlockTime       *int64  `json:"blockTime,omitempty"`
	Slot            uint64  `json:"slot"`
	Fee             *uint64 `json:"fee,omitempty"`
	PartiesInferred bool    `json:"parties_inferred,omitempty"`
}

// TransferResult is the outcome of a per-request-key transfer.
type TransferResult struct {
	Signature string `json:"signature"`
	Success   bool   `json:"success"`
}

// Health is the service health probe response.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Network   string `json:"network"`
}

// WalletInfo describes the service wallet pair. BalanceRefreshInterval is
// the polling cadence the server suggests for balance watchers.
type WalletInfo struct {
	SenderAddress          string `json:"sender_address"`
	RecipientAddress       string `json:"recipient_address"`
	Network                string `json:"network"`
	BalanceRefreshInterval string `json:"balance_refresh_interval"`
}

// ServiceBalances carries both service wallet balances.
type ServiceBalances struct {
	SenderBalance            float64 `json:"sender_balance"`
	RecipientBalance         float64 `json:"recipient_balance"`
	SenderBalanceLamports    uint64  `json:"sender_balance_lamports"`
	RecipientBalanceLamports uint64  `json:"recipient_balance_lamports"`
}

// SendResult is the outcome of a service wallet transfer.
type SendResult struct {
	Success              bool    `json:"success"`
	TransactionSignature string  `json:"transaction_signature,omitempty"`
	PreBalanceSender     float64 `json:"pre_balance_sender"`
	PostBalanceSender    float64 `json:"post_balance_sender"`
	PreBalanceRecipient  float64 `json:"pre_balance_recipient"`
	PostBalanceRecipient float64 `json:"post_balance_recipient"`
	AmountTransferred    float64 `json:"amount_transferred"`
	Error                string  `json:"error,omitempty"`
}

// Client is the HTTP client for the solwallet service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new wallet service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		// Transfers block through on-chain confirmation, so the default
		// timeout is generous.
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Health checks the service health probe.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, "GET", "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletInfo retrieves the service wallet addresses and network.
func (c *Client) WalletInfo(ctx context.Context) (*WalletInfo, error) {
	var out WalletInfo
	if err := c.do(ctx, "GET", "/api/wallet/info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ServiceBalance retrieves both service wallet balances.
func (c *Client) ServiceBalance(ctx context.Context) (*ServiceBalances, error) {
	var out ServiceBalances
	if err := c.do(ctx, "GET", "/api/wallet/balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ServiceSend transfers SOL between the service wallet pair.
func (c *Client) ServiceSend(ctx context.Context, amount float64) (*SendResult, error) {
	body := map[string]interface{}{"amount": amount}
	var out SendResult
	if err := c.do(ctx, "POST", "/api/transaction/send", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ServiceHistory retrieves the service sender's classified recent history.
func (c *Client) ServiceHistory(ctx context.Context) ([]Transaction, error) {
	var out struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.do(ctx, "GET", "/api/transaction/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// Balance retrieves the balance of an arbitrary account.
func (c *Client) Balance(ctx context.Context, publicKey string) (*Balance, error) {
	body := map[string]interface{}{"publicKey": publicKey}
	var out Balance
	if err := c.do(ctx, "POST", "/api/wallet/balance", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions retrieves the classified recent history for an arbitrary
// account. A zero-history account yields an empty slice, never nil.
func (c *Client) Transactions(ctx context.Context, publicKey string) ([]Transaction, error) {
	body := map[string]interface{}{"publicKey": publicKey}
	var out struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.do(ctx, "POST", "/api/wallet/transactions", body, &out); err != nil {
		return nil, err
	}
	if out.Transactions == nil {
		out.Transactions = []Transaction{}
	}
	return out.Transactions, nil
}

// Transfer submits a native SOL transfer signed with the supplied secret
// key. The secret key travels in the request body; only use this against a
// trusted service over a trusted transport.
func (c *Client) Transfer(ctx context.Context, fromPrivateKey, toPublicKey string, amount float64) (*TransferResult, error) {
	body := map[string]interface{}{
		"fromPrivateKey": fromPrivateKey,
		"toPublicKey":    toPublicKey,
		"amount":         amount,
	}
	var out TransferResult
	if err := c.do(ctx, "POST", "/api/wallet/transfer", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshAll fetches an account's balance and history concurrently, the way
// the UI repopulates its displayed state after a transfer.
func (c *Client) RefreshAll(ctx context.Context, publicKey string) (*Balance, []Transaction, error) {
	g, ctx := errgroup.WithContext(ctx)

	var balance *Balance
	var transactions []Transaction

	g.Go(func() error {
		var err error
		balance, err = c.Balance(ctx, publicKey)
		return err
	})
	g.Go(func() error {
		var err error
		transactions, err = c.Transactions(ctx, publicKey)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return balance, transactions, nil
}

// WatchBalance re-fetches an account's balance on a fixed interval until the
// context is cancelled, invoking fn with each result. Each tick fires an
// independent request; if one is still in flight when the next tick arrives,
// the two overlap. That mirrors the UI's periodic refresh and is accepted,
// not guarded against.
func (c *Client) WatchBalance(ctx context.Context, publicKey string, interval time.Duration, fn func(*Balance, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go func() {
				balance, err := c.Balance(ctx, publicKey)
				fn(balance, err)
			}()
		}
	}
}

// do issues one request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("request completed", "method", method, "path", path)
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
