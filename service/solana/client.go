package solana

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/kjansen/solwallet/service/metrics"
)

// DefaultHistoryLimit bounds how many signature references one history
// query resolves.
const DefaultHistoryLimit = 10

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetBalanceResult, error)

	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)

	GetLatestBlockhash(
		ctx context.Context,
		commitment rpc.CommitmentType,
	) (*rpc.GetLatestBlockhashResult, error)

	SendTransactionWithOpts(
		ctx context.Context,
		tx *solana.Transaction,
		opts rpc.TransactionOpts,
	) (solana.Signature, error)

	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		signatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)
}

// Client provides the wallet operations against a Solana cluster: balance
// lookup, recent-history classification, and transfer submission. It holds
// no state beyond its injected dependencies; every operation is request
// scoped.
type Client struct {
	rpc        RPCClient
	commitment rpc.CommitmentType
	logger     *slog.Logger
	metrics    *metrics.Metrics
	endpoint   string // RPC endpoint identifier for metrics (e.g., "devnet", rpc host)
}

// NewClient creates a new Solana client pinned to the "confirmed" commitment
// level. The endpoint parameter is used for metrics labeling.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:        rpcClient,
		commitment: rpc.CommitmentConfirmed,
		logger:     logger,
		metrics:    m,
		endpoint:   endpoint,
	}
}

// GetBalance fetches the current balance for a base58 account address.
// Returns InvalidInputError for an undecodable address and NetworkError
// when the remote call does not complete. No retry, no caching.
func (c *Client) GetBalance(ctx context.Context, address string) (*Balance, error) {
	account, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, &InvalidInputError{Field: "publicKey", Err: err}
	}

	start := time.Now()
	result, err := c.rpc.GetBalance(ctx, account, c.commitment)
	c.recordRPC("GetBalance", err, time.Since(start))
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get balance",
			"address", address,
			"error", err,
		)
		return nil, &NetworkError{Op: "getBalance", Err: err}
	}

	return &Balance{
		Lamports: result.Value,
		SOL:      LamportsToSOL(result.Value),
	}, nil
}

// RecentTransactions fetches up to limit recent signature references for the
// observer address and resolves each one into a normalized Transaction.
// Output order matches the ledger's signature list (most-recent-first).
//
// Per-signature resolution runs concurrently and tolerates individual
// failures: a record that cannot be resolved comes back as a minimal
// fallback (direction unknown, amount 0) rather than aborting the batch.
// Only the initial signature-list fetch can fail the call.
func (c *Client) RecentTransactions(ctx context.Context, address string, limit int) ([]*Transaction, error) {
	observer, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, &InvalidInputError{Field: "publicKey", Err: err}
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	}

	start := time.Now()
	signatures, err := c.rpc.GetSignaturesForAddress(ctx, observer, opts)
	c.recordRPC("GetSignaturesForAddress", err, time.Since(start))
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get signatures",
			"address", address,
			"error", err,
		)
		return nil, &NetworkError{Op: "getSignaturesForAddress", Err: err}
	}

	c.logger.DebugContext(ctx, "fetched signature references",
		"address", address,
		"count", len(signatures),
	)

	// Fire out all resolutions at once, then wait for every one to settle.
	// Each goroutine writes only its own slot, so the ledger ordering is
	// preserved without any locking.
	resolved := make([]*Transaction, len(signatures))
	var wg sync.WaitGroup
	for i, sig := range signatures {
		wg.Add(1)
		go func(i int, sig *rpc.TransactionSignature) {
			defer wg.Done()
			resolved[i] = c.resolveSignature(ctx, observer, sig)
		}(i, sig)
	}
	wg.Wait()

	// A nil slot means the ledger returned nothing for that signature;
	// those are dropped. Fallback records are kept.
	transactions := make([]*Transaction, 0, len(resolved))
	for _, txn := range resolved {
		if txn != nil {
			transactions = append(transactions, txn)
		}
	}

	c.logger.InfoContext(ctx, "classified recent transactions",
		"address", address,
		"requested", len(signatures),
		"returned", len(transactions),
	)

	return transactions, nil
}

// resolveSignature fetches the full record for one signature reference and
// classifies it. Returns nil when the ledger has no record (dropped), and a
// fallback record when resolution or classification fails.
func (c *Client) resolveSignature(ctx context.Context, observer solana.PublicKey, sig *rpc.TransactionSignature) *Transaction {
	maxVersion := uint64(0)
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	start := time.Now()
	result, err := c.rpc.GetTransaction(ctx, sig.Signature, opts)
	c.recordRPC("GetTransaction", err, time.Since(start))
	if err != nil {
		c.logger.WarnContext(ctx, "failed to resolve transaction, emitting fallback record",
			"signature", sig.Signature.String(),
			"error", err,
		)
		c.recordClassified("fallback")
		return fallbackRecord(sig)
	}

	if result == nil {
		c.recordClassified("dropped")
		return nil
	}

	txn, err := classifyResult(observer, sig, result)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to classify transaction, emitting fallback record",
			"signature", sig.Signature.String(),
			"error", err,
		)
		c.recordClassified("fallback")
		return fallbackRecord(sig)
	}

	if txn.Direction == DirectionUnknown {
		c.recordClassified("fallback")
	} else {
		c.recordClassified("resolved")
	}
	return txn
}

func (c *Client) recordRPC(method string, err error, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, duration.Seconds())
}

func (c *Client) recordClassified(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordTransactionClassified(outcome)
	}
}
