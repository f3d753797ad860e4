package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// DefaultConfirmationTimeout bounds how long Transfer waits for the network
// to report the "confirmed" commitment level after broadcast.
const DefaultConfirmationTimeout = 60 * time.Second

// confirmPollInterval is how often Transfer polls signature statuses while
// waiting for confirmation.
const confirmPollInterval = 2 * time.Second

// TransferParams contains parameters for submitting a native SOL transfer.
type TransferParams struct {
	// SenderSecret is the sender's 64-byte secret key, base58 encoded.
	// It lives only for the duration of the call and is never logged.
	SenderSecret string
	// Recipient is the destination account, base58 encoded.
	Recipient string
	// AmountSOL is the amount to move, in SOL. Converted to lamports
	// (rounded) before any balance comparison or broadcast.
	AmountSOL float64
	// ConfirmationTimeout overrides DefaultConfirmationTimeout when > 0.
	ConfirmationTimeout time.Duration
}

// Transfer builds, signs, broadcasts, and confirms a single-instruction
// SystemProgram transfer, returning the transaction signature.
//
// The sender's balance is freshly queried and compared against the requested
// lamports before anything is broadcast; on InsufficientBalanceError no
// ledger state has changed. After broadcast the call blocks until the
// network reports the confirmed commitment level or the timeout elapses.
// There is no retry and no idempotency key: resubmitting after an ambiguous
// SubmissionError can double-send.
func (c *Client) Transfer(ctx context.Context, params TransferParams) (string, error) {
	if params.AmountSOL <= 0 {
		c.recordTransfer("rejected")
		return "", &InvalidInputError{
			Field: "amount",
			Err:   fmt.Errorf("must be greater than zero, got %v", params.AmountSOL),
		}
	}

	sender, err := solana.PrivateKeyFromBase58(params.SenderSecret)
	if err != nil {
		c.recordTransfer("rejected")
		return "", &InvalidInputError{Field: "fromPrivateKey", Err: err}
	}
	if len(sender) != 64 {
		c.recordTransfer("rejected")
		return "", &InvalidInputError{
			Field: "fromPrivateKey",
			Err:   fmt.Errorf("secret key must be 64 bytes, got %d", len(sender)),
		}
	}

	recipient, err := solana.PublicKeyFromBase58(params.Recipient)
	if err != nil {
		c.recordTransfer("rejected")
		return "", &InvalidInputError{Field: "toPublicKey", Err: err}
	}

	from := sender.PublicKey()
	lamports := SOLToLamports(params.AmountSOL)

	balance, err := c.GetBalance(ctx, from.String())
	if err != nil {
		c.recordTransfer("failed")
		return "", err
	}
	if balance.Lamports < lamports {
		c.logger.DebugContext(ctx, "transfer rejected, insufficient balance",
			"sender", from.String(),
			"required_lamports", lamports,
			"available_lamports", balance.Lamports,
		)
		c.recordTransfer("rejected")
		return "", &InsufficientBalanceError{
			RequiredLamports:  lamports,
			AvailableLamports: balance.Lamports,
		}
	}

	// Stamp the transaction with the latest blockhash for replay protection.
	start := time.Now()
	blockhash, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	c.recordRPC("GetLatestBlockhash", err, time.Since(start))
	if err != nil {
		c.recordTransfer("failed")
		return "", &NetworkError{Op: "getLatestBlockhash", Err: err}
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from, recipient).Build(),
		},
		blockhash.Value.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		c.recordTransfer("failed")
		return "", &SubmissionError{Stage: "build", Err: err}
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(from) {
			return &sender
		}
		return nil
	}); err != nil {
		c.recordTransfer("failed")
		return "", &SubmissionError{Stage: "sign", Err: err}
	}

	start = time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	c.recordRPC("SendTransaction", err, time.Since(start))
	if err != nil {
		c.recordTransfer("failed")
		return "", &SubmissionError{Stage: "broadcast", Err: err}
	}

	c.logger.InfoContext(ctx, "transfer broadcast",
		"signature", sig.String(),
		"sender", from.String(),
		"recipient", recipient.String(),
		"lamports", lamports,
	)

	timeout := params.ConfirmationTimeout
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}

	broadcastAt := time.Now()
	if err := c.awaitConfirmation(ctx, sig, timeout); err != nil {
		c.recordTransfer("failed")
		return "", err
	}
	if c.metrics != nil {
		c.metrics.RecordTransferConfirmation(time.Since(broadcastAt).Seconds())
	}
	c.recordTransfer("confirmed")

	c.logger.InfoContext(ctx, "transfer confirmed", "signature", sig.String())
	return sig.String(), nil
}

// awaitConfirmation polls signature statuses until the transaction reaches
// the confirmed (or finalized) commitment level, the timeout elapses, or the
// context is cancelled.
func (c *Client) awaitConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		c.recordRPC("GetSignatureStatuses", err, time.Since(start))
		if err != nil {
			// Transient poll failures are retried until the deadline.
			c.logger.WarnContext(ctx, "signature status poll failed",
				"signature", sig.String(),
				"error", err,
			)
		} else if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return &SubmissionError{
					Stage: "confirm",
					Err:   fmt.Errorf("transaction failed on chain: %v", status.Err),
				}
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return &SubmissionError{Stage: "confirm", Err: ctx.Err()}
		case <-deadline.C:
			return &SubmissionError{
				Stage: "confirm",
				Err:   fmt.Errorf("confirmation timed out after %s", timeout),
			}
		case <-ticker.C:
		}
	}
}

func (c *Client) recordTransfer(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordTransfer(outcome)
	}
}
