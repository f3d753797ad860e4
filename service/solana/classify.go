package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// blockTimeLayout is the human-readable form used for the Timestamp field.
const blockTimeLayout = "2006-01-02 15:04:05 MST"

// fallbackRecord builds the minimal record emitted when a signature's full
// transaction cannot be resolved or classified. Direction is unknown, amount
// is zero, and the fee is absent; status and timing come from the signature
// reference alone.
func fallbackRecord(sig *rpc.TransactionSignature) *Transaction {
	return &Transaction{
		Signature: sig.Signature.String(),
		Direction: DirectionUnknown,
		Amount:    0,
		Status:    statusFromSignature(sig),
		Timestamp: formatBlockTime(sig.BlockTime),
		BlockTime: blockTimeUnix(sig.BlockTime),
		Slot:      sig.Slot,
	}
}

// classifyResult turns a fully resolved ledger record into a normalized
// Transaction relative to the observer account.
//
// Party derivation is heuristic: for records carrying loaded (indirect)
// addresses, the first and second read-only entries stand in for sender and
// recipient, which is best-effort rather than ledger-verified; such records
// are marked PartiesInferred. The amount is the first account's pre/post
// balance delta, which in multi-party transactions is not necessarily the
// observer's own delta. Both limitations are deliberate.
func classifyResult(observer solana.PublicKey, sig *rpc.TransactionSignature, result *rpc.GetTransactionResult) (*Transaction, error) {
	meta := result.Meta
	if meta == nil {
		// No settlement metadata; nothing to classify.
		return fallbackRecord(sig), nil
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	var sender, recipient solana.PublicKey
	inferred := false
	if len(meta.LoadedAddresses.ReadOnly) > 0 {
		inferred = true
		sender = meta.LoadedAddresses.ReadOnly[0]
		if len(meta.LoadedAddresses.ReadOnly) > 1 {
			recipient = meta.LoadedAddresses.ReadOnly[1]
		}
	} else {
		keys := tx.Message.AccountKeys
		if len(keys) > 0 {
			sender = keys[0]
		}
		if len(keys) > 1 {
			recipient = keys[1]
		}
	}

	direction := DirectionReceived
	if sender.Equals(observer) {
		direction = DirectionSent
	}

	var amount float64
	if len(meta.PreBalances) > 0 && len(meta.PostBalances) > 0 {
		pre, post := meta.PreBalances[0], meta.PostBalances[0]
		delta := pre - post
		if post > pre {
			delta = post - pre
		}
		amount = LamportsToSOL(delta)
	}

	var counterparty *string
	switch direction {
	case DirectionSent:
		if !recipient.IsZero() {
			s := recipient.String()
			counterparty = &s
		}
	case DirectionReceived:
		if !sender.IsZero() {
			s := sender.String()
			counterparty = &s
		}
	}

	fee := meta.Fee
	return &Transaction{
		Signature:       sig.Signature.String(),
		Direction:       direction,
		Amount:          amount,
		Status:          statusFromSignature(sig),
		Timestamp:       formatBlockTime(sig.BlockTime),
		Counterparty:    counterparty,
		BlockTime:       blockTimeUnix(sig.BlockTime),
		Slot:            sig.Slot,
		Fee:             &fee,
		PartiesInferred: inferred,
	}, nil
}

// statusFromSignature reads the confirmation status off a signature
// reference, defaulting to "confirmed" when the ledger omits it.
func statusFromSignature(sig *rpc.TransactionSignature) string {
	if sig.ConfirmationStatus == "" {
		return string(rpc.ConfirmationStatusConfirmed)
	}
	return string(sig.ConfirmationStatus)
}

func formatBlockTime(bt *solana.UnixTimeSeconds) string {
	if bt == nil {
		return "Unknown"
	}
	return bt.Time().UTC().Format(blockTimeLayout)
}

func blockTimeUnix(bt *solana.UnixTimeSeconds) *int64 {
	if bt == nil {
		return nil
	}
	v := int64(*bt)
	return &v
}
