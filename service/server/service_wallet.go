package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/kjansen/solwallet/service/config"
	"github.com/kjansen/solwallet/service/solana"
)

// ServiceWallet is the fixed sender/recipient keypair pair backing the demo
// backend surface. The sender secret stays in process memory for the
// lifetime of the server; it is never written anywhere.
type ServiceWallet struct {
	Sender    solanago.PrivateKey
	Recipient solanago.PublicKey
}

// NewServiceWallet builds a ServiceWallet from configuration. Returns nil
// when the service wallet is not configured.
func NewServiceWallet(cfg *config.Config) (*ServiceWallet, error) {
	if !cfg.ServiceWalletEnabled() {
		return nil, nil
	}

	sender, err := solanago.PrivateKeyFromBase58(cfg.SenderPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid sender private key: %w", err)
	}

	recipient, err := solanago.PublicKeyFromBase58(cfg.RecipientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient public key: %w", err)
	}

	return &ServiceWallet{Sender: sender, Recipient: recipient}, nil
}

// handleWalletInfo returns a handler that reports the service wallet's
// addresses, network, and the polling cadence clients should use for
// balance refreshes.
// GET /api/wallet/info
func handleWalletInfo(service *ServiceWallet, network string, refreshInterval time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"sender_address":           service.Sender.PublicKey().String(),
			"recipient_address":        service.Recipient.String(),
			"network":                  network,
			"balance_refresh_interval": refreshInterval.String(),
		}, http.StatusOK)
	})
}

// handleServiceBalance returns a handler that fetches both service wallet
// balances. The two lookups run concurrently; either failing fails the
// request.
// GET /api/wallet/balance
func handleServiceBalance(wallet *solana.Client, service *ServiceWallet, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sender, recipient, err := serviceBalances(r.Context(), wallet, service)
		if err != nil {
			logger.Error("failed to fetch service wallet balances", "error", err)
			writeError(w, err.Error(), statusForError(err))
			return
		}

		writeJSON(w, map[string]interface{}{
			"sender_balance":             sender.SOL,
			"recipient_balance":          recipient.SOL,
			"sender_balance_lamports":    sender.Lamports,
			"recipient_balance_lamports": recipient.Lamports,
		}, http.StatusOK)
	})
}

// handleServiceSend returns a handler that transfers SOL from the service
// sender to the service recipient, reporting balances from before and after
// the transfer.
// POST /api/transaction/send {"amount": 0.5}
func handleServiceSend(wallet *solana.Client, service *ServiceWallet, confirmationTimeout time.Duration, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Amount float64 `json:"amount"`
		}
		if err := decodeBody(r, &req); err != nil {
			logger.Debug("failed to decode send request", "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		preSender, preRecipient, err := serviceBalances(r.Context(), wallet, service)
		if err != nil {
			logger.Error("failed to fetch pre-transfer balances", "error", err)
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		signature, err := wallet.Transfer(r.Context(), solana.TransferParams{
			SenderSecret:        service.Sender.String(),
			Recipient:           service.Recipient.String(),
			AmountSOL:           req.Amount,
			ConfirmationTimeout: confirmationTimeout,
		})
		if err != nil {
			logger.Error("service transfer failed", "amount", req.Amount, "error", err)
			// Ledger state is unchanged (or unknown), so the pre-transfer
			// balances are echoed back as the post-transfer view.
			writeJSON(w, sendResponse{
				Success:              false,
				PreBalanceSender:     preSender.SOL,
				PostBalanceSender:    preSender.SOL,
				PreBalanceRecipient:  preRecipient.SOL,
				PostBalanceRecipient: preRecipient.SOL,
				AmountTransferred:    0,
				Error:                err.Error(),
			}, statusForError(err))
			return
		}

		postSender, postRecipient, err := serviceBalances(r.Context(), wallet, service)
		if err != nil {
			// The transfer itself succeeded; report it with zeroed
			// post-balances rather than failing the request.
			logger.Warn("failed to fetch post-transfer balances", "error", err)
			postSender, postRecipient = &solana.Balance{}, &solana.Balance{}
		}

		logger.Info("service transfer confirmed", "signature", signature, "amount", req.Amount)
		writeJSON(w, sendResponse{
			Success:              true,
			TransactionSignature: signature,
			PreBalanceSender:     preSender.SOL,
			PostBalanceSender:    postSender.SOL,
			PreBalanceRecipient:  preRecipient.SOL,
			PostBalanceRecipient: postRecipient.SOL,
			AmountTransferred:    req.Amount,
		}, http.StatusOK)
	})
}

// handleServiceHistory returns a handler that classifies recent history
// relative to the service sender.
// GET /api/transaction/history
func handleServiceHistory(wallet *solana.Client, service *ServiceWallet, historyLimit int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sender := service.Sender.PublicKey().String()

		transactions, err := wallet.RecentTransactions(r.Context(), sender, historyLimit)
		if err != nil {
			logger.Error("failed to fetch service history", "error", err)
			writeError(w, err.Error(), statusForError(err))
			return
		}

		resp := make([]transactionResponse, len(transactions))
		for i, txn := range transactions {
			resp[i] = transactionToResponse(txn)
		}

		writeJSON(w, map[string]interface{}{
			"transactions": resp,
		}, http.StatusOK)
	})
}

// sendResponse is the JSON response format for the service send endpoint.
type sendResponse struct {
	Success              bool    `json:"success"`
	TransactionSignature string  `json:"transaction_signature,omitempty"`
	PreBalanceSender     float64 `json:"pre_balance_sender"`
	PostBalanceSender    float64 `json:"post_balance_sender"`
	PreBalanceRecipient  float64 `json:"pre_balance_recipient"`
	PostBalanceRecipient float64 `json:"post_balance_recipient"`
	AmountTransferred    float64 `json:"amount_transferred"`
	Error                string  `json:"error,omitempty"`
}

// serviceBalances fetches both service wallet balances concurrently.
func serviceBalances(ctx context.Context, wallet *solana.Client, service *ServiceWallet) (sender, recipient *solana.Balance, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sender, err = wallet.GetBalance(ctx, service.Sender.PublicKey().String())
		return err
	})
	g.Go(func() error {
		var err error
		recipient, err = wallet.GetBalance(ctx, service.Recipient.String())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sender, recipient, nil
}
