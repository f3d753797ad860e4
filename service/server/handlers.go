package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kjansen/solwallet/service/solana"
)

const maxRequestBodySize = 1 << 20 // 1MB - plenty for wallet requests

// handleWalletBalance returns a handler that fetches the balance for a
// caller-supplied account.
// POST /api/wallet/balance {"publicKey": "..."}
func handleWalletBalance(wallet *solana.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			PublicKey string `json:"publicKey"`
		}
		if err := decodeBody(r, &req); err != nil {
			logger.Debug("failed to decode balance request", "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.PublicKey == "" {
			writeError(w, "publicKey is required", http.StatusBadRequest)
			return
		}

		balance, err := wallet.GetBalance(r.Context(), req.PublicKey)
		if err != nil {
			logger.Error("failed to get balance", "address", req.PublicKey, "error", err)
			writeError(w, err.Error(), statusForError(err))
			return
		}

		writeJSON(w, map[string]interface{}{
			"balance":  balance.SOL,
			"lamports": balance.Lamports,
		}, http.StatusOK)
	})
}

// handleWalletTransactions returns a handler that classifies the recent
// history for a caller-supplied account.
// POST /api/wallet/transactions {"publicKey": "..."}
func handleWalletTransactions(wallet *solana.Client, historyLimit int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			PublicKey string `json:"publicKey"`
		}
		if err := decodeBody(r, &req); err != nil {
			logger.Debug("failed to decode transactions request", "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.PublicKey == "" {
			writeError(w, "publicKey is required", http.StatusBadRequest)
			return
		}

		transactions, err := wallet.RecentTransactions(r.Context(), req.PublicKey, historyLimit)
		if err != nil {
			logger.Error("failed to fetch transactions", "address", req.PublicKey, "error", err)
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

// handleWalletTransfer returns a handler that submits a native SOL transfer
// and blocks until the network confirms it.
// POST /api/wallet/transfer {"fromPrivateKey": "...", "toPublicKey": "...", "amount": 0.5}
//
// The secret key travels in the request body in plaintext. That is the
// original demo design, preserved here deliberately; see DESIGN.md.
func handleWalletTransfer(wallet *solana.Client, confirmationTimeout time.Duration, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			FromPrivateKey string  `json:"fromPrivateKey"`
			ToPublicKey    string  `json:"toPublicKey"`
			Amount         float64 `json:"amount"`
		}
		if err := decodeBody(r, &req); err != nil {
			logger.Debug("failed to decode transfer request", "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.FromPrivateKey == "" || req.ToPublicKey == "" || req.Amount == 0 {
			writeError(w, "fromPrivateKey, toPublicKey, and amount are required", http.StatusBadRequest)
			return
		}

		signature, err := wallet.Transfer(r.Context(), solana.TransferParams{
			SenderSecret:        req.FromPrivateKey,
			Recipient:           req.ToPublicKey,
			AmountSOL:           req.Amount,
			ConfirmationTimeout: confirmationTimeout,
		})
		if err != nil {
			// The secret never goes to the log; the recipient is enough
			// to correlate a failed request.
			logger.Error("transfer failed", "recipient", req.ToPublicKey, "amount", req.Amount, "error", err)
			writeError(w, err.Error(), statusForError(err))
			return
		}

		logger.Info("transfer submitted", "signature", signature, "recipient", req.ToPublicKey, "amount", req.Amount)
		writeJSON(w, map[string]interface{}{
			"signature": signature,
			"success":   true,
		}, http.StatusOK)
	})
}

// handleHealth returns the JSON health probe the browser client polls.
// GET /api/health
func handleHealth(network string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"network":   network,
		}, http.StatusOK)
	})
}

// transactionResponse is the JSON response format for a normalized transaction.
// Sent records carry the counterparty as "recipient", received records as
// "sender", matching what the frontend expects.
type transactionResponse struct {
	Signature       string  `json:"signature"`
	Type            string  `json:"type"`
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

// transactionToResponse converts a domain Transaction to a response format.
func transactionToResponse(t *solana.Transaction) transactionResponse {
	resp := transactionResponse{
		Signature:       t.Signature,
		Type:            string(t.Direction),
		Amount:          t.Amount,
		Status:          t.Status,
		Timestamp:       t.Timestamp,
		BlockTime:       t.BlockTime,
		Slot:            t.Slot,
		Fee:             t.Fee,
		PartiesInferred: t.PartiesInferred,
	}
	switch t.Direction {
	case solana.DirectionSent:
		resp.Recipient = t.Counterparty
	case solana.DirectionReceived:
		resp.Sender = t.Counterparty
	}
	return resp
}

// decodeBody decodes a JSON request body, normalizing the size-limit error.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if strings.Contains(err.Error(), "http: request body too large") {
			return errors.New("request body too large: maximum size is 1MB")
		}
		return errors.New("invalid request body: must be valid JSON")
	}
	return nil
}

// statusForError maps domain errors to HTTP status codes: caller mistakes
// and failed preconditions are 400, everything else 500.
func statusForError(err error) int {
	var invalid *solana.InvalidInputError
	var insufficient *solana.InsufficientBalanceError
	if errors.As(err, &invalid) || errors.As(err, &insufficient) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
