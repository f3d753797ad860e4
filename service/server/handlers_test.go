package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjansen/solwallet/service/solana"
)

// mockRPC implements solana.RPCClient for handler tests.
type mockRPC struct {
	balance    uint64
	balanceErr error

	signatures    []*rpc.TransactionSignature
	signaturesErr error

	sendSig solanago.Signature
	sendErr error
}

func (m *mockRPC) GetBalance(ctx context.Context, account solanago.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return &rpc.GetBalanceResult{Value: m.balance}, nil
}

func (m *mockRPC) GetSignaturesForAddress(ctx context.Context, address solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
	if m.signaturesErr != nil {
		return nil, m.signaturesErr
	}
	return m.signatures, nil
}

func (m *mockRPC) GetTransaction(ctx context.Context, signature solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	return nil, nil
}

func (m *mockRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solanago.Hash{}},
	}, nil
}

func (m *mockRPC) SendTransactionWithOpts(ctx context.Context, tx *solanago.Transaction, opts rpc.TransactionOpts) (solanago.Signature, error) {
	if m.sendErr != nil {
		return solanago.Signature{}, m.sendErr
	}
	return m.sendSig, nil
}

func (m *mockRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solanago.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}, nil
}

func newTestWallet(mock *mockRPC) *solana.Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return solana.NewClient(mock, "test", nil, logger)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testAddress = "BPFLoaderUpgradeab1e11111111111111111111111"

const testSignature = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"

func postJSON(t *testing.T, handler http.Handler, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleWalletBalance(t *testing.T) {
	wallet := newTestWallet(&mockRPC{balance: 2_456_700_000})
	handler := handleWalletBalance(wallet, testLogger())

	rec := postJSON(t, handler, "/api/wallet/balance", map[string]string{"publicKey": testAddress})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Balance  float64 `json:"balance"`
		Lamports uint64  `json:"lamports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2.4567, resp.Balance)
	assert.Equal(t, uint64(2_456_700_000), resp.Lamports)
}

func TestHandleWalletBalance_MissingPublicKey(t *testing.T) {
	wallet := newTestWallet(&mockRPC{})
	handler := handleWalletBalance(wallet, testLogger())

	rec := postJSON(t, handler, "/api/wallet/balance", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "publicKey is required")
}

func TestHandleWalletBalance_MalformedBody(t *testing.T) {
	wallet := newTestWallet(&mockRPC{})
	handler := handleWalletBalance(wallet, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/wallet/balance", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestHandleWalletBalance_InvalidAddress(t *testing.T) {
	wallet := newTestWallet(&mockRPC{})
	handler := handleWalletBalance(wallet, testLogger())

	rec := postJSON(t, handler, "/api/wallet/balance", map[string]string{"publicKey": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWalletBalance_RPCFailure(t *testing.T) {
	wallet := newTestWallet(&mockRPC{balanceErr: errors.New("connection refused")})
	handler := handleWalletBalance(wallet, testLogger())

	rec := postJSON(t, handler, "/api/wallet/balance", map[string]string{"publicKey": testAddress})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleWalletTransactions_EmptyHistory(t *testing.T) {
	wallet := newTestWallet(&mockRPC{})
	handler := handleWalletTransactions(wallet, 10, testLogger())

	rec := postJSON(t, handler, "/api/wallet/transactions", map[string]string{"publicKey": testAddress})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transactions []transactionResponse `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Transactions)
	assert.Empty(t, resp.Transactions)
}

func TestHandleWalletTransfer_MissingFields(t *testing.T) {
	wallet := newTestWallet(&mockRPC{})
	handler := handleWalletTransfer(wallet, time.Second, testLogger())

	rec := postJSON(t, handler, "/api/wallet/transfer", map[string]interface{}{
		"toPublicKey": testAddress,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "fromPrivateKey, toPublicKey, and amount are required")
}

func TestHandleWalletTransfer_InsufficientBalance(t *testing.T) {
	// Sender holds 1 SOL, the request asks for 1.5.
	wallet := newTestWallet(&mockRPC{balance: 1_000_000_000})
	handler := handleWalletTransfer(wallet, time.Second, testLogger())

	rec := postJSON(t, handler, "/api/wallet/transfer", map[string]interface{}{
		"fromPrivateKey": solanago.NewWallet().PrivateKey.String(),
		"toPublicKey":    testAddress,
		"amount":         1.5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient balance")
}

func TestHandleWalletTransfer_Confirmed(t *testing.T) {
	sig := solanago.MustSignatureFromBase58(testSignature)
	wallet := newTestWallet(&mockRPC{balance: 2_000_000_000, sendSig: sig})
	handler := handleWalletTransfer(wallet, time.Second, testLogger())

	rec := postJSON(t, handler, "/api/wallet/transfer", map[string]interface{}{
		"fromPrivateKey": solanago.NewWallet().PrivateKey.String(),
		"toPublicKey":    testAddress,
		"amount":         0.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Signature string `json:"signature"`
		Success   bool   `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, sig.String(), resp.Signature)
}

func TestHandleHealth(t *testing.T) {
	handler := handleHealth("devnet")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "devnet", resp["network"])
	assert.NotEmpty(t, resp["timestamp"])
}

func TestTransactionToResponse_CounterpartyPlacement(t *testing.T) {
	counterparty := testAddress

	sent := transactionToResponse(&solana.Transaction{
		Signature:    testSignature,
		Direction:    solana.DirectionSent,
		Counterparty: &counterparty,
	})
	require.NotNil(t, sent.Recipient)
	assert.Equal(t, counterparty, *sent.Recipient)
	assert.Nil(t, sent.Sender)

	received := transactionToResponse(&solana.Transaction{
		Signature:    testSignature,
		Direction:    solana.DirectionReceived,
		Counterparty: &counterparty,
	})
	require.NotNil(t, received.Sender)
	assert.Equal(t, counterparty, *received.Sender)
	assert.Nil(t, received.Recipient)

	unknown := transactionToResponse(&solana.Transaction{
		Signature: testSignature,
		Direction: solana.DirectionUnknown,
	})
	assert.Nil(t, unknown.Sender)
	assert.Nil(t, unknown.Recipient)
	assert.Equal(t, "unknown", unknown.Type)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusForError(&solana.InvalidInputError{Field: "amount", Err: errors.New("bad")}))
	assert.Equal(t, http.StatusBadRequest, statusForError(&solana.InsufficientBalanceError{RequiredLamports: 2, AvailableLamports: 1}))
	assert.Equal(t, http.StatusInternalServerError, statusForError(&solana.NetworkError{Op: "getBalance", Err: errors.New("down")}))
	assert.Equal(t, http.StatusInternalServerError, statusForError(errors.New("anything else")))
}
