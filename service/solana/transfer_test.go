package solana

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer_AmountMustBePositive(t *testing.T) {
	mock := &mockRPCClient{}
	client := newTestClient(mock)

	for _, amount := range []float64{0, -0.5} {
		_, err := client.Transfer(context.Background(), TransferParams{
			SenderSecret: solana.NewWallet().PrivateKey.String(),
			Recipient:    testObserver,
			AmountSOL:    amount,
		})
		require.Error(t, err)

		var invalidErr *InvalidInputError
		require.ErrorAs(t, err, &invalidErr)
		assert.Equal(t, "amount", invalidErr.Field)
	}

	// Rejected before any network traffic.
	assert.Zero(t, mock.sendCallCount())
}

func TestTransfer_InvalidSenderKey(t *testing.T) {
	client := newTestClient(&mockRPCClient{})

	_, err := client.Transfer(context.Background(), TransferParams{
		SenderSecret: "definitely-not-base58!!!",
		Recipient:    testObserver,
		AmountSOL:    0.1,
	})
	require.Error(t, err)

	var invalidErr *InvalidInputError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "fromPrivateKey", invalidErr.Field)
}

func TestTransfer_InvalidRecipient(t *testing.T) {
	client := newTestClient(&mockRPCClient{})

	_, err := client.Transfer(context.Background(), TransferParams{
		SenderSecret: solana.NewWallet().PrivateKey.String(),
		Recipient:    "bogus",
		AmountSOL:    0.1,
	})
	require.Error(t, err)

	var invalidErr *InvalidInputError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "toPublicKey", invalidErr.Field)
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	// Sender holds 1 SOL, transfer asks for 1.5.
	mock := &mockRPCClient{balance: 1_000_000_000}
	client := newTestClient(mock)

	_, err := client.Transfer(context.Background(), TransferParams{
		SenderSecret: solana.NewWallet().PrivateKey.String(),
		Recipient:    testObserver,
		AmountSOL:    1.5,
	})
	require.Error(t, err)

	var balErr *InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, uint64(1_500_000_000), balErr.RequiredLamports)
	assert.Equal(t, uint64(1_000_000_000), balErr.AvailableLamports)

	// Nothing was broadcast.
	assert.Zero(t, mock.sendCallCount())
}

func TestTransfer_Confirmed(t *testing.T) {
	sig := solana.MustSignatureFromBase58(testSigs[0])
	mock := &mockRPCClient{
		balance: 2_000_000_000,
		sendSig: sig,
		statuses: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}
	client := newTestClient(mock)

	got, err := client.Transfer(context.Background(), TransferParams{
		SenderSecret: solana.NewWallet().PrivateKey.String(),
		Recipient:    testObserver,
		AmountSOL:    0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, sig.String(), got)
	assert.Equal(t, 1, mock.sendCallCount())
}

func TestTransfer_BroadcastFailure(t *testing.T) {
	mock := &mockRPCClient{
		balance: 2_000_000_000,
		sendErr: errors.New("blockhash not found"),
	}
	client := newTestClient(mock)

	_, err := client.Transfer(context.Background(), TransferParams{
		SenderSecret: solana.NewWallet().PrivateKey.String(),
		Recipient:    testObserver,
		AmountSOL:    0.5,
	})
	require.Error(t, err)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "broadcast", subErr.Stage)
}

func TestTransfer_OnChainFailure(t *testing.T) {
	mock := &mockRPCClient{
		balance: 2_000_000_000,
		sendSig: solana.MustSignatureFromBase58(testSigs[0]),
		statuses: []*rpc.SignatureStatusesResult{
			{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		},
	}
	client := newTestClient(mock)

	_, err := client.Transfer(context.Background(), TransferParams{
		SenderSecret: solana.NewWallet().PrivateKey.String(),
		Recipient:    testObserver,
		AmountSOL:    0.5,
	})
	require.Error(t, err)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "confirm", subErr.Stage)
}

func TestTransfer_ConfirmationTimeout(t *testing.T) {
	// The network never advances past "processed".
	mock := &mockRPCClient{
		balance: 2_000_000_000,
		sendSig: solana.MustSignatureFromBase58(testSigs[0]),
		statuses: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
		},
	}
	client := newTestClient(mock)

	start := time.Now()
	_, err := client.Transfer(context.Background(), TransferParams{
		SenderSecret:        solana.NewWallet().PrivateKey.String(),
		Recipient:           testObserver,
		AmountSOL:           0.5,
		ConfirmationTimeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "confirm", subErr.Stage)
}
