package solana

// Direction classifies a transaction relative to the observer wallet.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
	DirectionUnknown  Direction = "unknown"
)

// Balance is a point-in-time balance for one account, carried in both the
// authoritative integer form and the display form.
type Balance struct {
	Lamports uint64
	SOL      float64
}

// Transaction is the normalized view of a ledger entry relative to one
// observer wallet. It is derived per request and never persisted.
type Transaction struct {
	Signature    string
	Direction    Direction
	Amount       float64 // SOL; the first account's balance delta, see classify.go
	Status       string  // confirmation status, "confirmed" when the ledger omits it
	Timestamp    string  // human-readable block time, "Unknown" when absent
	Counterparty *string // recipient when sent, sender when received
	BlockTime    *int64  // unix seconds, nil when the ledger omits it
	Slot         uint64
	Fee          *uint64 // lamports, nil on fallback records

	// PartiesInferred marks records whose sender/recipient came from the
	// loaded-address heuristic rather than the message account list.
	PartiesInferred bool
}
