package solana

import "math"

// LamportsPerSOL is the fixed unit-conversion constant: 1 SOL = 1e9 lamports.
const LamportsPerSOL = 1_000_000_000

// LamportsToSOL converts an integer lamport amount to its decimal SOL form.
// SOL amounts are presentation-only; lamports remain the authoritative value.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}

// SOLToLamports converts a decimal SOL amount to lamports, rounding to the
// nearest lamport so that representable amounts like 0.01 survive the round
// trip exactly. Negative input maps to zero.
func SOLToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(math.Round(sol * LamportsPerSOL))
}
