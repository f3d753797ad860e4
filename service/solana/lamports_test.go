package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLamportsToSOL(t *testing.T) {
	assert.Equal(t, 0.0, LamportsToSOL(0))
	assert.Equal(t, 1.0, LamportsToSOL(1_000_000_000))
	assert.Equal(t, 2.4567, LamportsToSOL(2_456_700_000))
	assert.Equal(t, 0.000000001, LamportsToSOL(1))
}

func TestSOLToLamports(t *testing.T) {
	assert.Equal(t, uint64(0), SOLToLamports(0))
	assert.Equal(t, uint64(0), SOLToLamports(-1.5))
	assert.Equal(t, uint64(1_000_000_000), SOLToLamports(1.0))
	assert.Equal(t, uint64(10_000_000), SOLToLamports(0.01))
	assert.Equal(t, uint64(2_456_700_000), SOLToLamports(2.4567))
}

func TestSOLToLamports_RoundTrip(t *testing.T) {
	// Fractional SOL values survive a round trip through lamports.
	for _, sol := range []float64{0.01, 0.1, 0.25, 1.5, 2.4567} {
		assert.Equal(t, sol, LamportsToSOL(SOLToLamports(sol)), "round trip for %v SOL", sol)
	}
}
