package pumpfun

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	p, ok := Price(30.0, 1_000_000_000.0)
	assert.True(t, ok)
	assert.InDelta(t, 3e-8, p, 1e-15)
}

func TestPriceUnknownStates(t *testing.T) {
	cases := []struct {
		name   string
		sol    float64
		tokens float64
	}{
		{"zero token reserves", 30.0, 0},
		{"zero sol reserves", 0, 1_000_000.0},
		{"negative reserves", -1, 1_000_000.0},
		{"both zero", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := Price(tc.sol, tc.tokens)
			assert.False(t, ok, "price must be reported as unknown, not a sentinel")
		})
	}
}

func TestMarketCap(t *testing.T) {
	mc, ok := MarketCap(30.0, 1_000_000_000.0, 1_000_000_000.0)
	assert.True(t, ok)
	assert.InDelta(t, 30.0, mc, 1e-9)

	_, ok = MarketCap(30.0, 0, 1_000_000_000.0)
	assert.False(t, ok)

	_, ok = MarketCap(30.0, 1_000_000_000.0, 0)
	assert.False(t, ok)
}
