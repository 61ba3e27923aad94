// =============================
// File: internal/pumpfun/price.go
// =============================
package pumpfun

import "math"

// Price computes the spot price in SOL per token from already-scaled virtual
// reserves. The second return value is false when the price cannot be
// determined; callers must treat that as "unknown", never as zero.
func Price(virtualSolReserves, virtualTokenReserves float64) (float64, bool) {
	if virtualSolReserves <= 0 || virtualTokenReserves <= 0 {
		return 0, false
	}
	p := virtualSolReserves / virtualTokenReserves
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return p, true
}

// MarketCap computes price times circulating supply, propagating the unknown
// state of the price.
func MarketCap(virtualSolReserves, virtualTokenReserves, circulatingSupply float64) (float64, bool) {
	p, ok := Price(virtualSolReserves, virtualTokenReserves)
	if !ok || circulatingSupply <= 0 {
		return 0, false
	}
	mc := p * circulatingSupply
	if math.IsNaN(mc) || math.IsInf(mc, 0) {
		return 0, false
	}
	return mc, true
}

// TradePrice computes the post-trade spot price carried by a trade event.
func TradePrice(t *TradeEvent) (float64, bool) {
	return Price(t.VirtualSolReserves, t.VirtualTokenReserves)
}
