package analyzer

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"pumptrader/internal/pumpfun"
)

// makeTrade builds a trade with fixed reserves so its implied price is
// vSol/vToken. Reserves default to a flat price of 3e-8 when zero.
func makeTrade(trader solana.PublicKey, dir pumpfun.TradeDirection, sol, tokens float64, ts time.Time, vSol, vToken float64) pumpfun.TradeEvent {
	if vSol == 0 {
		vSol = 30.0
	}
	if vToken == 0 {
		vToken = 1_000_000_000.0
	}
	return pumpfun.TradeEvent{
		TokenAddress:         testMint,
		TraderAddress:        trader,
		Direction:            dir,
		SolAmount:            sol,
		TokenAmount:          tokens,
		VirtualSolReserves:   vSol,
		VirtualTokenReserves: vToken,
		RealTokenReserves:    vToken * 0.8,
		Timestamp:            ts,
	}
}

// tradesAtPrices builds a trade sequence whose implied prices follow the
// given series, one second apart starting at start.
func tradesAtPrices(dir pumpfun.TradeDirection, start time.Time, prices []float64) []pumpfun.TradeEvent {
	trades := make([]pumpfun.TradeEvent, 0, len(prices))
	for i, p := range prices {
		// fixed token reserves, sol reserves chosen to hit the price
		vToken := 1_000_000_000.0
		trades = append(trades, makeTrade(testTrader, dir, 0.5, 100_000, start.Add(time.Duration(i)*time.Second), p*vToken, vToken))
	}
	return trades
}

var (
	testMint    = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	testTrader  = solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
	testCreator = solana.MustPublicKeyFromBase58("Stake11111111111111111111111111111111111111")
)
