// =============================
// File: internal/domain/token_test.go
// =============================
package domain

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumptrader/internal/pumpfun"
)

var (
	sessionMint    = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	sessionCreator = solana.MustPublicKeyFromBase58("Stake11111111111111111111111111111111111111")
	sessionTrader  = solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
)

func sessionTrade(trader solana.PublicKey, dir pumpfun.TradeDirection, tokens, vSol, vTok float64, at time.Time) pumpfun.TradeEvent {
	return pumpfun.TradeEvent{
		TokenAddress:         sessionMint,
		TraderAddress:        trader,
		Direction:            dir,
		SolAmount:            0.1,
		TokenAmount:          tokens,
		VirtualSolReserves:   vSol,
		VirtualTokenReserves: vTok,
		Timestamp:            at,
	}
}

func TestSessionTracksHolders(t *testing.T) {
	now := time.Now()
	s := NewSelectedToken(pumpfun.CreationEvent{
		TokenAddress:   sessionMint,
		CreatorAddress: sessionCreator,
		CreatedAt:      now,
	}, now)

	s.ApplyTrade(sessionTrade(sessionTrader, pumpfun.DirectionBuy, 1000, 30, 1e9, now))
	assert.InDelta(t, 1000, s.Holders[sessionTrader.String()], 1e-9)

	// a partial exit shrinks the balance
	s.ApplyTrade(sessionTrade(sessionTrader, pumpfun.DirectionSell, 400, 29, 1e9, now.Add(time.Second)))
	assert.InDelta(t, 600, s.Holders[sessionTrader.String()], 1e-9)

	// a full exit removes the holder entirely
	s.ApplyTrade(sessionTrade(sessionTrader, pumpfun.DirectionSell, 600, 28, 1e9, now.Add(2*time.Second)))
	_, held := s.Holders[sessionTrader.String()]
	assert.False(t, held)
}

func TestSessionPrefersReportedBalance(t *testing.T) {
	now := time.Now()
	s := NewSelectedToken(pumpfun.CreationEvent{
		TokenAddress:   sessionMint,
		CreatorAddress: sessionCreator,
		CreatedAt:      now,
	}, now)

	// Delta bookkeeping drifts when we miss a fill; the feed's reported
	// post-trade balance corrects it.
	s.ApplyTrade(sessionTrade(sessionTrader, pumpfun.DirectionBuy, 1000, 30, 1e9, now))
	corrected := sessionTrade(sessionTrader, pumpfun.DirectionBuy, 500, 31, 1e9, now.Add(time.Second))
	corrected.PostBalanceToken = 2500
	s.ApplyTrade(corrected)
	assert.InDelta(t, 2500, s.Holders[sessionTrader.String()], 1e-9)

	// An unreported balance falls back to the delta path.
	s.ApplyTrade(sessionTrade(sessionTrader, pumpfun.DirectionSell, 500, 30, 1e9, now.Add(2*time.Second)))
	assert.InDelta(t, 2000, s.Holders[sessionTrader.String()], 1e-9)
}

func TestSessionPriceExtremes(t *testing.T) {
	now := time.Now()
	s := NewSelectedToken(pumpfun.CreationEvent{TokenAddress: sessionMint, CreatedAt: now}, now)
	assert.False(t, s.PriceObserved)

	s.ApplyTrade(sessionTrade(sessionTrader, pumpfun.DirectionBuy, 100, 30, 1e9, now))
	require.True(t, s.PriceObserved)
	assert.InDelta(t, 3e-8, s.MinPrice, 1e-12)
	assert.InDelta(t, 3e-8, s.MaxPrice, 1e-12)

	s.ApplyTrade(sessionTrade(sessionTrader, pumpfun.DirectionBuy, 100, 40, 1e9, now))
	s.ApplyTrade(sessionTrade(sessionTrader, pumpfun.DirectionSell, 100, 20, 1e9, now))

	assert.InDelta(t, 2e-8, s.MinPrice, 1e-12)
	assert.InDelta(t, 4e-8, s.MaxPrice, 1e-12)

	last, ok := s.LastPrice()
	require.True(t, ok)
	assert.InDelta(t, 2e-8, last, 1e-12)
}

func TestSessionRecentTrades(t *testing.T) {
	now := time.Now()
	s := NewSelectedToken(pumpfun.CreationEvent{TokenAddress: sessionMint, CreatedAt: now}, now)

	assert.Nil(t, s.RecentTrades(5))

	for i := 0; i < 7; i++ {
		s.ApplyTrade(sessionTrade(sessionTrader, pumpfun.DirectionBuy, float64(i+1), 30, 1e9, now))
	}

	recent := s.RecentTrades(3)
	require.Len(t, recent, 3)
	assert.InDelta(t, 5, recent[0].TokenAmount, 1e-9) // oldest of the last three
	assert.InDelta(t, 7, recent[2].TokenAmount, 1e-9)

	all := s.RecentTrades(50)
	assert.Len(t, all, 7)
}

func TestSessionCreatorBalance(t *testing.T) {
	now := time.Now()
	s := NewSelectedToken(pumpfun.CreationEvent{
		TokenAddress:   sessionMint,
		CreatorAddress: sessionCreator,
		CreatedAt:      now,
	}, now)

	assert.Zero(t, s.CreatorBalance())
	s.ApplyTrade(sessionTrade(sessionCreator, pumpfun.DirectionBuy, 2500, 30, 1e9, now))
	assert.InDelta(t, 2500, s.CreatorBalance(), 1e-9)
}
