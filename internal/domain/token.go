// =============================
// File: internal/domain/token.go
// =============================
package domain

import (
	"time"

	"pumptrader/internal/pumpfun"
)

// SelectedToken is the session-scoped context of the one mint the bot has
// committed to. Created when a mint is selected for evaluation, destroyed
// when the position closes. Mutated only by the bot's control flow.
type SelectedToken struct {
	TokenAddress string
	Creation     pumpfun.CreationEvent

	// Trades received since selection, in arrival order.
	Trades []pumpfun.TradeEvent

	// Holders maps trader address to net token balance built up
	// incrementally from observed trades. Entries are removed at zero.
	Holders map[string]float64

	// Metadata resolved from the creation event's URI. Nil until the
	// resolve completes; safety scoring treats unresolved as no socials.
	Metadata *pumpfun.TokenMetadata

	SelectedAt  time.Time
	LastTradeAt time.Time

	// Price extremes observed since selection. Ok is false until the first
	// trade carrying a determinable price arrives.
	MinPrice      float64
	MaxPrice      float64
	PriceObserved bool
}

// NewSelectedToken starts a session for a freshly decoded creation event.
func NewSelectedToken(ev pumpfun.CreationEvent, now time.Time) *SelectedToken {
	return &SelectedToken{
		TokenAddress: ev.TokenAddress.String(),
		Creation:     ev,
		Holders:      make(map[string]float64),
		SelectedAt:   now,
	}
}

// ApplyTrade folds a trade into the session: appends it, updates the holder
// map and tracks price extremes. Trades for other mints must be filtered out
// by the caller before this point.
func (s *SelectedToken) ApplyTrade(t pumpfun.TradeEvent) {
	s.Trades = append(s.Trades, t)
	s.LastTradeAt = t.Timestamp

	trader := t.TraderAddress.String()
	balance := s.Holders[trader]
	if t.PostBalanceToken > 0 {
		// The feed reports the trader's post-fill balance; trust it over our
		// own delta bookkeeping. A reported zero is indistinguishable from
		// unreported, so full exits fall through to the delta path.
		balance = t.PostBalanceToken
	} else {
		delta := t.TokenAmount
		if !t.IsBuy() {
			delta = -delta
		}
		balance += delta
	}
	// Out-of-order fills can momentarily push a balance below zero; a
	// non-positive balance means the holder is out.
	if balance <= 0 {
		delete(s.Holders, trader)
	} else {
		s.Holders[trader] = balance
	}

	if price, ok := pumpfun.TradePrice(&t); ok {
		if !s.PriceObserved {
			s.MinPrice, s.MaxPrice = price, price
			s.PriceObserved = true
			return
		}
		if price < s.MinPrice {
			s.MinPrice = price
		}
		if price > s.MaxPrice {
			s.MaxPrice = price
		}
	}
}

// RecentTrades returns up to n most recent trades, oldest first.
func (s *SelectedToken) RecentTrades(n int) []pumpfun.TradeEvent {
	if n <= 0 || len(s.Trades) == 0 {
		return nil
	}
	if len(s.Trades) <= n {
		return s.Trades
	}
	return s.Trades[len(s.Trades)-n:]
}

// LastPrice returns the most recent determinable price.
func (s *SelectedToken) LastPrice() (float64, bool) {
	for i := len(s.Trades) - 1; i >= 0; i-- {
		if p, ok := pumpfun.TradePrice(&s.Trades[i]); ok {
			return p, true
		}
	}
	return 0, false
}

// CreatorBalance returns the creator's current net balance from the holder map.
func (s *SelectedToken) CreatorBalance() float64 {
	return s.Holders[s.Creation.CreatorAddress.String()]
}
