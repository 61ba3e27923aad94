// =============================
// File: internal/analyzer/snapshot.go
// =============================
package analyzer

import (
	"time"

	"pumptrader/internal/domain"
	"pumptrader/internal/pumpfun"
)

// TokenSnapshot is the read-only view of a token the analyzers score from.
// The bot builds one per tick from the current session; analyzers never
// touch session state directly.
type TokenSnapshot struct {
	TokenAddress string
	Creator      string
	CreatedAt    time.Time

	TotalSupply float64
	Holders     map[string]float64

	// Token reserves still held by the bonding curve, in whole tokens.
	BondingCurveTokens float64

	Price     float64
	PriceOk   bool
	MarketCap float64
	// MarketCapOk is false when the price is unknown; scoring components
	// that need the market cap are skipped, not fed a zero.
	MarketCapOk bool

	// Creator trading aggregates since mint.
	CreatorInitialTokens float64
	CreatorSoldTokens    float64
	CreatorFirstSellAt   time.Time // zero when the creator has not sold

	// Social metadata resolved from the token URI. Empty fields count
	// against the social presence score.
	Website  string
	Twitter  string
	Telegram string
	ImageURI string
}

// SnapshotFromSession derives a snapshot from the current session state.
func SnapshotFromSession(s *domain.SelectedToken) TokenSnapshot {
	creator := s.Creation.CreatorAddress.String()

	snap := TokenSnapshot{
		TokenAddress: s.TokenAddress,
		Creator:      creator,
		CreatedAt:    s.Creation.CreatedAt,
		TotalSupply:  s.Creation.TotalSupply,
		Holders:      s.Holders,
	}

	if ib := s.Creation.InitialBuy; ib != nil {
		snap.CreatorInitialTokens = ib.TokenAmount
	}

	if md := s.Metadata; md != nil {
		snap.Website = md.Website
		snap.Twitter = md.Twitter
		snap.Telegram = md.Telegram
		snap.ImageURI = md.Image
	}

	if len(s.Trades) > 0 {
		last := s.Trades[len(s.Trades)-1]
		snap.BondingCurveTokens = last.RealTokenReserves
		if p, ok := pumpfun.TradePrice(&last); ok {
			snap.Price, snap.PriceOk = p, true
			if mc, ok := pumpfun.MarketCap(last.VirtualSolReserves, last.VirtualTokenReserves, s.Creation.TotalSupply); ok {
				snap.MarketCap, snap.MarketCapOk = mc, true
			}
		}
	}

	for i := range s.Trades {
		t := &s.Trades[i]
		if t.TraderAddress.String() != creator || t.IsBuy() {
			continue
		}
		snap.CreatorSoldTokens += t.TokenAmount
		if snap.CreatorFirstSellAt.IsZero() {
			snap.CreatorFirstSellAt = t.Timestamp
		}
	}

	return snap
}

// priceSeries extracts the determinable prices from a trade window,
// oldest first. Trades without a determinable price are skipped.
func priceSeries(trades []pumpfun.TradeEvent) []float64 {
	prices := make([]float64, 0, len(trades))
	for i := range trades {
		if p, ok := pumpfun.TradePrice(&trades[i]); ok {
			prices = append(prices, p)
		}
	}
	return prices
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
