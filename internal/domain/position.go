// =============================
// File: internal/domain/position.go
// =============================
package domain

import "time"

// Position tracks one open (or archived) holding. Created on a confirmed
// buy, mutated once on the confirmed sell, then appended to history.
type Position struct {
	TokenAddress string

	PreBalanceSol  float64
	PostBalanceSol *float64

	RecommendedSolAmount float64
	BuySolCost           float64
	BuyPrice             float64
	TokenAmount          float64

	SellPrice     *float64
	SellSolAmount *float64
	SellSolReward *float64
	Profit        *float64

	// Price extremes observed after the buy confirmed; drive the
	// trailing stop and the ATH distance score.
	MaxPriceSinceBuy float64
	MinPriceSinceBuy float64

	Timestamp time.Time

	closed bool
}

// NewPosition opens a position around a confirmed buy.
func NewPosition(token string, preBalanceSol, postBalanceSol, recommended, buyPrice, tokenAmount float64, at time.Time) *Position {
	post := postBalanceSol
	return &Position{
		TokenAddress:         token,
		PreBalanceSol:        preBalanceSol,
		PostBalanceSol:       &post,
		RecommendedSolAmount: recommended,
		BuySolCost:           preBalanceSol - postBalanceSol,
		BuyPrice:             buyPrice,
		TokenAmount:          tokenAmount,
		MaxPriceSinceBuy:     buyPrice,
		MinPriceSinceBuy:     buyPrice,
		Timestamp:            at,
	}
}

// ObservePrice updates post-buy extremes with a known price.
func (p *Position) ObservePrice(price float64) {
	if price > p.MaxPriceSinceBuy {
		p.MaxPriceSinceBuy = price
	}
	if price < p.MinPriceSinceBuy || p.MinPriceSinceBuy == 0 {
		p.MinPriceSinceBuy = price
	}
}

// ProfitPercent returns unrealized profit at the given price, in percent of
// the buy price.
func (p *Position) ProfitPercent(currentPrice float64) float64 {
	if p.BuyPrice <= 0 {
		return 0
	}
	return (currentPrice - p.BuyPrice) / p.BuyPrice * 100
}

// Close records the confirmed sell and the realized SOL profit.
func (p *Position) Close(sellPrice, solReceived float64) {
	p.SellPrice = &sellPrice
	amount := p.TokenAmount
	p.SellSolAmount = &amount
	p.SellSolReward = &solReceived
	profit := solReceived - p.BuySolCost
	p.Profit = &profit
	p.closed = true
}

// CloseUnknownProceeds closes the position after a confirmed sell whose SOL
// proceeds could not be measured. The sell side stays nil rather than
// recording a zero that downstream consumers would read as a real number.
func (p *Position) CloseUnknownProceeds() {
	amount := p.TokenAmount
	p.SellSolAmount = &amount
	p.closed = true
}

// IsClosed reports whether the sell side has been recorded.
func (p *Position) IsClosed() bool { return p.closed }

// Age returns the time since the buy confirmed.
func (p *Position) Age(now time.Time) time.Duration { return now.Sub(p.Timestamp) }
