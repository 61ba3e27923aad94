// =============================
// File: internal/scoring/sell.go
// =============================
package scoring

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pumptrader/internal/config"
	"pumptrader/internal/domain"
	"pumptrader/internal/pumpfun"
)

// SellDecision is the outcome of evaluating the open position against the
// latest trade and reserves.
type SellDecision struct {
	CanSell    bool
	Amount     float64
	FinalScore float64
	Reason     string
}

// Component weights; inactivity dominates because a dead tape on a fresh
// mint rarely comes back.
const (
	sellATHWeight        = 20.0
	sellAgeWeight        = 10.0
	sellInactivityWeight = 50.0
	sellPressure3Weight  = 30.0
	sellPressure5Weight  = 10.0
	sellWeightTotal      = sellATHWeight + sellAgeWeight + sellInactivityWeight + sellPressure3Weight + sellPressure5Weight
)

// Trailing stop preconditions.
const (
	trailingMinAge    = 10 * time.Second
	trailingMinTrades = 15
)

// Sell pressure is normalized into a 25-75 band so an all-buy or all-sell
// window never dominates the blend on its own.
const (
	pressureBandBase = 25.0
	pressureBandSpan = 50.0
)

// SellEvaluator scores the open position for exit timing.
type SellEvaluator struct {
	logger   *zap.Logger
	settings config.BotSettings
}

func NewSellEvaluator(settings config.BotSettings, logger *zap.Logger) *SellEvaluator {
	return &SellEvaluator{logger: logger.Named("sell"), settings: settings}
}

// Evaluate blends the component scores and checks the four independent exit
// triggers in order: weighted score, stop limit, take profit, trailing stop.
// The first trigger that fires names itself in the reason. It also emits the
// KPI snapshot for telemetry; the evaluation never mutates the position.
func (e *SellEvaluator) Evaluate(token *domain.SelectedToken, pos *domain.Position, latestSolReserves, latestTokenReserves float64, now time.Time) (SellDecision, domain.KPISnapshot) {
	price, priceOk := pumpfun.Price(latestSolReserves, latestTokenReserves)
	if !priceOk {
		// fall back to the last determinable trade price
		price, priceOk = token.LastPrice()
	}

	profitPct := 0.0
	profitOk := false
	if priceOk {
		profitPct = pos.ProfitPercent(price)
		profitOk = true
	}

	athScore := 20.0
	if priceOk {
		athScore = athDistanceScore(profitPct, price, pos.MaxPriceSinceBuy)
	}
	ageScore := mintAgeSellScore(now.Sub(token.Creation.CreatedAt))
	inactivityScore := inactivitySellScore(now.Sub(token.LastTradeAt))
	pressure3 := sellPressureScore(token.RecentTrades(3))
	pressure5 := sellPressureScore(token.RecentTrades(5))

	finalScore := (athScore*sellATHWeight +
		ageScore*sellAgeWeight +
		inactivityScore*sellInactivityWeight +
		pressure3*sellPressure3Weight +
		pressure5*sellPressure5Weight) / sellWeightTotal

	breakdown := map[string]float64{
		"ath":        athScore,
		"age":        ageScore,
		"inactivity": inactivityScore,
		"pressure@3": pressure3,
		"pressure@5": pressure5,
	}

	kpi := domain.KPISnapshot{
		TokenAddress:    token.TokenAddress,
		BuyPrice:        pos.BuyPrice,
		CurrentPrice:    price,
		CurrentPriceOk:  priceOk,
		ProfitPercent:   profitPct,
		ProfitPercentOk: profitOk,
		MinPrice:        pos.MinPriceSinceBuy,
		MaxPrice:        pos.MaxPriceSinceBuy,
		FinalScore:      finalScore,
		ScoreBreakdown:  breakdown,
		TradesObserved:  len(token.Trades),
	}
	if priceOk && pos.MaxPriceSinceBuy > 0 {
		kpi.PercentOfATH = price / pos.MaxPriceSinceBuy * 100
	}

	decision := SellDecision{FinalScore: finalScore, Amount: pos.TokenAmount}

	switch {
	case finalScore >= e.settings.ScoreMinForSell:
		decision.CanSell = true
		decision.Reason = fmt.Sprintf("sell score %.1f >= %.1f", finalScore, e.settings.ScoreMinForSell)

	case profitOk && profitPct <= -e.settings.StopLimitPercent:
		decision.CanSell = true
		decision.Reason = fmt.Sprintf("Stop Limit: profit %.1f%% breached -%.1f%%", profitPct, e.settings.StopLimitPercent)

	case profitOk && profitPct >= e.settings.TakeProfitPercent:
		decision.CanSell = true
		decision.Reason = fmt.Sprintf("Take Profit: profit %.1f%% reached +%.1f%%", profitPct, e.settings.TakeProfitPercent)

	case e.trailingStopHit(pos, price, priceOk, len(token.Trades), now):
		decision.CanSell = true
		decision.Reason = fmt.Sprintf("Trailing Stop: price %.3e fell below %.0f%% of the post-buy high %.3e",
			price, e.settings.TrailingStopPercent, pos.MaxPriceSinceBuy)

	default:
		decision.Reason = fmt.Sprintf("holding: score %.1f below %.1f, no price trigger", finalScore, e.settings.ScoreMinForSell)
	}

	if decision.CanSell {
		e.logger.Debug("sell triggered",
			zap.String("mint", token.TokenAddress),
			zap.Float64("score", finalScore),
			zap.String("reason", decision.Reason))
	}
	return decision, kpi
}

// trailingStopHit fires only on a seasoned position: the price must still be
// above the entry but have given back too much of the post-buy high.
func (e *SellEvaluator) trailingStopHit(pos *domain.Position, price float64, priceOk bool, trades int, now time.Time) bool {
	if !priceOk || pos.MaxPriceSinceBuy <= 0 {
		return false
	}
	if pos.Age(now) <= trailingMinAge || trades < trailingMinTrades {
		return false
	}
	if price <= pos.BuyPrice {
		return false
	}
	return price < pos.MaxPriceSinceBuy*e.settings.TrailingStopPercent/100
}

// athDistanceScore rates how far the price sits below the post-buy high.
// Losing positions score highest outright.
func athDistanceScore(profitPct, price, maxSinceBuy float64) float64 {
	if profitPct < 0 {
		return 90
	}
	if maxSinceBuy <= 0 {
		return 20
	}
	dropPct := (maxSinceBuy - price) / maxSinceBuy * 100
	switch {
	case dropPct >= 50:
		return 85
	case dropPct >= 30:
		return 70
	case dropPct >= 20:
		return 55
	case dropPct >= 10:
		return 40
	default:
		return 20
	}
}

func mintAgeSellScore(age time.Duration) float64 {
	switch secs := age.Seconds(); {
	case secs >= 300:
		return 70
	case secs >= 120:
		return 55
	case secs >= 60:
		return 40
	default:
		return 20
	}
}

func inactivitySellScore(sinceLastTrade time.Duration) float64 {
	switch secs := sinceLastTrade.Seconds(); {
	case secs >= 20:
		return 95
	case secs >= 10:
		return 80
	case secs >= 5:
		return 60
	case secs >= 3:
		return 40
	default:
		return 10
	}
}

// sellPressureScore maps the sell share of the window into the 25-75 band.
func sellPressureScore(window []pumpfun.TradeEvent) float64 {
	if len(window) == 0 {
		return pressureBandBase + pressureBandSpan/2
	}
	sells := 0
	for i := range window {
		if !window[i].IsBuy() {
			sells++
		}
	}
	share := float64(sells) / float64(len(window))
	return pressureBandBase + share*pressureBandSpan
}
