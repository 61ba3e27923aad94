// =============================
// File: internal/scoring/buy.go
// =============================
package scoring

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pumptrader/internal/config"
	"pumptrader/internal/pumpfun"
)

// BuyDecision is the outcome of evaluating a freshly minted token.
type BuyDecision struct {
	CanBuy     bool
	Amount     float64
	FinalScore float64
	Breakdown  map[string]float64
	Reason     string
}

// Component weights. The weighted average is normalized by their sum.
const (
	buyAgeWeight        = 50.0
	buyCreatorSolWeight = 30.0
	buyCreatorPctWeight = 30.0
	buyWeightTotal      = buyAgeWeight + buyCreatorSolWeight + buyCreatorPctWeight
)

// neutralCreatorScore is used when the feed carried no initial-buy data:
// an absent dev buy is treated as favorable, not disqualifying.
const neutralCreatorScore = 70.0

// BuyEvaluator scores creation events against the configured thresholds.
type BuyEvaluator struct {
	logger   *zap.Logger
	settings config.BotSettings
}

func NewBuyEvaluator(settings config.BotSettings, logger *zap.Logger) *BuyEvaluator {
	return &BuyEvaluator{logger: logger.Named("buy"), settings: settings}
}

// Evaluate scores the mint and sizes a position. maxSpendableSol is the
// wallet balance available after the reserve floor.
func (e *BuyEvaluator) Evaluate(ev pumpfun.CreationEvent, maxSpendableSol float64, now time.Time) BuyDecision {
	age := now.Sub(ev.CreatedAt)

	ageScore := mintAgeScore(age)
	creatorSol, creatorPct := neutralCreatorScore, neutralCreatorScore
	if ev.InitialBuy != nil {
		creatorSol = creatorSolScore(ev.InitialBuy.SolAmount)
		creatorPct = creatorPercentScore(ev.InitialBuy.CreatorPostPercent)
	}

	finalScore := (ageScore*buyAgeWeight + creatorSol*buyCreatorSolWeight + creatorPct*buyCreatorPctWeight) / buyWeightTotal
	breakdown := map[string]float64{
		"age":             ageScore,
		"creator_sol":     creatorSol,
		"creator_percent": creatorPct,
	}

	decision := BuyDecision{FinalScore: finalScore, Breakdown: breakdown}

	threshold := e.settings.ScoreMinForBuy
	if finalScore < threshold {
		decision.Reason = fmt.Sprintf("score %.1f below buy threshold %.1f", finalScore, threshold)
		return decision
	}

	amount := e.sizePosition(finalScore, maxSpendableSol)
	if amount <= 0 || amount < e.settings.MinBuyAmount {
		decision.Reason = fmt.Sprintf("score %.1f passed but sized amount %.4f SOL is below the %.4f SOL floor", finalScore, amount, e.settings.MinBuyAmount)
		return decision
	}

	decision.CanBuy = true
	decision.Amount = amount
	decision.Reason = fmt.Sprintf("score %.1f >= %.1f, buying %.4f SOL", finalScore, threshold, amount)

	e.logger.Debug("buy evaluation",
		zap.String("mint", ev.TokenAddress.String()),
		zap.Float64("score", finalScore),
		zap.Float64("amount", amount),
		zap.Duration("age", age))
	return decision
}

// sizePosition interpolates between the min and max buy amounts by how far
// the score clears the threshold, after clamping both bounds to what the
// wallet can actually spend.
func (e *BuyEvaluator) sizePosition(score, maxSpendableSol float64) float64 {
	minAmount := e.settings.MinBuyAmount
	maxAmount := e.settings.MaxBuyAmount
	if minAmount > maxSpendableSol {
		minAmount = maxSpendableSol
	}
	if maxAmount > maxSpendableSol {
		maxAmount = maxSpendableSol
	}
	if maxAmount <= 0 {
		return 0
	}

	threshold := e.settings.ScoreMinForBuy
	span := 100 - threshold
	if span <= 0 {
		return maxAmount
	}
	frac := (score - threshold) / span
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return minAmount + frac*(maxAmount-minAmount)
}

// Age bands: the edge on pump.fun decays within seconds of the mint.
func mintAgeScore(age time.Duration) float64 {
	switch secs := age.Seconds(); {
	case secs <= 1:
		return 80
	case secs <= 2:
		return 50
	case secs <= 3:
		return 40
	case secs <= 5:
		return 30
	default:
		return 20
	}
}

func creatorSolScore(solAmount float64) float64 {
	switch {
	case solAmount <= 0.1:
		return 70
	case solAmount <= 0.25:
		return 55
	case solAmount <= 0.5:
		return 40
	case solAmount <= 1:
		return 30
	default:
		return 20
	}
}

func creatorPercentScore(percent float64) float64 {
	switch {
	case percent <= 1:
		return 70
	case percent <= 2:
		return 55
	case percent <= 3:
		return 40
	case percent <= 5:
		return 30
	default:
		return 20
	}
}
