// =============================
// File: internal/analyzer/signal.go
// =============================
package analyzer

import (
	"fmt"

	"go.uber.org/zap"

	"pumptrader/internal/pumpfun"
)

// TradingAction is the composite recommendation.
type TradingAction string

const (
	ActionBuy   TradingAction = "BUY"
	ActionSell  TradingAction = "SELL"
	ActionHold  TradingAction = "HOLD"
	ActionAvoid TradingAction = "AVOID"
)

// TradingAnalysis is the combined recommendation built from risk, safety and
// short-term trend inputs.
type TradingAnalysis struct {
	Action     TradingAction
	Confidence float64
	Reasons    []string

	// Set only for BUY.
	StopLoss    float64
	TakeProfit  float64
	EntryPoints []float64
}

// Composite rule thresholds.
const (
	sellRiskMin      = 70.0
	buySafetyMin     = 70.0
	buyRiskMax       = 30.0
	buyGrowthMin     = 60.0
	holdGrowthMin    = 50.0
	sellReasonFlags  = 3
	trendWindow      = 5
	entryPointCount  = 2
	entryBaseCorrect = 0.02
	entrySpanCorrect = 0.08
)

// Stop-loss bands by risk score; take-profit bands by growth score.
const (
	stopLossLowRisk  = 0.85 // risk < 10
	stopLossMidRisk  = 0.80 // risk < 20
	stopLossHighRisk = 0.75

	takeProfitHighGrowth = 2.0 // growth >= 80
	takeProfitMidGrowth  = 1.75
	takeProfitLowGrowth  = 1.5
)

// TradingSignalAnalyzer folds risk and safety scores plus short-term trend
// pressure into a single action.
type TradingSignalAnalyzer struct {
	logger *zap.Logger
}

func NewTradingSignalAnalyzer(logger *zap.Logger) *TradingSignalAnalyzer {
	return &TradingSignalAnalyzer{logger: logger.Named("signal")}
}

// Generate composes the current analyses into one recommendation.
func (a *TradingSignalAnalyzer) Generate(risk *RiskAnalysis, safety *SafetyAnalysis, snap TokenSnapshot, recent []pumpfun.TradeEvent) TradingAnalysis {
	growth := GrowthHealthScore(recent)
	pressure := trendPressure(recent)

	if risk.Score >= sellRiskMin {
		return TradingAnalysis{
			Action:     ActionSell,
			Confidence: risk.Score,
			Reasons:    topHighRiskReasons(risk),
		}
	}

	if safety.Score >= buySafetyMin && risk.Score <= buyRiskMax && growth >= buyGrowthMin {
		analysis := TradingAnalysis{
			Action:     ActionBuy,
			Confidence: (safety.Score + growth) / 2,
			Reasons: []string{
				fmt.Sprintf("safety %.0f with risk %.0f", safety.Score, risk.Score),
				fmt.Sprintf("growth health %.0f", growth),
			},
		}
		if snap.PriceOk {
			analysis.StopLoss = snap.Price * stopLossFactor(risk.Score)
			analysis.TakeProfit = snap.Price * takeProfitFactor(growth)
			analysis.EntryPoints = stagedEntryPoints(snap.Price, safety.Score, growth)
		}
		return analysis
	}

	if safety.Score > risk.Score && growth >= holdGrowthMin {
		return TradingAnalysis{
			Action:     ActionHold,
			Confidence: safety.Score - risk.Score,
			Reasons: []string{
				fmt.Sprintf("safety %.0f above risk %.0f", safety.Score, risk.Score),
				fmt.Sprintf("buy pressure %.0f%%", pressure*100),
			},
		}
	}

	return TradingAnalysis{
		Action:     ActionAvoid,
		Confidence: clampScore(risk.Score + (100-safety.Score)/2),
		Reasons: []string{
			fmt.Sprintf("risk %.0f, safety %.0f, growth %.0f", risk.Score, safety.Score, growth),
		},
	}
}

// GrowthHealthScore rates how consistently the recent price series rises,
// on a 0-100 scale.
func GrowthHealthScore(recent []pumpfun.TradeEvent) float64 {
	prices := priceSeries(recent)
	if len(prices) < 2 {
		return 50
	}
	rising := 0
	for i := 1; i < len(prices); i++ {
		if prices[i] >= prices[i-1] {
			rising++
		}
	}
	base := float64(rising) / float64(len(prices)-1) * 100

	// trend magnitude nudges the step share up or down
	first, last := prices[0], prices[len(prices)-1]
	if first > 0 {
		change := (last - first) / first
		base += change * 50
	}
	return clampScore(base)
}

// trendPressure returns the buy share of the newest trades.
func trendPressure(recent []pumpfun.TradeEvent) float64 {
	window := recent
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}
	if len(window) == 0 {
		return 0.5
	}
	buys := 0
	for i := range window {
		if window[i].IsBuy() {
			buys++
		}
	}
	return float64(buys) / float64(len(window))
}

func topHighRiskReasons(risk *RiskAnalysis) []string {
	reasons := make([]string, 0, sellReasonFlags)
	for _, f := range risk.Flags.List() {
		if f.Severity != SeverityHigh {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", f.Type, f.Description))
		if len(reasons) == sellReasonFlags {
			break
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("risk score %.0f", risk.Score))
	}
	return reasons
}

func stopLossFactor(riskScore float64) float64 {
	switch {
	case riskScore < 10:
		return stopLossLowRisk
	case riskScore < 20:
		return stopLossMidRisk
	default:
		return stopLossHighRisk
	}
}

func takeProfitFactor(growth float64) float64 {
	switch {
	case growth >= 80:
		return takeProfitHighGrowth
	case growth >= 70:
		return takeProfitMidGrowth
	default:
		return takeProfitLowGrowth
	}
}

// stagedEntryPoints places two entries below the current price. The
// correction depth shrinks as the averaged safety/growth score improves.
func stagedEntryPoints(price, safetyScore, growthScore float64) []float64 {
	avg := (safetyScore + growthScore) / 2
	depth := entryBaseCorrect + (100-avg)/100*entrySpanCorrect
	points := make([]float64, 0, entryPointCount)
	for i := 1; i <= entryPointCount; i++ {
		points = append(points, price*(1-depth*float64(i)))
	}
	return points
}
