// =============================
// File: internal/analyzer/risk.go
// =============================
package analyzer

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"pumptrader/internal/pumpfun"
)

// Risk flag types.
const (
	FlagInactivity          = "INACTIVITY"
	FlagFastMarketCapGrowth = "FAST_MARKETCAP_GROWTH"
	FlagPriceSpike          = "PRICE_SPIKE"
	FlagSellingPressure     = "SELLING_PRESSURE"
	FlagLargeSell           = "LARGE_SELL"
	FlagConsecutiveDrops    = "CONSECUTIVE_DROPS"
	FlagPriceCrash          = "PRICE_CRASH"
	FlagPumpAndDump         = "PUMP_AND_DUMP"
	FlagHolderConcentration = "HOLDER_CONCENTRATION"
	FlagCreatorHoldings     = "CREATOR_HOLDINGS"
	FlagCreatorEarlySell    = "CREATOR_EARLY_SELL"
	FlagCreatorMajoritySell = "CREATOR_MAJORITY_SELL"
	FlagRugPull             = "RUG_PULL"
)

// riskWeights are the per-severity score contributions, on a base of 0.
var riskWeights = map[Severity]float64{
	SeverityHigh:   25,
	SeverityMedium: 15,
	SeverityLow:    5,
}

// Detector thresholds. Kept as named constants so bands are testable and
// tunable without touching control flow.
const (
	inactivityLowSec  = 8
	inactivityMedSec  = 15
	inactivityHighSec = 30

	mcapGrowthMedSolPerSec  = 1.0
	mcapGrowthHighSolPerSec = 3.0

	priceSpikeFactor    = 3.0
	priceSpikeWindow    = 10
	sellPressureWindow  = 10
	sellPressureMed     = 0.6
	sellPressureHigh    = 0.7
	largeSellFactor     = 3.0
	consecutiveDropsMed = 3
	consecutiveDropsHi  = 5
	crashMedPct         = 15.0
	crashHighPct        = 30.0

	dumpWindow     = 5
	dumpPeakFactor = 1.5

	holderShareMedPct  = 10.0
	holderShareHighPct = 40.0

	creatorHoldLowPct  = 1.0
	creatorHoldMedPct  = 2.0
	creatorHoldHighPct = 5.0

	creatorEarlySellHighSec = 30
	creatorEarlySellMedSec  = 60
	creatorMajoritySoldPct  = 50.0

	rugPullBonus     = 20.0
	rugPullNoHighCap = 60.0
)

// RiskAnalysis is the accumulated risk state for one token.
type RiskAnalysis struct {
	Score              float64
	Flags              *FlagSet
	RugPullProbability float64
}

// NewRiskAnalysis returns an empty analysis with score 0.
func NewRiskAnalysis() *RiskAnalysis {
	return &RiskAnalysis{Flags: NewFlagSet()}
}

// RiskAnalyzer re-evaluates all risk detectors on every trade.
type RiskAnalyzer struct {
	logger *zap.Logger
}

func NewRiskAnalyzer(logger *zap.Logger) *RiskAnalyzer {
	return &RiskAnalyzer{logger: logger.Named("risk")}
}

// Update folds one new trade into the analysis and returns it. The analysis
// score is always within [0,100].
func (a *RiskAnalyzer) Update(analysis *RiskAnalysis, snap TokenSnapshot, newTrade pumpfun.TradeEvent, recent []pumpfun.TradeEvent, now time.Time) *RiskAnalysis {
	if analysis == nil {
		analysis = NewRiskAnalysis()
	}
	flags := analysis.Flags

	a.detectInactivity(flags, newTrade, now)
	a.detectMarketCapGrowth(flags, snap, now)
	a.detectPriceSpike(flags, newTrade, recent, now)
	a.detectSellingPressure(flags, recent, now)
	a.detectLargeSell(flags, newTrade, recent, now)
	a.detectPriceDrops(flags, recent, now)
	a.detectPumpAndDump(flags, recent, now)
	a.detectHolderConcentration(flags, snap, now)
	a.detectCreatorHoldings(flags, snap, now)
	a.detectCreatorSelling(flags, snap, now)

	// Composite: creator exit plus price manipulation together look like a rug.
	creatorSelling := flags.Has(FlagCreatorEarlySell) || flags.Has(FlagCreatorMajoritySell)
	manipulation := flags.Has(FlagPumpAndDump) || flags.Has(FlagPriceSpike) || flags.Has(FlagPriceCrash)
	if creatorSelling && manipulation {
		flags.Add(FlagRugPull, SeverityHigh, "creator selling combined with price manipulation", now)
	} else {
		flags.Remove(FlagRugPull)
	}

	analysis.Score = clampScore(flags.WeightedSum(riskWeights))
	analysis.RugPullProbability = a.rugPullProbability(analysis)

	return analysis
}

// rugPullProbability caps the estimate at 60 while no HIGH flag exists;
// otherwise it is the clamped risk score plus the co-occurrence bonus.
func (a *RiskAnalyzer) rugPullProbability(analysis *RiskAnalysis) float64 {
	p := analysis.Score
	if analysis.Flags.Has(FlagRugPull) {
		p += rugPullBonus
	}
	if !analysis.Flags.AnyOfSeverity(SeverityHigh) {
		return math.Min(clampScore(p), rugPullNoHighCap)
	}
	return clampScore(p)
}

func (a *RiskAnalyzer) detectInactivity(flags *FlagSet, newTrade pumpfun.TradeEvent, now time.Time) {
	elapsed := now.Sub(newTrade.Timestamp).Seconds()
	switch {
	case elapsed >= inactivityHighSec:
		flags.Add(FlagInactivity, SeverityHigh, fmt.Sprintf("no trades for %.0fs", elapsed), now)
	case elapsed >= inactivityMedSec:
		flags.Add(FlagInactivity, SeverityMedium, fmt.Sprintf("no trades for %.0fs", elapsed), now)
	case elapsed >= inactivityLowSec:
		flags.Add(FlagInactivity, SeverityLow, fmt.Sprintf("no trades for %.0fs", elapsed), now)
	default:
		flags.Remove(FlagInactivity)
	}
}

func (a *RiskAnalyzer) detectMarketCapGrowth(flags *FlagSet, snap TokenSnapshot, now time.Time) {
	if !snap.MarketCapOk || snap.CreatedAt.IsZero() {
		return
	}
	ageSec := now.Sub(snap.CreatedAt).Seconds()
	if ageSec <= 0 {
		return
	}
	growth := snap.MarketCap / ageSec
	switch {
	case growth >= mcapGrowthHighSolPerSec:
		flags.Add(FlagFastMarketCapGrowth, SeverityHigh, fmt.Sprintf("market cap growing %.2f SOL/s", growth), now)
	case growth >= mcapGrowthMedSolPerSec:
		flags.Add(FlagFastMarketCapGrowth, SeverityMedium, fmt.Sprintf("market cap growing %.2f SOL/s", growth), now)
	default:
		flags.Remove(FlagFastMarketCapGrowth)
	}
}

func (a *RiskAnalyzer) detectPriceSpike(flags *FlagSet, newTrade pumpfun.TradeEvent, recent []pumpfun.TradeEvent, now time.Time) {
	current, ok := pumpfun.TradePrice(&newTrade)
	if !ok || len(recent) < 2 {
		return
	}
	// trailing average excludes the newest trade
	window := recent
	if len(window) > priceSpikeWindow {
		window = window[len(window)-priceSpikeWindow:]
	}
	prices := priceSeries(window[:len(window)-1])
	avg := mean(prices)
	if avg <= 0 {
		return
	}
	if current > avg*priceSpikeFactor {
		flags.Add(FlagPriceSpike, SeverityMedium,
			fmt.Sprintf("price %.3gx above trailing average", current/avg), now)
	} else {
		flags.Remove(FlagPriceSpike)
	}
}

func (a *RiskAnalyzer) detectSellingPressure(flags *FlagSet, recent []pumpfun.TradeEvent, now time.Time) {
	window := recent
	if len(window) > sellPressureWindow {
		window = window[len(window)-sellPressureWindow:]
	}
	if len(window) < 4 {
		return
	}
	sells := 0
	for i := range window {
		if !window[i].IsBuy() {
			sells++
		}
	}
	ratio := float64(sells) / float64(len(window))
	switch {
	case ratio >= sellPressureHigh:
		flags.Add(FlagSellingPressure, SeverityHigh,
			fmt.Sprintf("%d of last %d trades are sells", sells, len(window)), now)
	case ratio >= sellPressureMed:
		flags.Add(FlagSellingPressure, SeverityMedium,
			fmt.Sprintf("%d of last %d trades are sells", sells, len(window)), now)
	default:
		flags.Remove(FlagSellingPressure)
	}
}

func (a *RiskAnalyzer) detectLargeSell(flags *FlagSet, newTrade pumpfun.TradeEvent, recent []pumpfun.TradeEvent, now time.Time) {
	if newTrade.IsBuy() || len(recent) < 3 {
		return
	}
	var sum float64
	for i := range recent {
		sum += recent[i].SolAmount
	}
	avg := sum / float64(len(recent))
	if avg > 0 && newTrade.SolAmount > avg*largeSellFactor {
		flags.Add(FlagLargeSell, SeverityMedium,
			fmt.Sprintf("sell of %.4f SOL vs %.4f SOL average", newTrade.SolAmount, avg), now)
	}
}

func (a *RiskAnalyzer) detectPriceDrops(flags *FlagSet, recent []pumpfun.TradeEvent, now time.Time) {
	prices := priceSeries(recent)
	if len(prices) < 2 {
		return
	}

	// consecutive drops counted from the newest price backwards
	drops := 0
	for i := len(prices) - 1; i > 0; i-- {
		if prices[i] < prices[i-1] {
			drops++
		} else {
			break
		}
	}
	switch {
	case drops >= consecutiveDropsHi:
		flags.Add(FlagConsecutiveDrops, SeverityHigh, fmt.Sprintf("%d consecutive price drops", drops), now)
	case drops >= consecutiveDropsMed:
		flags.Add(FlagConsecutiveDrops, SeverityMedium, fmt.Sprintf("%d consecutive price drops", drops), now)
	default:
		flags.Remove(FlagConsecutiveDrops)
	}

	prev, last := prices[len(prices)-2], prices[len(prices)-1]
	if prev > 0 {
		dropPct := (prev - last) / prev * 100
		switch {
		case dropPct > crashHighPct:
			flags.Add(FlagPriceCrash, SeverityHigh, fmt.Sprintf("price fell %.1f%% in one trade", dropPct), now)
		case dropPct > crashMedPct:
			flags.Add(FlagPriceCrash, SeverityMedium, fmt.Sprintf("price fell %.1f%% in one trade", dropPct), now)
		default:
			flags.Remove(FlagPriceCrash)
		}
	}
}

// detectPumpAndDump compares the first and last window of the recent price
// series; a peak in between that never held is the classic shape.
func (a *RiskAnalyzer) detectPumpAndDump(flags *FlagSet, recent []pumpfun.TradeEvent, now time.Time) {
	prices := priceSeries(recent)
	if len(prices) < dumpWindow*2 {
		return
	}
	first := mean(prices[:dumpWindow])
	last := mean(prices[len(prices)-dumpWindow:])
	peak := prices[0]
	for _, p := range prices {
		if p > peak {
			peak = p
		}
	}
	if first > 0 && peak > first*dumpPeakFactor && last < first {
		flags.Add(FlagPumpAndDump, SeverityHigh,
			fmt.Sprintf("peaked %.3gx above open, now below it", peak/first), now)
	} else {
		flags.Remove(FlagPumpAndDump)
	}
}

func (a *RiskAnalyzer) detectHolderConcentration(flags *FlagSet, snap TokenSnapshot, now time.Time) {
	if snap.TotalSupply <= 0 || len(snap.Holders) == 0 {
		return
	}
	var topShare float64
	var topHolder string
	for addr, balance := range snap.Holders {
		if addr == snap.Creator {
			continue
		}
		share := balance / snap.TotalSupply * 100
		if share > topShare {
			topShare, topHolder = share, addr
		}
	}
	switch {
	case topShare > holderShareHighPct:
		flags.Add(FlagHolderConcentration, SeverityHigh,
			fmt.Sprintf("holder %s controls %.1f%% of supply", shortAddr(topHolder), topShare), now)
	case topShare > holderShareMedPct:
		flags.Add(FlagHolderConcentration, SeverityMedium,
			fmt.Sprintf("holder %s controls %.1f%% of supply", shortAddr(topHolder), topShare), now)
	default:
		flags.Remove(FlagHolderConcentration)
	}
}

func (a *RiskAnalyzer) detectCreatorHoldings(flags *FlagSet, snap TokenSnapshot, now time.Time) {
	if snap.TotalSupply <= 0 {
		return
	}
	share := snap.Holders[snap.Creator] / snap.TotalSupply * 100
	switch {
	case share > creatorHoldHighPct:
		flags.Add(FlagCreatorHoldings, SeverityHigh, fmt.Sprintf("creator holds %.1f%% of supply", share), now)
	case share > creatorHoldMedPct:
		flags.Add(FlagCreatorHoldings, SeverityMedium, fmt.Sprintf("creator holds %.1f%% of supply", share), now)
	case share > creatorHoldLowPct:
		flags.Add(FlagCreatorHoldings, SeverityLow, fmt.Sprintf("creator holds %.1f%% of supply", share), now)
	default:
		flags.Remove(FlagCreatorHoldings)
	}
}

func (a *RiskAnalyzer) detectCreatorSelling(flags *FlagSet, snap TokenSnapshot, now time.Time) {
	if snap.CreatorFirstSellAt.IsZero() {
		return
	}
	timeToFirst := snap.CreatorFirstSellAt.Sub(snap.CreatedAt).Seconds()
	switch {
	case timeToFirst < creatorEarlySellHighSec:
		flags.Add(FlagCreatorEarlySell, SeverityHigh,
			fmt.Sprintf("creator sold %.0fs after mint", timeToFirst), now)
	case timeToFirst < creatorEarlySellMedSec:
		flags.Add(FlagCreatorEarlySell, SeverityMedium,
			fmt.Sprintf("creator sold %.0fs after mint", timeToFirst), now)
	}

	if snap.CreatorInitialTokens > 0 {
		soldPct := snap.CreatorSoldTokens / snap.CreatorInitialTokens * 100
		if soldPct > creatorMajoritySoldPct {
			flags.Add(FlagCreatorMajoritySell, SeverityHigh,
				fmt.Sprintf("creator sold %.0f%% of their supply", soldPct), now)
		}
	}
}

func shortAddr(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
