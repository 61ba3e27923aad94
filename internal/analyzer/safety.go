// =============================
// File: internal/analyzer/safety.go
// =============================
package analyzer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"pumptrader/internal/pumpfun"
)

// Safety indicator types.
const (
	IndicatorHealthyDistribution = "HEALTHY_DISTRIBUTION"
	IndicatorGrowingHolders      = "GROWING_HOLDERS"
	IndicatorActiveTrading       = "ACTIVE_TRADING"
	IndicatorHealthyBuyRatio     = "HEALTHY_BUY_RATIO"
	IndicatorStrongLiquidity     = "STRONG_LIQUIDITY"
	IndicatorHealthyVolume       = "HEALTHY_VOLUME"
	IndicatorPriceStability      = "PRICE_STABILITY"
	IndicatorSteadyGrowth        = "STEADY_GROWTH"
	IndicatorStrongSocial        = "STRONG_SOCIAL_PRESENCE"
	IndicatorDecentSocial        = "DECENT_SOCIAL_PRESENCE"
)

// safetyBase is the neutral starting score before indicator weights apply.
const safetyBase = 50.0

var safetyWeights = map[Severity]float64{
	SeverityHigh:   20,
	SeverityMedium: 10,
	SeverityLow:    5,
}

// Indicator thresholds.
const (
	healthyHolderMin      = 10
	healthyTopSharePct    = 10.0
	healthyCreatorPct     = 5.0
	holderCountMed        = 20
	holderCountHigh       = 50
	tradesPerMinMed       = 10.0
	tradesPerMinHigh      = 30.0
	activityVolumeFloor   = 0.5 // SOL over the activity window
	buyRatioMed           = 0.55
	buyRatioHigh          = 0.65
	liquidityShareMedPct  = 50.0
	liquidityShareHighPct = 70.0
	volumeToMcapMed       = 0.05
	volumeToMcapHigh      = 0.15
	stabilityWindow       = 10
	stabilityCVMax        = 0.10
	growthMedPct          = 10.0
	growthHighPct         = 25.0

	socialWebsiteWeight  = 30.0
	socialTwitterWeight  = 25.0
	socialTelegramWeight = 20.0
	socialImageWeight    = 15.0
	socialDomainBonus    = 10.0
	socialStrongMin      = 70.0
	socialDecentMin      = 40.0
)

// SafetyAnalysis is the accumulated safety state for one token. The score
// starts at 50 and moves with the detected indicators, clamped to [0,100].
type SafetyAnalysis struct {
	Score      float64
	Indicators *FlagSet
}

func NewSafetyAnalysis() *SafetyAnalysis {
	return &SafetyAnalysis{Score: safetyBase, Indicators: NewFlagSet()}
}

// SafetyAnalyzer accumulates positive health indicators per token.
type SafetyAnalyzer struct {
	logger *zap.Logger
}

func NewSafetyAnalyzer(logger *zap.Logger) *SafetyAnalyzer {
	return &SafetyAnalyzer{logger: logger.Named("safety")}
}

// Update re-evaluates all indicators against the latest snapshot and trade
// window, then recomputes the bounded score.
func (a *SafetyAnalyzer) Update(analysis *SafetyAnalysis, snap TokenSnapshot, newTrade pumpfun.TradeEvent, recent []pumpfun.TradeEvent, now time.Time) *SafetyAnalysis {
	if analysis == nil {
		analysis = NewSafetyAnalysis()
	}
	ind := analysis.Indicators

	a.detectDistribution(ind, snap, now)
	a.detectHolderCount(ind, snap, now)
	a.detectActivity(ind, recent, now)
	a.detectBuyRatio(ind, recent, now)
	a.detectLiquidity(ind, snap, now)
	a.detectVolume(ind, snap, recent, now)
	a.detectPriceHealth(ind, recent, now)
	a.detectSocialPresence(ind, snap, now)

	analysis.Score = clampScore(safetyBase + ind.WeightedSum(safetyWeights))
	return analysis
}

func (a *SafetyAnalyzer) detectDistribution(ind *FlagSet, snap TokenSnapshot, now time.Time) {
	if snap.TotalSupply <= 0 || len(snap.Holders) < healthyHolderMin {
		ind.Remove(IndicatorHealthyDistribution)
		return
	}
	var topShare float64
	for addr, balance := range snap.Holders {
		if addr == snap.Creator {
			continue
		}
		if share := balance / snap.TotalSupply * 100; share > topShare {
			topShare = share
		}
	}
	creatorShare := snap.Holders[snap.Creator] / snap.TotalSupply * 100

	if topShare <= healthyTopSharePct && creatorShare <= healthyCreatorPct {
		ind.Add(IndicatorHealthyDistribution, SeverityHigh,
			fmt.Sprintf("%d holders, top non-dev at %.1f%%", len(snap.Holders), topShare), now)
	} else {
		ind.Remove(IndicatorHealthyDistribution)
	}
}

func (a *SafetyAnalyzer) detectHolderCount(ind *FlagSet, snap TokenSnapshot, now time.Time) {
	count := len(snap.Holders)
	switch {
	case count >= holderCountHigh:
		ind.Add(IndicatorGrowingHolders, SeverityMedium, fmt.Sprintf("%d active holders", count), now)
	case count >= holderCountMed:
		ind.Add(IndicatorGrowingHolders, SeverityLow, fmt.Sprintf("%d active holders", count), now)
	default:
		ind.Remove(IndicatorGrowingHolders)
	}
}

func (a *SafetyAnalyzer) detectActivity(ind *FlagSet, recent []pumpfun.TradeEvent, now time.Time) {
	if len(recent) < 2 {
		ind.Remove(IndicatorActiveTrading)
		return
	}
	span := recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp).Seconds()
	if span <= 0 {
		span = 1
	}
	perMin := float64(len(recent)) / span * 60

	var volume float64
	for i := range recent {
		volume += recent[i].SolAmount
	}
	if volume < activityVolumeFloor {
		ind.Remove(IndicatorActiveTrading)
		return
	}

	switch {
	case perMin >= tradesPerMinHigh:
		ind.Add(IndicatorActiveTrading, SeverityMedium, fmt.Sprintf("%.0f trades/min", perMin), now)
	case perMin >= tradesPerMinMed:
		ind.Add(IndicatorActiveTrading, SeverityLow, fmt.Sprintf("%.0f trades/min", perMin), now)
	default:
		ind.Remove(IndicatorActiveTrading)
	}
}

func (a *SafetyAnalyzer) detectBuyRatio(ind *FlagSet, recent []pumpfun.TradeEvent, now time.Time) {
	if len(recent) < 4 {
		ind.Remove(IndicatorHealthyBuyRatio)
		return
	}
	buys := 0
	for i := range recent {
		if recent[i].IsBuy() {
			buys++
		}
	}
	ratio := float64(buys) / float64(len(recent))
	switch {
	case ratio >= buyRatioHigh:
		ind.Add(IndicatorHealthyBuyRatio, SeverityMedium, fmt.Sprintf("%.0f%% of recent trades are buys", ratio*100), now)
	case ratio >= buyRatioMed:
		ind.Add(IndicatorHealthyBuyRatio, SeverityLow, fmt.Sprintf("%.0f%% of recent trades are buys", ratio*100), now)
	default:
		ind.Remove(IndicatorHealthyBuyRatio)
	}
}

func (a *SafetyAnalyzer) detectLiquidity(ind *FlagSet, snap TokenSnapshot, now time.Time) {
	if snap.TotalSupply <= 0 || snap.BondingCurveTokens <= 0 {
		ind.Remove(IndicatorStrongLiquidity)
		return
	}
	share := snap.BondingCurveTokens / snap.TotalSupply * 100
	switch {
	case share >= liquidityShareHighPct:
		ind.Add(IndicatorStrongLiquidity, SeverityMedium, fmt.Sprintf("curve holds %.0f%% of supply", share), now)
	case share >= liquidityShareMedPct:
		ind.Add(IndicatorStrongLiquidity, SeverityLow, fmt.Sprintf("curve holds %.0f%% of supply", share), now)
	default:
		ind.Remove(IndicatorStrongLiquidity)
	}
}

func (a *SafetyAnalyzer) detectVolume(ind *FlagSet, snap TokenSnapshot, recent []pumpfun.TradeEvent, now time.Time) {
	if !snap.MarketCapOk || snap.MarketCap <= 0 || len(recent) == 0 {
		ind.Remove(IndicatorHealthyVolume)
		return
	}
	var volume float64
	for i := range recent {
		volume += recent[i].SolAmount
	}
	ratio := volume / snap.MarketCap
	switch {
	case ratio >= volumeToMcapHigh:
		ind.Add(IndicatorHealthyVolume, SeverityMedium, fmt.Sprintf("recent volume %.1f%% of cap", ratio*100), now)
	case ratio >= volumeToMcapMed:
		ind.Add(IndicatorHealthyVolume, SeverityLow, fmt.Sprintf("recent volume %.1f%% of cap", ratio*100), now)
	default:
		ind.Remove(IndicatorHealthyVolume)
	}
}

// detectPriceHealth scores stability (coefficient of variation) and growth
// of the recent price series.
func (a *SafetyAnalyzer) detectPriceHealth(ind *FlagSet, recent []pumpfun.TradeEvent, now time.Time) {
	prices := priceSeries(recent)
	if len(prices) > stabilityWindow {
		prices = prices[len(prices)-stabilityWindow:]
	}
	if len(prices) < 4 {
		ind.Remove(IndicatorPriceStability)
		ind.Remove(IndicatorSteadyGrowth)
		return
	}

	avg := mean(prices)
	if avg > 0 {
		var variance float64
		for _, p := range prices {
			variance += (p - avg) * (p - avg)
		}
		cv := math.Sqrt(variance/float64(len(prices))) / avg
		if cv <= stabilityCVMax {
			ind.Add(IndicatorPriceStability, SeverityLow, fmt.Sprintf("price CV %.1f%%", cv*100), now)
		} else {
			ind.Remove(IndicatorPriceStability)
		}
	}

	first, last := prices[0], prices[len(prices)-1]
	if first > 0 {
		growthPct := (last - first) / first * 100
		switch {
		case growthPct >= growthHighPct:
			ind.Add(IndicatorSteadyGrowth, SeverityMedium, fmt.Sprintf("price up %.1f%% over window", growthPct), now)
		case growthPct >= growthMedPct:
			ind.Add(IndicatorSteadyGrowth, SeverityLow, fmt.Sprintf("price up %.1f%% over window", growthPct), now)
		default:
			ind.Remove(IndicatorSteadyGrowth)
		}
	}
}

// detectSocialPresence weighs the metadata links. A token with none of them
// gets no social indicator at all.
func (a *SafetyAnalyzer) detectSocialPresence(ind *FlagSet, snap TokenSnapshot, now time.Time) {
	score := SocialPresenceScore(snap)
	switch {
	case score >= socialStrongMin:
		ind.Remove(IndicatorDecentSocial)
		ind.Add(IndicatorStrongSocial, SeverityHigh, fmt.Sprintf("social presence score %.0f", score), now)
	case score >= socialDecentMin:
		ind.Remove(IndicatorStrongSocial)
		ind.Add(IndicatorDecentSocial, SeverityMedium, fmt.Sprintf("social presence score %.0f", score), now)
	default:
		ind.Remove(IndicatorStrongSocial)
		ind.Remove(IndicatorDecentSocial)
	}
}

// SocialPresenceScore sums the weighted link presences, with a bonus for a
// website on its own domain rather than free hosting.
func SocialPresenceScore(snap TokenSnapshot) float64 {
	var score float64
	if snap.Website != "" {
		score += socialWebsiteWeight
		if hasQualityDomain(snap.Website) {
			score += socialDomainBonus
		}
	}
	if snap.Twitter != "" {
		score += socialTwitterWeight
	}
	if snap.Telegram != "" {
		score += socialTelegramWeight
	}
	if snap.ImageURI != "" {
		score += socialImageWeight
	}
	return score
}

var freeHostingSuffixes = []string{
	".vercel.app", ".netlify.app", ".github.io", ".pages.dev",
	".carrd.co", ".webflow.io", ".wixsite.com",
}

func hasQualityDomain(website string) bool {
	lowered := strings.ToLower(website)
	for _, suffix := range freeHostingSuffixes {
		if strings.Contains(lowered, suffix) {
			return false
		}
	}
	return true
}
