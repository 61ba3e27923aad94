package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pumptrader/internal/pumpfun"
)

func TestRiskSellingPressure(t *testing.T) {
	a := NewRiskAnalyzer(zaptest.NewLogger(t))
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	// 10 trades, 8 of them sells, flat price so no other price detector fires
	var trades []pumpfun.TradeEvent
	for i := 0; i < 10; i++ {
		dir := pumpfun.DirectionSell
		if i%5 == 0 {
			dir = pumpfun.DirectionBuy
		}
		trades = append(trades, makeTrade(testTrader, dir, 0.5, 100_000, start.Add(time.Duration(i)*time.Second), 0, 0))
	}
	last := trades[len(trades)-1]
	now := last.Timestamp

	before := NewRiskAnalysis()
	baseline := before.Score

	analysis := a.Update(before, TokenSnapshot{CreatedAt: start}, last, trades, now)

	f, ok := analysis.Flags.Get(FlagSellingPressure)
	require.True(t, ok, "selling pressure flag expected for 8/10 sells")
	assert.Equal(t, SeverityHigh, f.Severity)
	assert.GreaterOrEqual(t, analysis.Score-baseline, 25.0, "a HIGH flag must add at least its weight")
}

func TestRiskScoreBounded(t *testing.T) {
	a := NewRiskAnalyzer(zaptest.NewLogger(t))
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	// Everything bad at once: crash series, all sells, concentrated holders,
	// creator dumping seconds after mint.
	prices := []float64{1e-7, 3e-7, 9e-7, 5e-7, 2e-7, 1e-7, 5e-8, 2e-8, 1e-8, 5e-9, 2e-9, 1e-9}
	trades := tradesAtPrices(pumpfun.DirectionSell, start, prices)
	last := trades[len(trades)-1]

	snap := TokenSnapshot{
		CreatedAt:   start,
		TotalSupply: 1_000_000_000,
		Creator:     testCreator.String(),
		Holders: map[string]float64{
			testCreator.String(): 100_000_000, // 10%
			testTrader.String():  500_000_000, // 50%
		},
		CreatorInitialTokens: 50_000_000,
		CreatorSoldTokens:    40_000_000,
		CreatorFirstSellAt:   start.Add(5 * time.Second),
		MarketCap:            5_000, MarketCapOk: true,
	}

	analysis := a.Update(nil, snap, last, trades, last.Timestamp.Add(time.Minute))

	assert.LessOrEqual(t, analysis.Score, 100.0)
	assert.GreaterOrEqual(t, analysis.Score, 0.0)
	assert.LessOrEqual(t, analysis.RugPullProbability, 100.0)
	assert.True(t, analysis.Flags.Has(FlagCreatorEarlySell))
	assert.True(t, analysis.Flags.Has(FlagCreatorMajoritySell))
	assert.True(t, analysis.Flags.Has(FlagHolderConcentration))
}

func TestRugPullProbabilityCappedWithoutHighFlags(t *testing.T) {
	a := NewRiskAnalyzer(zaptest.NewLogger(t))
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	// Only low/medium conditions: mild inactivity plus moderate creator holdings.
	trade := makeTrade(testTrader, pumpfun.DirectionBuy, 0.2, 50_000, start, 0, 0)
	snap := TokenSnapshot{
		CreatedAt:   start,
		TotalSupply: 1_000_000_000,
		Creator:     testCreator.String(),
		Holders:     map[string]float64{testCreator.String(): 15_000_000}, // 1.5% -> LOW
	}

	analysis := a.Update(nil, snap, trade, []pumpfun.TradeEvent{trade}, start.Add(10*time.Second))

	require.False(t, analysis.Flags.AnyOfSeverity(SeverityHigh))
	assert.LessOrEqual(t, analysis.RugPullProbability, 60.0)
}

func TestRugPullCompositeFlag(t *testing.T) {
	a := NewRiskAnalyzer(zaptest.NewLogger(t))
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	// pump shape followed by a dump, with the creator selling early
	prices := []float64{1e-8, 2e-8, 5e-8, 8e-8, 9e-8, 4e-8, 2e-8, 9e-9, 6e-9, 5e-9}
	trades := tradesAtPrices(pumpfun.DirectionSell, start, prices)
	last := trades[len(trades)-1]

	snap := TokenSnapshot{
		CreatedAt:          start,
		Creator:            testCreator.String(),
		CreatorFirstSellAt: start.Add(10 * time.Second),
	}

	analysis := a.Update(nil, snap, last, trades, last.Timestamp)

	require.True(t, analysis.Flags.Has(FlagPumpAndDump), "pump-and-dump shape expected")
	require.True(t, analysis.Flags.Has(FlagCreatorEarlySell))
	assert.True(t, analysis.Flags.Has(FlagRugPull), "composite flag raised on co-occurrence")
	assert.GreaterOrEqual(t, analysis.RugPullProbability, analysis.Score,
		"co-occurrence bonus raises the probability above the raw score")
}

func TestRiskInactivityBands(t *testing.T) {
	a := NewRiskAnalyzer(zaptest.NewLogger(t))
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	trade := makeTrade(testTrader, pumpfun.DirectionBuy, 0.2, 50_000, start, 0, 0)

	cases := []struct {
		elapsed time.Duration
		want    Severity
		flagged bool
	}{
		{2 * time.Second, "", false},
		{9 * time.Second, SeverityLow, true},
		{20 * time.Second, SeverityMedium, true},
		{45 * time.Second, SeverityHigh, true},
	}

	for _, tc := range cases {
		analysis := a.Update(nil, TokenSnapshot{CreatedAt: start}, trade, []pumpfun.TradeEvent{trade}, start.Add(tc.elapsed))
		f, ok := analysis.Flags.Get(FlagInactivity)
		assert.Equal(t, tc.flagged, ok, "elapsed %v", tc.elapsed)
		if tc.flagged {
			assert.Equal(t, tc.want, f.Severity, "elapsed %v", tc.elapsed)
		}
	}
}

func TestRiskFlagClearsWhenConditionClears(t *testing.T) {
	a := NewRiskAnalyzer(zaptest.NewLogger(t))
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	trade := makeTrade(testTrader, pumpfun.DirectionBuy, 0.2, 50_000, start, 0, 0)
	snap := TokenSnapshot{CreatedAt: start}

	analysis := a.Update(nil, snap, trade, []pumpfun.TradeEvent{trade}, start.Add(20*time.Second))
	require.True(t, analysis.Flags.Has(FlagInactivity))

	// a fresh trade arrives and the same analysis is re-evaluated
	fresh := makeTrade(testTrader, pumpfun.DirectionBuy, 0.2, 50_000, start.Add(21*time.Second), 0, 0)
	analysis = a.Update(analysis, snap, fresh, []pumpfun.TradeEvent{trade, fresh}, start.Add(22*time.Second))
	assert.False(t, analysis.Flags.Has(FlagInactivity))
}
