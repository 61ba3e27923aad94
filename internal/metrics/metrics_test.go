// ==============================
// File: internal/metrics/metrics_test.go
// ==============================
package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureTradeOutcomes(t *testing.T) {
	beforeOK := testutil.ToFloat64(tradeCounter.WithLabelValues("buy", "success"))
	beforeFail := testutil.ToFloat64(tradeCounter.WithLabelValues("buy", "failed"))

	require.NoError(t, MeasureTrade("buy", func() error { return nil }))

	failure := errors.New("blockhash expired")
	err := MeasureTrade("buy", func() error { return failure })
	require.ErrorIs(t, err, failure)

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(tradeCounter.WithLabelValues("buy", "success")))
	assert.Equal(t, beforeFail+1, testutil.ToFloat64(tradeCounter.WithLabelValues("buy", "failed")))
}

func TestGaugesAndCounters(t *testing.T) {
	SetOpenPositions(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(openPositions))
	SetOpenPositions(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(openPositions))

	before := testutil.ToFloat64(decisionCounter.WithLabelValues("buy_rejected"))
	RecordDecision("buy_rejected")
	assert.Equal(t, before+1, testutil.ToFloat64(decisionCounter.WithLabelValues("buy_rejected")))

	halts := testutil.ToFloat64(haltCounter)
	RecordHalt()
	assert.Equal(t, halts+1, testutil.ToFloat64(haltCounter))
}
