// ==============================
// File: internal/metrics/metrics.go
// ==============================
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tradeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumptrader_trades_total",
			Help: "Trades submitted to the chain, by direction and outcome",
		},
		[]string{"direction", "status"},
	)
	tradeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pumptrader_trade_duration_seconds",
			Help:    "Time from building a trade to its confirmation",
			Buckets: prometheus.LinearBuckets(0, 0.5, 12),
		},
		[]string{"direction"},
	)
	decisionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumptrader_decisions_total",
			Help: "Buy/sell evaluations, by outcome",
		},
		[]string{"decision"},
	)
	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pumptrader_open_positions",
			Help: "Currently held positions (0 or 1)",
		},
	)
	haltCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pumptrader_halts_total",
			Help: "Invariant violations that halted trading",
		},
	)
)

func init() {
	prometheus.MustRegister(tradeCounter)
	prometheus.MustRegister(tradeDuration)
	prometheus.MustRegister(decisionCounter)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(haltCounter)
}

// MeasureTrade runs f and records its duration and outcome under the given
// trade direction.
func MeasureTrade(direction string, f func() error) error {
	start := time.Now()
	err := f()
	tradeDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())
	if err != nil {
		tradeCounter.WithLabelValues(direction, "failed").Inc()
	} else {
		tradeCounter.WithLabelValues(direction, "success").Inc()
	}
	return err
}

// RecordDecision counts one evaluation outcome, e.g. "buy_accepted".
func RecordDecision(decision string) {
	decisionCounter.WithLabelValues(decision).Inc()
}

// SetOpenPositions reports how many positions are currently held.
func SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}

// RecordHalt counts a trading halt.
func RecordHalt() {
	haltCounter.Inc()
}

// Serve exposes /metrics on addr. Blocks until the server fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
