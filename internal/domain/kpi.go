// =============================
// File: internal/domain/kpi.go
// =============================
package domain

// KPISnapshot is the telemetry view of the current position, produced as a
// pure read by sell evaluation. Ok fields mark values that could not be
// determined; consumers must skip them, not render zeros.
type KPISnapshot struct {
	TokenAddress string

	BuyPrice        float64
	CurrentPrice    float64
	CurrentPriceOk  bool
	ProfitPercent   float64
	ProfitPercentOk bool

	MinPrice     float64
	MaxPrice     float64
	PercentOfATH float64 // current price as a share of the post-buy high

	FinalScore float64
	// Weighted component contributions keyed by component name.
	ScoreBreakdown map[string]float64

	TradesObserved int
}
