// =================================
// File: internal/config/settings.go
// =================================
package config

import "errors"

// BotSettings holds the numeric trading thresholds. All fields are optional
// in the config file; defaults below are applied before unmarshalling.
type BotSettings struct {
	MinSolInWallet   float64 `mapstructure:"min_sol_in_wallet"`
	DefaultBuyAmount float64 `mapstructure:"default_buy_amount"`
	MinBuyAmount     float64 `mapstructure:"min_buy_amount"`
	MaxBuyAmount     float64 `mapstructure:"max_buy_amount"`

	ScoreMinForBuy  float64 `mapstructure:"score_min_for_buy"`
	ScoreMinForSell float64 `mapstructure:"score_min_for_sell"`

	StopLimitPercent    float64 `mapstructure:"stop_limit_percent"`
	TakeProfitPercent   float64 `mapstructure:"take_profit_percent"`
	TrailingStopPercent float64 `mapstructure:"trailing_stop_percent"`

	SlippagePercent float64 `mapstructure:"slippage_percent"`
	PriorityFeeSol  string  `mapstructure:"priority_fee_sol"`
	ComputeUnits    uint32  `mapstructure:"compute_units"`
}

const (
	DefaultMinSolInWallet   = 0.05
	DefaultBuyAmount        = 0.1
	DefaultMinBuyAmount     = 0.05
	DefaultMaxBuyAmount     = 0.5
	DefaultScoreMinForBuy   = 60.0
	DefaultScoreMinForSell  = 60.0
	DefaultStopLimitPercent = 20.0
	DefaultTakeProfit       = 50.0
	DefaultTrailingStop     = 80.0
	DefaultSlippagePercent  = 5.0
	DefaultPriorityFeeSol   = "0.000005"
	DefaultComputeUnits     = 200_000
)

func settingsDefaults() map[string]interface{} {
	return map[string]interface{}{
		"min_sol_in_wallet":     DefaultMinSolInWallet,
		"default_buy_amount":    DefaultBuyAmount,
		"min_buy_amount":        DefaultMinBuyAmount,
		"max_buy_amount":        DefaultMaxBuyAmount,
		"score_min_for_buy":     DefaultScoreMinForBuy,
		"score_min_for_sell":    DefaultScoreMinForSell,
		"stop_limit_percent":    DefaultStopLimitPercent,
		"take_profit_percent":   DefaultTakeProfit,
		"trailing_stop_percent": DefaultTrailingStop,
		"slippage_percent":      DefaultSlippagePercent,
		"priority_fee_sol":      DefaultPriorityFeeSol,
		"compute_units":         DefaultComputeUnits,
	}
}

// Defaults returns settings populated with the documented default for every
// threshold. Used directly by tests and by consumers without a config file.
func Defaults() BotSettings {
	return BotSettings{
		MinSolInWallet:      DefaultMinSolInWallet,
		DefaultBuyAmount:    DefaultBuyAmount,
		MinBuyAmount:        DefaultMinBuyAmount,
		MaxBuyAmount:        DefaultMaxBuyAmount,
		ScoreMinForBuy:      DefaultScoreMinForBuy,
		ScoreMinForSell:     DefaultScoreMinForSell,
		StopLimitPercent:    DefaultStopLimitPercent,
		TakeProfitPercent:   DefaultTakeProfit,
		TrailingStopPercent: DefaultTrailingStop,
		SlippagePercent:     DefaultSlippagePercent,
		PriorityFeeSol:      DefaultPriorityFeeSol,
		ComputeUnits:        DefaultComputeUnits,
	}
}

// Validate rejects threshold combinations that would make the state machine
// misbehave rather than merely trade badly.
func (s *BotSettings) Validate() error {
	if s.MinBuyAmount < 0 || s.MaxBuyAmount < 0 {
		return errors.New("buy amounts must be non-negative")
	}
	if s.MaxBuyAmount > 0 && s.MinBuyAmount > s.MaxBuyAmount {
		return errors.New("min_buy_amount exceeds max_buy_amount")
	}
	if s.ScoreMinForBuy < 0 || s.ScoreMinForBuy > 100 {
		return errors.New("score_min_for_buy outside [0,100]")
	}
	if s.ScoreMinForSell < 0 || s.ScoreMinForSell > 100 {
		return errors.New("score_min_for_sell outside [0,100]")
	}
	if s.StopLimitPercent < 0 || s.TakeProfitPercent < 0 {
		return errors.New("stop/take-profit percents must be non-negative")
	}
	if s.TrailingStopPercent < 0 || s.TrailingStopPercent > 100 {
		return errors.New("trailing_stop_percent outside [0,100]")
	}
	if s.SlippagePercent < 0 || s.SlippagePercent > 100 {
		return errors.New("slippage_percent outside [0,100]")
	}
	return nil
}
