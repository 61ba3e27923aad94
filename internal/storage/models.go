// ==============================
// File: internal/storage/models.go
// ==============================
package storage

import "gorm.io/gorm"

// TokenRecord is a mint the bot selected for evaluation.
type TokenRecord struct {
	gorm.Model
	TokenAddress   string `gorm:"index"`
	CreatorAddress string
	Name           string
	Symbol         string
	URI            string
	SelectedAt     int64
}

// TradeRecord is one observed market trade on the selected token.
type TradeRecord struct {
	gorm.Model
	TokenAddress  string `gorm:"index"`
	TraderAddress string
	Direction     string // "buy" or "sell"
	SolAmount     float64
	TokenAmount   float64
	Price         float64
	PriceKnown    bool
	Timestamp     int64
}

// PositionRecord is an archived position, written once on open and updated
// once on close.
type PositionRecord struct {
	gorm.Model
	TokenAddress string `gorm:"index"`
	BuyPrice     float64
	BuySolCost   float64
	TokenAmount  float64
	SellPrice    float64
	SolReceived  float64
	Profit       float64
	Closed       bool
	BuySig       string
	SellSig      string
	OpenedAt     int64
	ClosedAt     int64
}
