// =============================
// File: internal/pumpfun/types.go
// =============================
package pumpfun

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// PumpFunProgramID is the on-chain address of the pump.fun bonding curve program.
var PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

const (
	// SolDecimals and TokenDecimals are fixed by the pump.fun program.
	SolDecimals   = 9
	TokenDecimals = 6

	LamportsPerSol = 1e9
	TokenBaseUnits = 1e6
)

// TradeDirection marks a trade as a buy or a sell on the bonding curve.
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "buy"
	DirectionSell TradeDirection = "sell"
)

// InitialBuy describes the creator's own opening purchase that usually
// accompanies a mint. Absent when the creator launched without buying.
type InitialBuy struct {
	SolAmount          float64
	TokenAmount        float64
	CreatorPostPercent float64 // creator share of supply after the opening buy
}

// CreationEvent is emitted by the program when a new token is minted.
// Immutable once decoded; amounts are already scaled to SOL / whole tokens.
type CreationEvent struct {
	TokenAddress        solana.PublicKey
	CreatorAddress      solana.PublicKey
	BondingCurveAddress solana.PublicKey

	Name   string
	Symbol string
	URI    string

	VirtualSolReserves   float64
	VirtualTokenReserves float64
	TotalSupply          float64

	CreatedAt  time.Time
	InitialBuy *InitialBuy
}

// TradeEvent is emitted by the program for every buy/sell against the curve.
// Amounts are already scaled to SOL / whole tokens.
type TradeEvent struct {
	TokenAddress  solana.PublicKey
	TraderAddress solana.PublicKey
	Direction     TradeDirection

	SolAmount   float64
	TokenAmount float64

	VirtualSolReserves   float64
	VirtualTokenReserves float64
	RealSolReserves      float64
	RealTokenReserves    float64

	// PostBalanceToken is the trader's token balance after the fill when the
	// feed reports it; zero means unreported.
	PostBalanceToken float64

	Timestamp time.Time
}

// IsBuy reports whether the trade added SOL to the curve.
func (t *TradeEvent) IsBuy() bool { return t.Direction == DirectionBuy }

// EventKind discriminates the decoded event union.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCreation
	EventTrade
)

// DecodedEvent is a tagged union over the event types the decoder understands.
// Exactly one of Creation/Trade is non-nil when Kind is not EventUnknown.
type DecodedEvent struct {
	Kind     EventKind
	Creation *CreationEvent
	Trade    *TradeEvent
}

// DecodeError reports a malformed or unrecognized binary payload.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode error: " + e.Reason
}
