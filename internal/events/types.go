// internal/events/types.go
package events

import (
	"time"

	"pumptrader/internal/domain"
)

// EventType represents the type of event.
type EventType string

const (
	// Lifecycle events
	StateChanged  EventType = "state.changed"
	TokenSelected EventType = "token.selected"

	// Decision events
	BuyDecided  EventType = "decision.buy"
	SellDecided EventType = "decision.sell"

	// Position events
	PositionOpened EventType = "position.opened"
	PositionClosed EventType = "position.closed"

	// Safety events
	TradingHalted EventType = "trading.halted"

	// Telemetry events
	KPIUpdated EventType = "kpi.updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// StateChangedEvent is emitted on every state machine transition.
type StateChangedEvent struct {
	BaseEvent
	From string
	To   string
}

// TokenSelectedEvent is emitted when the bot commits to evaluating a mint.
type TokenSelectedEvent struct {
	BaseEvent
	TokenAddress string
	Name         string
	Symbol       string
}

// BuyDecidedEvent carries the outcome of a buy evaluation, accepted or not.
type BuyDecidedEvent struct {
	BaseEvent
	TokenAddress string
	CanBuy       bool
	Amount       float64
	Score        float64
	Reason       string
}

// SellDecidedEvent carries the outcome of a sell evaluation.
type SellDecidedEvent struct {
	BaseEvent
	TokenAddress string
	CanSell      bool
	Score        float64
	Reason       string
}

// PositionOpenedEvent is emitted after a buy confirms.
type PositionOpenedEvent struct {
	BaseEvent
	TokenAddress string
	BuyPrice     float64
	SolSpent     float64
	TokenAmount  float64
	Signature    string
}

// PositionClosedEvent is emitted after a sell confirms and the position is
// archived.
type PositionClosedEvent struct {
	BaseEvent
	TokenAddress string
	SellPrice    float64
	SolReceived  float64
	Profit       float64
	// ProceedsKnown is false when the balance reads around the sell failed;
	// SellPrice, SolReceived and Profit are then placeholders, not zeros.
	ProceedsKnown bool
	Signature     string
}

// TradingHaltedEvent is emitted when an invariant violation suspends
// automated trading.
type TradingHaltedEvent struct {
	BaseEvent
	TokenAddress string
	Reason       string
}

// KPIUpdatedEvent carries the periodic telemetry snapshot.
type KPIUpdatedEvent struct {
	BaseEvent
	Snapshot domain.KPISnapshot
}
