// ==============================
// File: internal/bot/state.go
// ==============================
package bot

import (
	"fmt"

	"go.uber.org/zap"
)

// State is one node of the trading lifecycle.
type State string

const (
	StateIdle        State = "idle"
	StateWaitForBuy  State = "wait_for_buy"
	StateBuying      State = "buying"
	StateHold        State = "hold"
	StateWaitForSell State = "wait_for_sell"
	StateSelling     State = "selling"
	StateDelaying    State = "delaying"
)

// legalTransitions is the full transition table. Anything not listed is a
// programming defect, not a market condition.
var legalTransitions = map[State][]State{
	StateIdle:        {StateWaitForBuy},
	StateWaitForBuy:  {StateBuying},
	StateBuying:      {StateHold, StateDelaying},
	StateHold:        {StateWaitForSell},
	StateWaitForSell: {StateSelling},
	StateSelling:     {StateIdle, StateDelaying},
	StateDelaying:    {StateWaitForBuy, StateWaitForSell},
}

// StateGuardError reports an attempted illegal transition.
type StateGuardError struct {
	From State
	To   State
}

func (e *StateGuardError) Error() string {
	return fmt.Sprintf("illegal state transition %s -> %s", e.From, e.To)
}

// machine guards the lifecycle state. Transition failures panic in
// development builds (zap DPanic) and refuse the transition in production.
type machine struct {
	state  State
	logger *zap.Logger
}

func newMachine(logger *zap.Logger) *machine {
	return &machine{state: StateIdle, logger: logger.Named("state")}
}

func (m *machine) current() State { return m.state }

// transition moves to the target state, or returns *StateGuardError while
// leaving the state untouched.
func (m *machine) transition(to State) error {
	if !m.canTransition(to) {
		err := &StateGuardError{From: m.state, To: to}
		m.logger.DPanic("State guard violated",
			zap.String("from", string(m.state)),
			zap.String("to", string(to)))
		return err
	}

	from := m.state
	m.state = to
	m.logger.Debug("State transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

func (m *machine) canTransition(to State) bool {
	for _, allowed := range legalTransitions[m.state] {
		if allowed == to {
			return true
		}
	}
	return false
}
