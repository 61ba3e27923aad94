// ==============================
// File: internal/bot/errors.go
// ==============================
package bot

import "fmt"

// InvariantViolation is raised when on-chain reality contradicts what the
// bot believes it holds, e.g. a residual token balance after a complete
// sell. Automated trading halts for manual inspection; it never silently
// continues.
type InvariantViolation struct {
	TokenAddress string
	Detail       string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation on %s: %s", e.TokenAddress, e.Detail)
}
