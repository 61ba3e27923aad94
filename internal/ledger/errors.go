// ==============================
// File: internal/ledger/errors.go
// ==============================
package ledger

import "fmt"

// TransactionSubmissionError is a network or RPC failure while sending a buy
// or sell. The state machine catches it and backs off into its cooldown.
type TransactionSubmissionError struct {
	Operation string
	Err       error
}

func (e *TransactionSubmissionError) Error() string {
	return fmt.Sprintf("transaction submission failed during %s: %v", e.Operation, e.Err)
}

func (e *TransactionSubmissionError) Unwrap() error { return e.Err }

// TransactionTimeoutError means confirmation was not observed within the
// full two-stage retry budget. Surfaced to callers the same way as a
// submission failure.
type TransactionTimeoutError struct {
	Signature string
	Elapsed   string
}

func (e *TransactionTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not confirmed within %s", e.Signature, e.Elapsed)
}

// OnChainError means the transaction landed but the program rejected it.
// Retrying the same signature cannot change the outcome.
type OnChainError struct {
	Signature string
	Detail    string
}

func (e *OnChainError) Error() string {
	return fmt.Sprintf("transaction %s failed on-chain: %s", e.Signature, e.Detail)
}
