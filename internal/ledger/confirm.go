// ==============================
// File: internal/ledger/confirm.go
// ==============================
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Two-stage confirmation budget: a fast poll for the common case where the
// transaction lands within a slot or two, then a slower, longer fallback.
const (
	fastConfirmInterval = 300 * time.Millisecond
	fastConfirmBudget   = 5 * time.Second

	slowConfirmInterval = 1 * time.Second
	slowConfirmBudget   = 30 * time.Second
)

var errNotYetConfirmed = fmt.Errorf("not yet confirmed")

// Confirmer polls for transaction confirmation with a bounded retry budget.
type Confirmer struct {
	client Client
	logger *zap.Logger
}

func NewConfirmer(client Client, logger *zap.Logger) *Confirmer {
	return &Confirmer{client: client, logger: logger.Named("confirm")}
}

// WaitForConfirmation blocks until the transaction is visible or both retry
// stages are exhausted, returning *TransactionTimeoutError in the latter
// case. Never retries indefinitely.
func (c *Confirmer) WaitForConfirmation(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	started := time.Now()

	tx, err := c.poll(ctx, sig, fastConfirmInterval, fastConfirmBudget)
	if err == nil {
		return tx, nil
	}
	if isFinal(ctx, err) {
		return nil, err
	}

	c.logger.Debug("Fast confirmation window missed, falling back",
		zap.String("signature", shortSig(sig)))

	tx, err = c.poll(ctx, sig, slowConfirmInterval, slowConfirmBudget)
	if err == nil {
		return tx, nil
	}
	if isFinal(ctx, err) {
		return nil, err
	}

	return nil, &TransactionTimeoutError{
		Signature: sig.String(),
		Elapsed:   time.Since(started).Round(time.Millisecond).String(),
	}
}

func (c *Confirmer) poll(ctx context.Context, sig solana.Signature, interval, budget time.Duration) (*rpc.GetTransactionResult, error) {
	operation := func() (*rpc.GetTransactionResult, error) {
		tx, err := c.client.GetConfirmedTransaction(ctx, sig)
		if err != nil {
			// transient RPC trouble, keep polling inside the budget
			return nil, err
		}
		if tx == nil {
			return nil, errNotYetConfirmed
		}
		if tx.Meta != nil && tx.Meta.Err != nil {
			// landed but failed on-chain, retrying cannot change that
			return nil, backoff.Permanent(&OnChainError{
				Signature: sig.String(),
				Detail:    fmt.Sprintf("%v", tx.Meta.Err),
			})
		}
		return tx, nil
	}

	policy := backoff.NewConstantBackOff(interval)
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(budget),
	)
}

// isFinal reports whether the poll error cannot be improved by more
// polling: context cancellation or an on-chain rejection.
func isFinal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	var onChain *OnChainError
	return errors.As(err, &onChain)
}

func shortSig(sig solana.Signature) string {
	s := sig.String()
	if len(s) > 8 {
		return s[:8] + "..."
	}
	return s
}
