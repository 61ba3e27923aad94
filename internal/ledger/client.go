// ==============================
// File: internal/ledger/client.go
// ==============================
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"pumptrader/internal/pumpfun"
)

// Client is the surface of the ledger the bot depends on. Implementations
// must be safe for use from the bot's single control flow plus the KPI
// ticker goroutine.
type Client interface {
	// GetBalance returns the SOL balance of the address.
	GetBalance(ctx context.Context, addr solana.PublicKey) (float64, error)
	// GetTokenBalance returns the scaled token balance held by the token
	// account, zero when the account does not exist.
	GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (float64, error)
	// GetAccountInfo fetches raw account data.
	GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// GetRecentBlockhash returns a blockhash usable for a new transaction.
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	// SubmitTransaction sends a signed transaction.
	SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// GetConfirmedTransaction returns the parsed transaction, or nil while
	// it is not yet visible at the requested commitment.
	GetConfirmedTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error)
}

var ErrAccountNotFound = errors.New("account not found")

// IsAccountNotFound reports whether the error means the account simply does
// not exist yet.
func IsAccountNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// RPCClient is a thin adapter over solana-go's JSON-RPC client.
type RPCClient struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

func NewRPCClient(rpcURL string, logger *zap.Logger) *RPCClient {
	return &RPCClient{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("ledger"),
	}
}

func (c *RPCClient) GetBalance(ctx context.Context, addr solana.PublicKey) (float64, error) {
	result, err := c.rpc.GetBalance(ctx, addr, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetBalance failed", zap.String("address", addr.String()), zap.Error(err))
		return 0, err
	}
	return float64(result.Value) / pumpfun.LamportsPerSol, nil
}

func (c *RPCClient) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (float64, error) {
	result, err := c.rpc.GetTokenAccountBalance(ctx, tokenAccount, rpc.CommitmentConfirmed)
	if err != nil {
		if IsAccountNotFound(err) {
			return 0, nil
		}
		c.logger.Debug("GetTokenAccountBalance failed",
			zap.String("account", tokenAccount.String()), zap.Error(err))
		return 0, err
	}
	if result == nil || result.Value == nil || result.Value.UiAmount == nil {
		return 0, nil
	}
	return *result.Value.UiAmount, nil
}

func (c *RPCClient) GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		c.logger.Debug("GetAccountInfo failed",
			zap.String("address", addr.String()), zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (c *RPCClient) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetLatestBlockhash failed", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// SubmitTransaction sends with preflight skipped: a sniped mint is gone by
// the time a simulation round-trip completes.
func (c *RPCClient) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		c.logger.Error("SendTransaction failed", zap.Error(err))
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

func (c *RPCClient) GetConfirmedTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	version := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		if IsAccountNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}
