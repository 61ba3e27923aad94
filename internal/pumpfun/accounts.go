// =============================
// File: internal/pumpfun/accounts.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PDA seeds used by the pump.fun program.
var (
	seedGlobal       = []byte("global")
	seedBondingCurve = []byte("bonding-curve")
	seedCreatorVault = []byte("creator-vault")
)

// DeriveGlobal returns the program's global configuration account.
func DeriveGlobal() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{seedGlobal},
		PumpFunProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive global account: %w", err)
	}
	return addr, nil
}

// DeriveBondingCurve returns the bonding curve account for a mint. The
// derivation is pure and reproducible byte-for-byte.
func DeriveBondingCurve(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{seedBondingCurve, mint.Bytes()},
		PumpFunProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive bonding curve: %w", err)
	}
	return addr, nil
}

// DeriveAssociatedBondingCurve returns the curve's associated token account,
// which holds the token side of the reserves.
func DeriveAssociatedBondingCurve(mint solana.PublicKey) (solana.PublicKey, error) {
	bondingCurve, err := DeriveBondingCurve(mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}
	return ata, nil
}

// DeriveCreatorVault returns the per-creator fee vault account.
func DeriveCreatorVault(creator solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{seedCreatorVault, creator.Bytes()},
		PumpFunProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive creator vault: %w", err)
	}
	return addr, nil
}
