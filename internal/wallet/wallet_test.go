package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWalletFromBase58(t *testing.T) {
	kp := solana.NewWallet()

	w, err := New(kp.PrivateKey.String())
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), w.PublicKey)
}

func TestNewWalletRejectsGarbage(t *testing.T) {
	_, err := New("not-base58!!")
	assert.Error(t, err)

	// valid base58 but wrong length
	_, err = New("3yZe7d")
	assert.Error(t, err)
}

func TestGetATAMemoized(t *testing.T) {
	w, err := New(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	first, err := w.GetATA(mint)
	require.NoError(t, err)
	second, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)
	assert.Equal(t, expected, first)
}

func TestSignTransaction(t *testing.T) {
	w, err := New(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	ix := solana.NewInstruction(
		solana.SystemProgramID,
		[]*solana.AccountMeta{{PublicKey: w.PublicKey, IsSigner: true, IsWritable: true}},
		[]byte{0},
	)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(w.PublicKey))
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	assert.Len(t, tx.Signatures, 1)
}
