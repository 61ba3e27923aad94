// ==============================
// File: internal/ledger/trade.go
// ==============================
package ledger

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"

	"pumptrader/internal/pumpfun"
	"pumptrader/internal/wallet"
)

// Anchor instruction discriminators of the bonding curve program.
var (
	buyInstructionDiscriminator  = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	sellInstructionDiscriminator = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// Well-known program accounts.
var (
	feeRecipient   = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	eventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
)

const defaultComputeUnits = 200_000

// TradeIntent describes one buy or sell against a token's bonding curve.
type TradeIntent struct {
	Mint      solana.PublicKey
	Creator   solana.PublicKey
	Direction pumpfun.TradeDirection

	// SolAmount is the spend for a buy; TokenAmount the holding to sell.
	SolAmount   float64
	TokenAmount float64

	SlippagePercent float64
	PriorityFeeSol  string
	ComputeUnits    uint32
}

// TradeBuilder assembles signed bonding-curve trade transactions.
type TradeBuilder struct {
	client Client
	wallet *wallet.Wallet
	logger *zap.Logger
}

func NewTradeBuilder(client Client, w *wallet.Wallet, logger *zap.Logger) *TradeBuilder {
	return &TradeBuilder{client: client, wallet: w, logger: logger.Named("trade")}
}

// Build assembles and signs the transaction for the intent. The returned
// transaction is ready for submission.
func (b *TradeBuilder) Build(ctx context.Context, intent TradeIntent, price float64) (*solana.Transaction, error) {
	instructions, err := b.baseInstructions(intent)
	if err != nil {
		return nil, err
	}

	var tradeIx solana.Instruction
	switch intent.Direction {
	case pumpfun.DirectionBuy:
		tradeIx, err = b.buyInstruction(intent, price)
	case pumpfun.DirectionSell:
		tradeIx, err = b.sellInstruction(intent, price)
	default:
		return nil, fmt.Errorf("unknown trade direction %q", intent.Direction)
	}
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, tradeIx)

	blockhash, err := b.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash,
		solana.TransactionPayer(b.wallet.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	if err := b.wallet.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	b.logger.Debug("trade transaction built",
		zap.String("mint", intent.Mint.String()),
		zap.String("direction", string(intent.Direction)))
	return tx, nil
}

// baseInstructions sets the compute budget, the priority fee and the
// idempotent ATA create that every trade carries.
func (b *TradeBuilder) baseInstructions(intent TradeIntent) ([]solana.Instruction, error) {
	units := intent.ComputeUnits
	if units == 0 {
		units = defaultComputeUnits
	}
	instructions := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(units).Build(),
	}

	fee, err := priorityFeeMicroLamports(intent.PriorityFeeSol)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions,
		computebudget.NewSetComputeUnitPriceInstruction(fee).Build(),
		b.wallet.CreateATAIdempotentInstruction(intent.Mint),
	)
	return instructions, nil
}

func (b *TradeBuilder) buyInstruction(intent TradeIntent, price float64) (solana.Instruction, error) {
	if price <= 0 {
		return nil, fmt.Errorf("cannot size buy without a known price")
	}

	tokensOut := intent.SolAmount / price
	maxSolCost := intent.SolAmount * (1 + intent.SlippagePercent/100)

	data := tradeInstructionData(buyInstructionDiscriminator,
		uint64(tokensOut*pumpfun.TokenBaseUnits),
		uint64(maxSolCost*pumpfun.LamportsPerSol))

	accounts, err := b.tradeAccounts(intent, true)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(pumpfun.PumpFunProgramID, accounts, data), nil
}

func (b *TradeBuilder) sellInstruction(intent TradeIntent, price float64) (solana.Instruction, error) {
	minSolOutput := 0.0
	if price > 0 {
		minSolOutput = intent.TokenAmount * price * (1 - intent.SlippagePercent/100)
	}

	data := tradeInstructionData(sellInstructionDiscriminator,
		uint64(intent.TokenAmount*pumpfun.TokenBaseUnits),
		uint64(minSolOutput*pumpfun.LamportsPerSol))

	accounts, err := b.tradeAccounts(intent, false)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(pumpfun.PumpFunProgramID, accounts, data), nil
}

// tradeInstructionData is discriminator, then amount and limit as LE u64.
func tradeInstructionData(discriminator []byte, amount, limit uint64) []byte {
	data := make([]byte, 0, len(discriminator)+16)
	data = append(data, discriminator...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint64(data, limit)
	return data
}

// tradeAccounts builds the account list in the exact order the program
// expects. The creator fee vault sits after the token program on buys and
// before it on sells; everything else is shared.
func (b *TradeBuilder) tradeAccounts(intent TradeIntent, isBuy bool) ([]*solana.AccountMeta, error) {
	global, err := pumpfun.DeriveGlobal()
	if err != nil {
		return nil, fmt.Errorf("derive global: %w", err)
	}
	curve, err := pumpfun.DeriveBondingCurve(intent.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive bonding curve: %w", err)
	}
	curveATA, err := pumpfun.DeriveAssociatedBondingCurve(intent.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive curve token account: %w", err)
	}
	userATA, err := b.wallet.GetATA(intent.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive user token account: %w", err)
	}
	creatorVault, err := pumpfun.DeriveCreatorVault(intent.Creator)
	if err != nil {
		return nil, fmt.Errorf("derive creator vault: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: global, IsSigner: false, IsWritable: false},
		{PublicKey: feeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: intent.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: curve, IsSigner: false, IsWritable: true},
		{PublicKey: curveATA, IsSigner: false, IsWritable: true},
		{PublicKey: userATA, IsSigner: false, IsWritable: true},
		{PublicKey: b.wallet.PublicKey, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}
	if isBuy {
		accounts = append(accounts,
			&solana.AccountMeta{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
			&solana.AccountMeta{PublicKey: creatorVault, IsSigner: false, IsWritable: true},
		)
	} else {
		accounts = append(accounts,
			&solana.AccountMeta{PublicKey: creatorVault, IsSigner: false, IsWritable: true},
			&solana.AccountMeta{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		)
	}
	return append(accounts,
		&solana.AccountMeta{PublicKey: eventAuthority, IsSigner: false, IsWritable: false},
		&solana.AccountMeta{PublicKey: pumpfun.PumpFunProgramID, IsSigner: false, IsWritable: false},
	), nil
}

// priorityFeeMicroLamports converts a SOL-denominated fee string into
// micro-lamports per compute unit. "default" keeps a sane floor.
func priorityFeeMicroLamports(priorityFeeSol string) (uint64, error) {
	if priorityFeeSol == "" || priorityFeeSol == "default" {
		return 5_000, nil
	}
	var solValue float64
	if _, err := fmt.Sscanf(priorityFeeSol, "%f", &solValue); err != nil {
		return 0, fmt.Errorf("invalid priority fee %q: %w", priorityFeeSol, err)
	}
	if solValue < 0 {
		return 0, fmt.Errorf("priority fee must be non-negative")
	}
	return uint64(solValue * 1_000_000_000_000), nil
}
