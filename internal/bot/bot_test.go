// ==============================
// File: internal/bot/bot_test.go
// ==============================
package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pumptrader/internal/analyzer"
	"pumptrader/internal/config"
	"pumptrader/internal/ledger"
	"pumptrader/internal/pumpfun"
	"pumptrader/internal/wallet"
)

var (
	botTestMint    = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	botTestCreator = solana.MustPublicKeyFromBase58("Stake11111111111111111111111111111111111111")
	botTestTrader  = solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
	botOtherMint   = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

// ---- mock collaborators ----

type mockFeed struct {
	mu          sync.Mutex
	events      chan pumpfun.DecodedEvent
	newSubs     int
	newUnsubs   int
	tradeSubs   []string
	tradeUnsubs []string
}

func newMockFeed() *mockFeed {
	return &mockFeed{events: make(chan pumpfun.DecodedEvent, 16)}
}

func (f *mockFeed) SubscribeNewTokens(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newSubs++
	return nil
}

func (f *mockFeed) UnsubscribeNewTokens(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newUnsubs++
	return nil
}

func (f *mockFeed) SubscribeTokenTrades(_ context.Context, mint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tradeSubs = append(f.tradeSubs, mint)
	return nil
}

func (f *mockFeed) UnsubscribeTokenTrades(_ context.Context, mint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tradeUnsubs = append(f.tradeUnsubs, mint)
	return nil
}

func (f *mockFeed) Events() <-chan pumpfun.DecodedEvent { return f.events }
func (f *mockFeed) Close() error                        { close(f.events); return nil }

type stubLedger struct {
	mu           sync.Mutex
	balances     []float64 // consumed one per GetBalance call, last value sticks
	tokenBal     float64
	sendErr      error
	submits      int
	balanceCalls int
	failCalls    map[int]bool // 1-based GetBalance calls that error
}

func (s *stubLedger) GetBalance(context.Context, solana.PublicKey) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balanceCalls++
	if s.failCalls[s.balanceCalls] {
		return 0, errors.New("scripted balance failure")
	}
	if len(s.balances) == 0 {
		return 0, errors.New("no scripted balance")
	}
	bal := s.balances[0]
	if len(s.balances) > 1 {
		s.balances = s.balances[1:]
	}
	return bal, nil
}

func (s *stubLedger) GetTokenBalance(context.Context, solana.PublicKey) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenBal, nil
}

func (s *stubLedger) GetAccountInfo(context.Context, solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return nil, ledger.ErrAccountNotFound
}

func (s *stubLedger) GetRecentBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (s *stubLedger) SubmitTransaction(context.Context, *solana.Transaction) (solana.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return solana.Signature{}, s.sendErr
	}
	s.submits++
	return solana.Signature{0x42}, nil
}

func (s *stubLedger) GetConfirmedTransaction(context.Context, solana.Signature) (*rpc.GetTransactionResult, error) {
	return &rpc.GetTransactionResult{}, nil
}

type stubBuilder struct {
	mu      sync.Mutex
	err     error
	intents []ledger.TradeIntent
	prices  []float64
}

func (b *stubBuilder) Build(_ context.Context, intent ledger.TradeIntent, price float64) (*solana.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.intents = append(b.intents, intent)
	b.prices = append(b.prices, price)
	return &solana.Transaction{}, nil
}

type stubConfirmer struct{ err error }

func (c *stubConfirmer) WaitForConfirmation(context.Context, solana.Signature) (*rpc.GetTransactionResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &rpc.GetTransactionResult{}, nil
}

// ---- fixtures ----

func testSettings() config.BotSettings {
	return config.BotSettings{
		MinSolInWallet:      0.05,
		MinBuyAmount:        0.05,
		MaxBuyAmount:        0.5,
		ScoreMinForBuy:      60,
		ScoreMinForSell:     60,
		StopLimitPercent:    20,
		TakeProfitPercent:   50,
		TrailingStopPercent: 80,
		SlippagePercent:     5,
		PriorityFeeSol:      "0.000005",
		ComputeUnits:        200_000,
	}
}

type botHarness struct {
	bot       *Bot
	feed      *mockFeed
	client    *stubLedger
	builder   *stubBuilder
	confirmer *stubConfirmer
}

func newBotHarness(t *testing.T) *botHarness {
	t.Helper()

	key := solana.NewWallet()
	w, err := wallet.New(key.PrivateKey.String())
	require.NoError(t, err)

	h := &botHarness{
		feed:      newMockFeed(),
		client:    &stubLedger{balances: []float64{1.0}},
		builder:   &stubBuilder{},
		confirmer: &stubConfirmer{},
	}
	h.bot = New(testSettings(), Deps{
		Feed:      h.feed,
		Client:    h.client,
		Builder:   h.builder,
		Confirmer: h.confirmer,
		Wallet:    w,
	}, zaptest.NewLogger(t))
	h.bot.cooldown = 10 * time.Millisecond
	return h
}

func (h *botHarness) arm(t *testing.T) {
	t.Helper()
	require.NoError(t, h.bot.fsm.transition(StateWaitForBuy))
}

func freshCreation(now time.Time) *pumpfun.CreationEvent {
	return &pumpfun.CreationEvent{
		TokenAddress:         botTestMint,
		CreatorAddress:       botTestCreator,
		Name:                 "Fresh Launch",
		Symbol:               "FRSH",
		VirtualSolReserves:   30,
		VirtualTokenReserves: 1_000_000_000,
		TotalSupply:          1_000_000_000,
		CreatedAt:            now,
		InitialBuy: &pumpfun.InitialBuy{
			SolAmount:          0.2,
			TokenAmount:        6_000_000,
			CreatorPostPercent: 0.6,
		},
	}
}

func creationMsg(ev *pumpfun.CreationEvent) pumpfun.DecodedEvent {
	return pumpfun.DecodedEvent{Kind: pumpfun.EventCreation, Creation: ev}
}

func tradeMsg(mint solana.PublicKey, dir pumpfun.TradeDirection, vSol, vTok float64, at time.Time) pumpfun.DecodedEvent {
	return pumpfun.DecodedEvent{Kind: pumpfun.EventTrade, Trade: &pumpfun.TradeEvent{
		TokenAddress:         mint,
		TraderAddress:        botTestTrader,
		Direction:            dir,
		SolAmount:            0.1,
		TokenAmount:          1000,
		VirtualSolReserves:   vSol,
		VirtualTokenReserves: vTok,
		Timestamp:            at,
	}}
}

// ---- tests ----

func TestBotIgnoresCreationOutsideWaitForBuy(t *testing.T) {
	h := newBotHarness(t)
	// machine still idle: nothing should happen
	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))

	assert.Equal(t, StateIdle, h.bot.GetStatus().State)
	assert.Empty(t, h.builder.intents)
	assert.Zero(t, h.feed.newUnsubs)
}

func TestBotBuyFlowOpensPosition(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	h.client.balances = []float64{1.0, 0.8} // pre-buy, post-buy

	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))

	status := h.bot.GetStatus()
	assert.Equal(t, StateWaitForSell, status.State)
	assert.True(t, status.PositionOpen)
	assert.Equal(t, botTestMint.String(), status.TokenAddress)

	// the feed was narrowed to the selected mint
	assert.Equal(t, 1, h.feed.newUnsubs)
	assert.Equal(t, []string{botTestMint.String()}, h.feed.tradeSubs)

	require.Len(t, h.builder.intents, 1)
	intent := h.builder.intents[0]
	assert.Equal(t, pumpfun.DirectionBuy, intent.Direction)
	assert.Equal(t, botTestMint, intent.Mint)
	assert.Greater(t, intent.SolAmount, 0.05)
	assert.InDelta(t, 3e-8, h.builder.prices[0], 1e-12)

	pos := h.bot.GetCurrentPosition()
	require.NotNil(t, pos)
	assert.InDelta(t, 0.2, pos.BuySolCost, 1e-9) // 1.0 pre minus 0.8 post
	assert.InDelta(t, 3e-8, pos.BuyPrice, 1e-12)
}

func TestBotSkipsMintWhenBelowReserveFloor(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	h.client.balances = []float64{0.04} // under the 0.05 floor

	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))

	assert.Equal(t, StateWaitForBuy, h.bot.GetStatus().State)
	assert.Empty(t, h.builder.intents)
	assert.Zero(t, h.feed.newUnsubs)
}

func TestBotBuyFailureEntersDelayingAndRehunts(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	h.client.balances = []float64{1.0}
	h.builder.err = errors.New("blockhash expired")

	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))

	status := h.bot.GetStatus()
	assert.Equal(t, StateWaitForBuy, status.State)
	assert.False(t, status.PositionOpen)
	assert.Empty(t, status.TokenAddress)

	// the subscription swap was reversed after the cooldown
	assert.Equal(t, []string{botTestMint.String()}, h.feed.tradeUnsubs)
	assert.Equal(t, 1, h.feed.newSubs)
}

func TestBotDropsForeignTrades(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	h.client.balances = []float64{1.0, 0.8}
	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))
	require.Equal(t, StateWaitForSell, h.bot.GetStatus().State)

	// a trade on some other mint must not touch the session
	h.bot.OnMarketMessage(context.Background(), tradeMsg(botOtherMint, pumpfun.DirectionSell, 20, 1.5e9, time.Now()))

	h.bot.mu.RLock()
	trades := len(h.bot.token.Trades)
	h.bot.mu.RUnlock()
	assert.Zero(t, trades)
	assert.Equal(t, StateWaitForSell, h.bot.GetStatus().State)
}

func TestBotStopLimitSellClosesPosition(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	// pre-buy 1.0, post-buy 0.8, pre-sell 0.8, post-sell 0.95
	h.client.balances = []float64{1.0, 0.8, 0.8, 0.95}
	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))
	require.Equal(t, StateWaitForSell, h.bot.GetStatus().State)

	// 30/1e9 bought at 3e-8; 22.5/1e9 prices the dip at -25%
	h.bot.OnMarketMessage(context.Background(), tradeMsg(botTestMint, pumpfun.DirectionSell, 22.5, 1e9, time.Now()))

	status := h.bot.GetStatus()
	assert.Equal(t, StateWaitForBuy, status.State)
	assert.False(t, status.PositionOpen)
	assert.Equal(t, 1, status.TradesClosed)

	require.Len(t, h.builder.intents, 2)
	sell := h.builder.intents[1]
	assert.Equal(t, pumpfun.DirectionSell, sell.Direction)
	assert.Equal(t, botTestMint, sell.Mint)
	assert.Greater(t, sell.TokenAmount, 0.0)

	history := h.bot.History()
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Profit)
	assert.InDelta(t, 0.15-0.2, *history[0].Profit, 1e-9) // received minus cost

	// subscription swap reversed and rearmed
	assert.Equal(t, []string{botTestMint.String()}, h.feed.tradeUnsubs)
	assert.Equal(t, 1, h.feed.newSubs)
	assert.Nil(t, h.bot.GetCurrentPosition())
}

func TestBotResolvesSocialMetadataForSession(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	h.client.balances = []float64{1.0, 0.8}

	resolved := make(chan string, 1)
	h.bot.resolveMetadata = func(_ context.Context, uri string) (*pumpfun.TokenMetadata, error) {
		resolved <- uri
		return &pumpfun.TokenMetadata{
			Symbol:  "FRSH",
			Website: "https://fresh.example",
			Twitter: "https://x.com/fresh",
		}, nil
	}

	ev := freshCreation(time.Now())
	ev.URI = "https://meta.example/fresh.json"
	h.bot.OnMarketMessage(context.Background(), creationMsg(ev))
	require.Equal(t, StateWaitForSell, h.bot.GetStatus().State)

	assert.Equal(t, "https://meta.example/fresh.json", <-resolved)
	require.Eventually(t, func() bool {
		h.bot.mu.RLock()
		defer h.bot.mu.RUnlock()
		return h.bot.token != nil && h.bot.token.Metadata != nil
	}, time.Second, 5*time.Millisecond)

	// the resolved socials must reach the analyzer view
	h.bot.mu.RLock()
	snap := analyzer.SnapshotFromSession(h.bot.token)
	h.bot.mu.RUnlock()
	assert.Equal(t, "https://fresh.example", snap.Website)
	assert.Equal(t, "https://x.com/fresh", snap.Twitter)
}

func TestBotDropsMetadataForStaleSession(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	h.client.balances = []float64{1.0, 0.8}
	h.bot.resolveMetadata = func(context.Context, string) (*pumpfun.TokenMetadata, error) {
		return &pumpfun.TokenMetadata{Website: "https://stale.example"}, nil
	}
	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))
	require.Equal(t, StateWaitForSell, h.bot.GetStatus().State)

	// a fetch that raced a session change must not attach
	h.bot.attachMetadata(context.Background(), botOtherMint.String(), "https://meta.example/x.json")

	h.bot.mu.RLock()
	defer h.bot.mu.RUnlock()
	require.NotNil(t, h.bot.token)
	assert.Nil(t, h.bot.token.Metadata)
}

func TestBotSellBalanceFailureArchivesUnknownProceeds(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	// pre-buy 1.0, post-buy 0.8; the pre-sell read errors out
	h.client.balances = []float64{1.0, 0.8}
	h.client.failCalls = map[int]bool{3: true}

	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))
	require.Equal(t, StateWaitForSell, h.bot.GetStatus().State)

	h.bot.OnMarketMessage(context.Background(), tradeMsg(botTestMint, pumpfun.DirectionSell, 22.5, 1e9, time.Now()))

	status := h.bot.GetStatus()
	assert.Equal(t, StateWaitForBuy, status.State)
	assert.Equal(t, 1, status.TradesClosed)

	// without a balance delta the sell side must stay unknown, never the
	// raw wallet balance booked as proceeds
	history := h.bot.History()
	require.Len(t, history, 1)
	closed := history[0]
	assert.True(t, closed.IsClosed())
	assert.Nil(t, closed.Profit)
	assert.Nil(t, closed.SellSolReward)
	assert.Nil(t, closed.SellPrice)
	require.NotNil(t, closed.SellSolAmount)
	assert.Greater(t, *closed.SellSolAmount, 0.0)
}

func TestBotHaltsOnResidualTokenBalance(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	h.client.balances = []float64{1.0, 0.8, 0.8, 0.95}
	h.client.tokenBal = 5000 // the sell somehow left tokens behind

	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))
	h.bot.OnMarketMessage(context.Background(), tradeMsg(botTestMint, pumpfun.DirectionSell, 22.5, 1e9, time.Now()))

	status := h.bot.GetStatus()
	assert.True(t, status.Halted)
	assert.Contains(t, status.HaltReason, "invariant violation")
	assert.Zero(t, status.TradesClosed)

	// halted bots ignore further market traffic
	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))
	assert.Len(t, h.builder.intents, 2)
}

func TestBotSellFailureKeepsPositionAndRetries(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	h.client.balances = []float64{1.0, 0.8, 0.8}
	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))
	require.Equal(t, StateWaitForSell, h.bot.GetStatus().State)

	h.builder.err = errors.New("node behind")
	h.bot.OnMarketMessage(context.Background(), tradeMsg(botTestMint, pumpfun.DirectionSell, 22.5, 1e9, time.Now()))

	status := h.bot.GetStatus()
	assert.Equal(t, StateWaitForSell, status.State)
	assert.True(t, status.PositionOpen)

	// the retry succeeds on the next trade
	h.builder.err = nil
	h.client.balances = []float64{0.8, 0.95}
	h.bot.OnMarketMessage(context.Background(), tradeMsg(botTestMint, pumpfun.DirectionSell, 22.0, 1e9, time.Now()))

	assert.Equal(t, StateWaitForBuy, h.bot.GetStatus().State)
	assert.Equal(t, 1, h.bot.GetStatus().TradesClosed)
}

func TestBotHoldsWhenNothingTriggers(t *testing.T) {
	h := newBotHarness(t)
	h.arm(t)
	h.client.balances = []float64{1.0, 0.8}
	h.bot.OnMarketMessage(context.Background(), creationMsg(freshCreation(time.Now())))
	require.Equal(t, StateWaitForSell, h.bot.GetStatus().State)

	// a mild dip: -10% is inside the stop limit, nothing should fire
	h.bot.OnMarketMessage(context.Background(), tradeMsg(botTestMint, pumpfun.DirectionBuy, 27, 1e9, time.Now()))

	status := h.bot.GetStatus()
	assert.Equal(t, StateWaitForSell, status.State)
	assert.True(t, status.PositionOpen)
	assert.Len(t, h.builder.intents, 1) // only the buy
}
