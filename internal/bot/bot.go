// ==============================
// File: internal/bot/bot.go
// ==============================
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"pumptrader/internal/analyzer"
	"pumptrader/internal/config"
	"pumptrader/internal/domain"
	"pumptrader/internal/events"
	"pumptrader/internal/feed"
	"pumptrader/internal/ledger"
	"pumptrader/internal/metrics"
	"pumptrader/internal/pumpfun"
	"pumptrader/internal/scoring"
	"pumptrader/internal/storage"
	"pumptrader/internal/wallet"
)

// delayCooldown is how long the bot sits in delaying after a failed
// submission before resuming.
const delayCooldown = 5 * time.Second

// riskWindow is how many recent trades the analyzers see per update.
const riskWindow = 10

// TxBuilder assembles signed trade transactions.
type TxBuilder interface {
	Build(ctx context.Context, intent ledger.TradeIntent, price float64) (*solana.Transaction, error)
}

// TxConfirmer waits for a submitted transaction with a bounded budget.
type TxConfirmer interface {
	WaitForConfirmation(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error)
}

// Deps are the external collaborators. Bus and Recorder are optional;
// everything else is required.
type Deps struct {
	Feed      feed.Feed
	Client    ledger.Client
	Builder   TxBuilder
	Confirmer TxConfirmer
	Wallet    *wallet.Wallet
	Bus       *events.Bus
	Recorder  storage.Recorder
}

// Status is the read-only view of the bot for telemetry and tests.
type Status struct {
	State        State
	Halted       bool
	HaltReason   string
	TokenAddress string
	PositionOpen bool
	TradesClosed int
}

// Bot is the trading lifecycle controller. All state mutation happens on
// the single Run goroutine; the mutex exists for the KPI ticker and the
// status readers.
type Bot struct {
	settings config.BotSettings
	logger   *zap.Logger
	deps     Deps

	cooldown time.Duration

	buyEval  *scoring.BuyEvaluator
	sellEval *scoring.SellEvaluator
	risk     *analyzer.RiskAnalyzer
	safety   *analyzer.SafetyAnalyzer
	signal   *analyzer.TradingSignalAnalyzer

	// resolveMetadata fetches the creation URI's off-chain metadata; behind
	// a func so tests can swap the network out.
	resolveMetadata func(ctx context.Context, uri string) (*pumpfun.TokenMetadata, error)

	mu          sync.RWMutex
	fsm         *machine
	token       *domain.SelectedToken
	position    *domain.Position
	kpi         *domain.KPISnapshot
	riskState   *analyzer.RiskAnalysis
	safetyState *analyzer.SafetyAnalysis
	halted      bool
	haltReason  string
	history     []*domain.Position
}

// New wires the bot. Deps must carry at least Feed, Client, Builder,
// Confirmer and Wallet.
func New(settings config.BotSettings, deps Deps, logger *zap.Logger) *Bot {
	log := logger.Named("bot")
	return &Bot{
		settings:        settings,
		logger:          log,
		deps:            deps,
		cooldown:        delayCooldown,
		buyEval:         scoring.NewBuyEvaluator(settings, logger),
		sellEval:        scoring.NewSellEvaluator(settings, logger),
		risk:            analyzer.NewRiskAnalyzer(logger),
		safety:          analyzer.NewSafetyAnalyzer(logger),
		signal:          analyzer.NewTradingSignalAnalyzer(logger),
		resolveMetadata: pumpfun.NewMetadataResolver(logger).Resolve,
		fsm:             newMachine(log),
	}
}

// Run arms the bot and processes market events until the context is
// cancelled or the feed closes. The KPI ticker runs alongside.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	err := b.fsm.transition(StateWaitForBuy)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	b.publishStateChange(StateIdle, StateWaitForBuy)

	if err := b.deps.Feed.SubscribeNewTokens(ctx); err != nil {
		return err
	}
	b.logger.Info("🤖 Bot armed, watching for new mints")

	ticker := time.NewTicker(kpiTickInterval)
	defer ticker.Stop()
	go b.kpiLoop(ctx, ticker.C)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-b.deps.Feed.Events():
			if !ok {
				b.logger.Warn("Market feed closed, stopping")
				return nil
			}
			b.OnMarketMessage(ctx, ev)
		}
	}
}

// OnMarketMessage routes one decoded event through the state guards. Events
// that do not match the current state are dropped, never queued.
func (b *Bot) OnMarketMessage(ctx context.Context, ev pumpfun.DecodedEvent) {
	if b.isHalted() {
		return
	}

	switch ev.Kind {
	case pumpfun.EventCreation:
		if ev.Creation == nil {
			return
		}
		// creations matter only while hunting
		if b.currentState() != StateWaitForBuy {
			return
		}
		b.handleCreation(ctx, ev.Creation)

	case pumpfun.EventTrade:
		if ev.Trade == nil {
			return
		}
		b.handleTrade(ctx, ev.Trade)

	default:
		b.logger.Debug("Dropping unknown event kind")
	}
}

// GetStatus returns a consistent snapshot of the bot's state.
func (b *Bot) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	status := Status{
		State:        b.fsm.current(),
		Halted:       b.halted,
		HaltReason:   b.haltReason,
		PositionOpen: b.position != nil && !b.position.IsClosed(),
		TradesClosed: len(b.history),
	}
	if b.token != nil {
		status.TokenAddress = b.token.TokenAddress
	}
	return status
}

// GetCurrentPosition returns the open position, or nil.
func (b *Bot) GetCurrentPosition() *domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.position == nil || b.position.IsClosed() {
		return nil
	}
	return b.position
}

// History returns the archived positions, oldest first.
func (b *Bot) History() []*domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*domain.Position, len(b.history))
	copy(out, b.history)
	return out
}

// ---- buy side ----

func (b *Bot) handleCreation(ctx context.Context, ev *pumpfun.CreationEvent) {
	now := time.Now()
	mint := ev.TokenAddress.String()

	balance, err := b.deps.Client.GetBalance(ctx, b.deps.Wallet.PublicKey)
	if err != nil {
		b.logger.Warn("Balance check failed, skipping mint",
			zap.String("mint", mint), zap.Error(err))
		return
	}
	spendable := balance - b.settings.MinSolInWallet
	if spendable <= 0 {
		b.logger.Warn("Wallet below reserve floor, skipping mint",
			zap.String("mint", mint), zap.Float64("balance", balance))
		return
	}

	decision := b.buyEval.Evaluate(*ev, spendable, now)
	b.publishBuyDecision(mint, decision)
	if !decision.CanBuy {
		b.logger.Debug("Buy rejected",
			zap.String("mint", mint), zap.String("reason", decision.Reason))
		return
	}

	price, ok := pumpfun.Price(ev.VirtualSolReserves, ev.VirtualTokenReserves)
	if !ok {
		// unknown is not zero: without a price the buy cannot be sized
		b.logger.Warn("Mint has no determinable price, skipping",
			zap.String("mint", mint))
		return
	}

	b.mu.Lock()
	if err := b.fsm.transition(StateBuying); err != nil {
		b.mu.Unlock()
		return
	}
	token := domain.NewSelectedToken(*ev, now)
	b.token = token
	b.riskState = analyzer.NewRiskAnalysis()
	b.safetyState = analyzer.NewSafetyAnalysis()
	b.mu.Unlock()
	b.publishStateChange(StateWaitForBuy, StateBuying)

	b.logger.Info("🎯 Token selected",
		zap.String("mint", mint),
		zap.String("symbol", ev.Symbol),
		zap.Float64("score", decision.FinalScore),
		zap.Float64("amount_sol", decision.Amount))
	b.publish(events.TokenSelectedEvent{
		BaseEvent:    base(events.TokenSelected),
		TokenAddress: mint,
		Name:         ev.Name,
		Symbol:       ev.Symbol,
	})
	if b.deps.Recorder != nil {
		b.deps.Recorder.RecordToken(token)
	}

	// social links live behind the creation URI; resolve off the event
	// loop and attach them once they arrive
	if ev.URI != "" {
		go b.attachMetadata(ctx, mint, ev.URI)
	}

	// narrow the feed to this mint before spending anything
	if err := b.deps.Feed.UnsubscribeNewTokens(ctx); err != nil {
		b.logger.Warn("Unsubscribe from new mints failed", zap.Error(err))
	}
	if err := b.deps.Feed.SubscribeTokenTrades(ctx, mint); err != nil {
		b.logger.Warn("Trade subscription failed", zap.Error(err))
		b.failBack(ctx, StateBuying)
		return
	}

	b.executeBuy(ctx, ev, decision, price, balance)
}

// attachMetadata resolves the creation URI and attaches the result to the
// session it was fetched for. The session can close or change while the
// fetch is in flight, so the identity is re-checked under the lock.
func (b *Bot) attachMetadata(ctx context.Context, mint, uri string) {
	md, err := b.resolveMetadata(ctx, uri)
	if err != nil {
		b.logger.Debug("Token metadata unavailable",
			zap.String("mint", mint), zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.token == nil || b.token.TokenAddress != mint {
		return
	}
	b.token.Metadata = md
}

func (b *Bot) executeBuy(ctx context.Context, ev *pumpfun.CreationEvent, decision scoring.BuyDecision, price, preBalance float64) {
	mint := ev.TokenAddress.String()

	intent := ledger.TradeIntent{
		Mint:            ev.TokenAddress,
		Creator:         ev.CreatorAddress,
		Direction:       pumpfun.DirectionBuy,
		SolAmount:       decision.Amount,
		SlippagePercent: b.settings.SlippagePercent,
		PriorityFeeSol:  b.settings.PriorityFeeSol,
		ComputeUnits:    b.settings.ComputeUnits,
	}

	sig, err := b.submit(ctx, intent, price)
	if err != nil {
		b.logger.Warn("Buy failed",
			zap.String("mint", mint), zap.Error(err))
		b.failBack(ctx, StateBuying)
		return
	}

	postBalance, err := b.deps.Client.GetBalance(ctx, b.deps.Wallet.PublicKey)
	if err != nil {
		b.logger.Warn("Post-buy balance check failed, estimating", zap.Error(err))
		postBalance = preBalance - decision.Amount
	}
	tokenAmount := decision.Amount / price

	b.mu.Lock()
	if err := b.fsm.transition(StateHold); err != nil {
		b.mu.Unlock()
		return
	}
	pos := domain.NewPosition(mint, preBalance, postBalance, decision.Amount, price, tokenAmount, time.Now())
	b.position = pos
	b.kpi = nil
	b.mu.Unlock()
	b.publishStateChange(StateBuying, StateHold)
	metrics.SetOpenPositions(1)

	b.logger.Info("✅ Position opened",
		zap.String("mint", mint),
		zap.Float64("buy_price", price),
		zap.Float64("sol_cost", pos.BuySolCost),
		zap.Float64("tokens", tokenAmount))
	b.publish(events.PositionOpenedEvent{
		BaseEvent:    base(events.PositionOpened),
		TokenAddress: mint,
		BuyPrice:     price,
		SolSpent:     pos.BuySolCost,
		TokenAmount:  tokenAmount,
		Signature:    sig.String(),
	})
	if b.deps.Recorder != nil {
		b.deps.Recorder.RecordPositionOpened(pos, sig.String())
	}

	// trade subscription is already live; start watching for the exit
	b.mu.Lock()
	err = b.fsm.transition(StateWaitForSell)
	b.mu.Unlock()
	if err == nil {
		b.publishStateChange(StateHold, StateWaitForSell)
	}
}

// ---- sell side ----

func (b *Bot) handleTrade(ctx context.Context, trade *pumpfun.TradeEvent) {
	state := b.currentState()
	if state != StateHold && state != StateWaitForSell {
		return
	}

	b.mu.Lock()
	token := b.token
	pos := b.position
	if token == nil || trade.TokenAddress.String() != token.TokenAddress {
		// cross-token leakage guard
		b.mu.Unlock()
		return
	}

	token.ApplyTrade(*trade)
	if price, ok := pumpfun.TradePrice(trade); ok && pos != nil {
		pos.ObservePrice(price)
	}

	recent := token.RecentTrades(riskWindow)
	snap := analyzer.SnapshotFromSession(token)
	now := time.Now()
	b.riskState = b.risk.Update(b.riskState, snap, *trade, recent, now)
	b.safetyState = b.safety.Update(b.safetyState, snap, *trade, recent, now)
	riskState, safetyState := b.riskState, b.safetyState
	b.mu.Unlock()

	if b.deps.Recorder != nil {
		b.deps.Recorder.RecordTrade(token.TokenAddress, trade)
	}
	if state != StateWaitForSell || pos == nil {
		return
	}

	decision, kpi := b.sellEval.Evaluate(token, pos, trade.VirtualSolReserves, trade.VirtualTokenReserves, now)
	b.mu.Lock()
	b.kpi = &kpi
	b.mu.Unlock()

	reason := decision.Reason
	if !decision.CanSell {
		// the composite signal can force an exit the scoring blend missed
		signal := b.signal.Generate(riskState, safetyState, snap, recent)
		if signal.Action == analyzer.ActionSell {
			decision.CanSell = true
			reason = "risk signal: " + joinReasons(signal.Reasons)
		}
	}

	b.publish(events.SellDecidedEvent{
		BaseEvent:    base(events.SellDecided),
		TokenAddress: token.TokenAddress,
		CanSell:      decision.CanSell,
		Score:        decision.FinalScore,
		Reason:       reason,
	})
	if !decision.CanSell {
		metrics.RecordDecision("sell_deferred")
		return
	}
	metrics.RecordDecision("sell_accepted")

	b.mu.Lock()
	err := b.fsm.transition(StateSelling)
	b.mu.Unlock()
	if err != nil {
		return
	}
	b.publishStateChange(StateWaitForSell, StateSelling)

	b.logger.Info("📉 Selling",
		zap.String("mint", token.TokenAddress),
		zap.String("reason", reason))
	b.executeSell(ctx, token, pos, kpi)
}

func (b *Bot) executeSell(ctx context.Context, token *domain.SelectedToken, pos *domain.Position, kpi domain.KPISnapshot) {
	mint := token.Creation.TokenAddress

	price := kpi.CurrentPrice
	if !kpi.CurrentPriceOk {
		price = 0 // builder sells without a minimum when price is unknown
	}

	preBalance, preErr := b.deps.Client.GetBalance(ctx, b.deps.Wallet.PublicKey)
	if preErr != nil {
		b.logger.Warn("Pre-sell balance check failed", zap.Error(preErr))
	}

	intent := ledger.TradeIntent{
		Mint:            mint,
		Creator:         token.Creation.CreatorAddress,
		Direction:       pumpfun.DirectionSell,
		TokenAmount:     pos.TokenAmount,
		SlippagePercent: b.settings.SlippagePercent,
		PriorityFeeSol:  b.settings.PriorityFeeSol,
		ComputeUnits:    b.settings.ComputeUnits,
	}

	sig, err := b.submit(ctx, intent, price)
	if err != nil {
		b.logger.Warn("Sell failed",
			zap.String("mint", token.TokenAddress), zap.Error(err))
		b.failBack(ctx, StateSelling)
		return
	}

	// Proceeds come from the balance delta around the sell. Either read
	// failing leaves them unknown; a position closed without numbers beats
	// one closed with the whole wallet balance booked as profit.
	proceedsKnown := preErr == nil
	var solReceived float64
	if proceedsKnown {
		postBalance, err := b.deps.Client.GetBalance(ctx, b.deps.Wallet.PublicKey)
		if err != nil {
			b.logger.Warn("Post-sell balance check failed", zap.Error(err))
			proceedsKnown = false
		} else {
			solReceived = postBalance - preBalance
			if solReceived < 0 {
				solReceived = 0
			}
		}
	}

	b.mu.Lock()
	if proceedsKnown {
		sellPrice := price
		if pos.TokenAmount > 0 && solReceived > 0 {
			sellPrice = solReceived / pos.TokenAmount
		}
		pos.Close(sellPrice, solReceived)
	} else {
		pos.CloseUnknownProceeds()
	}
	b.mu.Unlock()

	// the sell must have emptied the token account
	if residual := b.residualTokens(ctx, mint); residual > 0 {
		violation := &InvariantViolation{
			TokenAddress: token.TokenAddress,
			Detail:       fmt.Sprintf("%.6f tokens left after complete sell", residual),
		}
		b.halt(token.TokenAddress, violation.Error())
		return
	}

	b.archivePosition(ctx, token, pos, sig.String())
}

// residualTokens reads the wallet's token account balance after a sell.
// A read failure is treated as empty; the invariant check must not turn
// RPC flakiness into a trading halt.
func (b *Bot) residualTokens(ctx context.Context, mint solana.PublicKey) float64 {
	ata, err := b.deps.Wallet.GetATA(mint)
	if err != nil {
		return 0
	}
	balance, err := b.deps.Client.GetTokenBalance(ctx, ata)
	if err != nil {
		return 0
	}
	return balance
}

func (b *Bot) archivePosition(ctx context.Context, token *domain.SelectedToken, pos *domain.Position, sig string) {
	b.mu.Lock()
	if err := b.fsm.transition(StateIdle); err != nil {
		b.mu.Unlock()
		return
	}
	b.history = append(b.history, pos)
	b.token = nil
	b.position = nil
	b.kpi = nil
	b.riskState = nil
	b.safetyState = nil
	b.mu.Unlock()
	b.publishStateChange(StateSelling, StateIdle)
	metrics.SetOpenPositions(0)

	if pos.Profit != nil {
		b.logger.Info("💰 Position closed",
			zap.String("mint", token.TokenAddress),
			zap.Float64("profit_sol", *pos.Profit))
	} else {
		b.logger.Warn("💰 Position closed, proceeds unknown",
			zap.String("mint", token.TokenAddress))
	}
	b.publish(events.PositionClosedEvent{
		BaseEvent:     base(events.PositionClosed),
		TokenAddress:  token.TokenAddress,
		SellPrice:     deref(pos.SellPrice),
		SolReceived:   deref(pos.SellSolReward),
		Profit:        deref(pos.Profit),
		ProceedsKnown: pos.Profit != nil,
		Signature:     sig,
	})
	if b.deps.Recorder != nil {
		b.deps.Recorder.RecordPositionClosed(pos, sig)
	}

	// reverse the subscription swap and rearm
	if err := b.deps.Feed.UnsubscribeTokenTrades(ctx, token.TokenAddress); err != nil {
		b.logger.Warn("Trade unsubscribe failed", zap.Error(err))
	}
	if err := b.deps.Feed.SubscribeNewTokens(ctx); err != nil {
		b.logger.Warn("Resubscribe to new mints failed", zap.Error(err))
	}

	b.mu.Lock()
	err := b.fsm.transition(StateWaitForBuy)
	b.mu.Unlock()
	if err == nil {
		b.publishStateChange(StateIdle, StateWaitForBuy)
	}
}

// ---- shared plumbing ----

// submit builds, sends and confirms one trade, folding every failure into
// a submission error for the state machine.
func (b *Bot) submit(ctx context.Context, intent ledger.TradeIntent, price float64) (solana.Signature, error) {
	op := string(intent.Direction)

	var sig solana.Signature
	err := metrics.MeasureTrade(op, func() error {
		tx, err := b.deps.Builder.Build(ctx, intent, price)
		if err != nil {
			return err
		}
		if sig, err = b.deps.Client.SubmitTransaction(ctx, tx); err != nil {
			return err
		}
		_, err = b.deps.Confirmer.WaitForConfirmation(ctx, sig)
		return err
	})
	if err != nil {
		return solana.Signature{}, &ledger.TransactionSubmissionError{Operation: op, Err: err}
	}
	return sig, nil
}

// failBack moves from a failed buying/selling into delaying, waits out the
// cooldown and resumes the matching wait state.
func (b *Bot) failBack(ctx context.Context, from State) {
	b.mu.Lock()
	if err := b.fsm.transition(StateDelaying); err != nil {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.publishStateChange(from, StateDelaying)

	select {
	case <-ctx.Done():
		return
	case <-time.After(b.cooldown):
	}

	if from == StateBuying {
		// the aborted buy leaves no position; drop the session and rehunt
		b.mu.Lock()
		token := b.token
		b.token = nil
		b.position = nil
		err := b.fsm.transition(StateWaitForBuy)
		b.mu.Unlock()
		if err != nil {
			return
		}
		b.publishStateChange(StateDelaying, StateWaitForBuy)

		if token != nil {
			if err := b.deps.Feed.UnsubscribeTokenTrades(ctx, token.TokenAddress); err != nil {
				b.logger.Warn("Trade unsubscribe failed", zap.Error(err))
			}
		}
		if err := b.deps.Feed.SubscribeNewTokens(ctx); err != nil {
			b.logger.Warn("Resubscribe to new mints failed", zap.Error(err))
		}
		return
	}

	// failed sell: the position is still open, keep trying on new trades
	b.mu.Lock()
	err := b.fsm.transition(StateWaitForSell)
	b.mu.Unlock()
	if err == nil {
		b.publishStateChange(StateDelaying, StateWaitForSell)
	}
}

// halt suspends automated trading permanently; only a restart clears it.
func (b *Bot) halt(tokenAddress, reason string) {
	b.mu.Lock()
	b.halted = true
	b.haltReason = reason
	b.mu.Unlock()
	metrics.RecordHalt()

	b.logger.Error("🛑 Trading halted",
		zap.String("mint", tokenAddress),
		zap.String("reason", reason))
	b.publish(events.TradingHaltedEvent{
		BaseEvent:    base(events.TradingHalted),
		TokenAddress: tokenAddress,
		Reason:       reason,
	})
}

func (b *Bot) isHalted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.halted
}

func (b *Bot) currentState() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fsm.current()
}

func (b *Bot) publish(ev events.Event) {
	if b.deps.Bus == nil {
		return
	}
	_ = b.deps.Bus.Publish(ev)
}

func (b *Bot) publishStateChange(from, to State) {
	b.publish(events.StateChangedEvent{
		BaseEvent: base(events.StateChanged),
		From:      string(from),
		To:        string(to),
	})
}

func (b *Bot) publishBuyDecision(mint string, decision scoring.BuyDecision) {
	if decision.CanBuy {
		metrics.RecordDecision("buy_accepted")
	} else {
		metrics.RecordDecision("buy_rejected")
	}
	b.publish(events.BuyDecidedEvent{
		BaseEvent:    base(events.BuyDecided),
		TokenAddress: mint,
		CanBuy:       decision.CanBuy,
		Amount:       decision.Amount,
		Score:        decision.FinalScore,
		Reason:       decision.Reason,
	})
}

func base(t events.EventType) events.BaseEvent {
	return events.BaseEvent{EventType: t, EventTime: time.Now()}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func joinReasons(reasons []string) string {
	switch len(reasons) {
	case 0:
		return "composite risk"
	case 1:
		return reasons[0]
	default:
		return reasons[0] + "; ..."
	}
}
