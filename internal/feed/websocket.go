// =============================
// File: internal/feed/websocket.go
// =============================
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pumptrader/internal/pumpfun"
)

const (
	writeTimeout     = 10 * time.Second
	reconnectMaxWait = 2 * time.Minute
	eventBufferSize  = 256
)

// wire method names of the market data endpoint
const (
	methodSubscribeNew     = "subscribeNewToken"
	methodUnsubscribeNew   = "unsubscribeNewToken"
	methodSubscribeTrade   = "subscribeTokenTrade"
	methodUnsubscribeTrade = "unsubscribeTokenTrade"
)

// wsRequest is the outbound subscription frame.
type wsRequest struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys,omitempty"`
}

// wsMessage is the inbound market frame. TxType discriminates the payload;
// everything else is optional depending on the type.
type wsMessage struct {
	Signature        string  `json:"signature"`
	TxType           string  `json:"txType"`
	Mint             string  `json:"mint"`
	TraderPublicKey  string  `json:"traderPublicKey"`
	BondingCurveKey  string  `json:"bondingCurveKey"`
	SolAmount        float64 `json:"solAmount"`
	TokenAmount      float64 `json:"tokenAmount"`
	InitialBuy       float64 `json:"initialBuy"`
	VSolInCurve      float64 `json:"vSolInBondingCurve"`
	VTokensInCurve   float64 `json:"vTokensInBondingCurve"`
	NewTokenBalance  float64 `json:"newTokenBalance"`
	MarketCapSol     float64 `json:"marketCapSol"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	URI              string  `json:"uri"`
	TotalSupplyUnits float64 `json:"totalSupply"`
}

// WSFeed is a websocket market feed with automatic reconnection. Desired
// subscriptions survive a reconnect: they are replayed onto the fresh
// connection before reads resume.
type WSFeed struct {
	url    string
	logger *zap.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	wantNew    bool
	wantTrades map[string]struct{}
	closed     bool

	seen   *SeenCache
	events chan pumpfun.DecodedEvent

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWSFeed connects to the endpoint and starts the read loop.
func NewWSFeed(ctx context.Context, url string, dedupSize int, logger *zap.Logger) (*WSFeed, error) {
	seen, err := NewSeenCache(dedupSize)
	if err != nil {
		return nil, fmt.Errorf("dedup cache: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	f := &WSFeed{
		url:        url,
		logger:     logger.Named("feed"),
		wantTrades: make(map[string]struct{}),
		seen:       seen,
		events:     make(chan pumpfun.DecodedEvent, eventBufferSize),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	if err := f.dial(ctx); err != nil {
		cancel()
		return nil, err
	}

	go f.run(runCtx)
	return f, nil
}

func (f *WSFeed) Events() <-chan pumpfun.DecodedEvent { return f.events }

func (f *WSFeed) SubscribeNewTokens(ctx context.Context) error {
	f.mu.Lock()
	f.wantNew = true
	f.mu.Unlock()
	return f.send(wsRequest{Method: methodSubscribeNew})
}

func (f *WSFeed) UnsubscribeNewTokens(ctx context.Context) error {
	f.mu.Lock()
	f.wantNew = false
	f.mu.Unlock()
	return f.send(wsRequest{Method: methodUnsubscribeNew})
}

func (f *WSFeed) SubscribeTokenTrades(ctx context.Context, mint string) error {
	f.mu.Lock()
	f.wantTrades[mint] = struct{}{}
	f.mu.Unlock()
	return f.send(wsRequest{Method: methodSubscribeTrade, Keys: []string{mint}})
}

func (f *WSFeed) UnsubscribeTokenTrades(ctx context.Context, mint string) error {
	f.mu.Lock()
	delete(f.wantTrades, mint)
	f.mu.Unlock()
	return f.send(wsRequest{Method: methodUnsubscribeTrade, Keys: []string{mint}})
}

// Close tears down the connection and closes the events channel once the
// read loop has drained.
func (f *WSFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	conn := f.conn
	f.mu.Unlock()

	f.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-f.done
	return nil
}

func (f *WSFeed) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial market feed: %w", err)
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	f.logger.Info("📡 Market feed connected", zap.String("url", f.url))
	return nil
}

func (f *WSFeed) send(req wsRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("feed not connected")
	}
	_ = f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(req)
}

// run reads frames until the connection drops, then reconnects with
// exponential backoff and replays the desired subscriptions.
func (f *WSFeed) run(ctx context.Context) {
	defer close(f.done)
	defer close(f.events)

	for {
		f.readLoop(ctx)

		if ctx.Err() != nil {
			return
		}

		reconnect := func() (struct{}, error) {
			if err := f.dial(ctx); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, nil
		}
		if _, err := backoff.Retry(ctx, reconnect,
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxElapsedTime(reconnectMaxWait),
		); err != nil {
			f.logger.Error("Market feed reconnect failed, giving up", zap.Error(err))
			return
		}
		f.resubscribe()
	}
}

func (f *WSFeed) readLoop(ctx context.Context) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Warn("Market feed read failed", zap.Error(err))
			}
			return
		}
		if ev, ok := f.parse(raw); ok {
			f.deliver(ev)
		}
	}
}

// resubscribe replays the desired subscription set onto a fresh connection.
func (f *WSFeed) resubscribe() {
	f.mu.Lock()
	wantNew := f.wantNew
	mints := make([]string, 0, len(f.wantTrades))
	for mint := range f.wantTrades {
		mints = append(mints, mint)
	}
	f.mu.Unlock()

	if wantNew {
		if err := f.send(wsRequest{Method: methodSubscribeNew}); err != nil {
			f.logger.Warn("Resubscribe to new tokens failed", zap.Error(err))
		}
	}
	if len(mints) > 0 {
		if err := f.send(wsRequest{Method: methodSubscribeTrade, Keys: mints}); err != nil {
			f.logger.Warn("Resubscribe to token trades failed", zap.Error(err))
		}
	}
}

// deliver pushes the event without blocking the read loop. A full buffer
// drops the event and warns; the bot tolerates gaps in the tape.
func (f *WSFeed) deliver(ev pumpfun.DecodedEvent) {
	select {
	case f.events <- ev:
	default:
		f.logger.Warn("Event buffer full, dropping market event",
			zap.Int("kind", int(ev.Kind)))
	}
}

// parse maps an inbound frame onto the decoded event union. Malformed
// frames and replays are dropped with a log line, never fatal.
func (f *WSFeed) parse(raw []byte) (pumpfun.DecodedEvent, bool) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		f.logger.Debug("Unparseable feed frame", zap.Error(err))
		return pumpfun.DecodedEvent{}, false
	}
	if msg.TxType == "" {
		// ack or server notice
		return pumpfun.DecodedEvent{}, false
	}
	if f.seen.Seen(msg.Signature) {
		return pumpfun.DecodedEvent{}, false
	}

	switch msg.TxType {
	case "create":
		ev, err := creationFromMessage(&msg)
		if err != nil {
			f.logger.Warn("Bad creation frame", zap.String("mint", msg.Mint), zap.Error(err))
			return pumpfun.DecodedEvent{}, false
		}
		return pumpfun.DecodedEvent{Kind: pumpfun.EventCreation, Creation: ev}, true
	case "buy", "sell":
		ev, err := tradeFromMessage(&msg)
		if err != nil {
			f.logger.Warn("Bad trade frame", zap.String("mint", msg.Mint), zap.Error(err))
			return pumpfun.DecodedEvent{}, false
		}
		return pumpfun.DecodedEvent{Kind: pumpfun.EventTrade, Trade: ev}, true
	default:
		f.logger.Debug("Unknown frame type", zap.String("tx_type", msg.TxType))
		return pumpfun.DecodedEvent{}, false
	}
}

// defaultTotalSupply is the fixed launch supply when the frame omits it.
const defaultTotalSupply = 1_000_000_000.0

func creationFromMessage(msg *wsMessage) (*pumpfun.CreationEvent, error) {
	mint, err := solana.PublicKeyFromBase58(msg.Mint)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	creator, err := solana.PublicKeyFromBase58(msg.TraderPublicKey)
	if err != nil {
		return nil, fmt.Errorf("creator: %w", err)
	}

	curve := solana.PublicKey{}
	if msg.BondingCurveKey != "" {
		if curve, err = solana.PublicKeyFromBase58(msg.BondingCurveKey); err != nil {
			return nil, fmt.Errorf("bonding curve: %w", err)
		}
	} else {
		curve, err = pumpfun.DeriveBondingCurve(mint)
		if err != nil {
			return nil, fmt.Errorf("derive bonding curve: %w", err)
		}
	}

	supply := msg.TotalSupplyUnits
	if supply <= 0 {
		supply = defaultTotalSupply
	}

	ev := &pumpfun.CreationEvent{
		TokenAddress:         mint,
		CreatorAddress:       creator,
		BondingCurveAddress:  curve,
		Name:                 msg.Name,
		Symbol:               msg.Symbol,
		URI:                  msg.URI,
		VirtualSolReserves:   msg.VSolInCurve,
		VirtualTokenReserves: msg.VTokensInCurve,
		TotalSupply:          supply,
		CreatedAt:            time.Now(),
	}

	// the creator's opening buy rides in the same frame when present
	if msg.SolAmount > 0 && msg.InitialBuy > 0 {
		ev.InitialBuy = &pumpfun.InitialBuy{
			SolAmount:          msg.SolAmount,
			TokenAmount:        msg.InitialBuy,
			CreatorPostPercent: msg.InitialBuy / supply * 100,
		}
	}
	return ev, nil
}

func tradeFromMessage(msg *wsMessage) (*pumpfun.TradeEvent, error) {
	mint, err := solana.PublicKeyFromBase58(msg.Mint)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	trader, err := solana.PublicKeyFromBase58(msg.TraderPublicKey)
	if err != nil {
		return nil, fmt.Errorf("trader: %w", err)
	}

	dir := pumpfun.DirectionSell
	if msg.TxType == "buy" {
		dir = pumpfun.DirectionBuy
	}

	return &pumpfun.TradeEvent{
		TokenAddress:         mint,
		TraderAddress:        trader,
		Direction:            dir,
		SolAmount:            msg.SolAmount,
		TokenAmount:          msg.TokenAmount,
		VirtualSolReserves:   msg.VSolInCurve,
		VirtualTokenReserves: msg.VTokensInCurve,
		PostBalanceToken:     msg.NewTokenBalance,
		Timestamp:            time.Now(),
	}, nil
}
