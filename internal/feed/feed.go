// =============================
// File: internal/feed/feed.go
// =============================
package feed

import (
	"context"

	"pumptrader/internal/pumpfun"
)

// Feed delivers decoded market events. Implementations own their transport;
// the bot only swaps subscriptions and drains Events.
type Feed interface {
	// SubscribeNewTokens starts delivery of creation events.
	SubscribeNewTokens(ctx context.Context) error
	// UnsubscribeNewTokens stops delivery of creation events.
	UnsubscribeNewTokens(ctx context.Context) error

	// SubscribeTokenTrades starts delivery of trade events for one mint.
	SubscribeTokenTrades(ctx context.Context, mint string) error
	// UnsubscribeTokenTrades stops delivery for one mint.
	UnsubscribeTokenTrades(ctx context.Context, mint string) error

	// Events is the single delivery channel. Closed when the feed stops.
	Events() <-chan pumpfun.DecodedEvent

	// Close tears down the transport and closes Events.
	Close() error
}
