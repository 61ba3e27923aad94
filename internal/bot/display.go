// ==============================
// File: internal/bot/display.go
// ==============================
package bot

import (
	"context"
	"fmt"
	"time"

	"pumptrader/internal/domain"
	"pumptrader/internal/events"
)

// kpiTickInterval is how often the held-position telemetry line is emitted.
const kpiTickInterval = 5 * time.Second

// kpiLoop emits one collapsed telemetry line per tick while a position is
// held. The position can close between the snapshot read and the log call;
// the identity captured with the snapshot keeps the line honest.
func (b *Bot) kpiLoop(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			b.kpiTick()
		}
	}
}

// kpiTick reports whether a line was emitted. All position reads happen
// under the lock; the close path mutates the position while holding it.
func (b *Bot) kpiTick() bool {
	b.mu.RLock()
	if b.token == nil || b.position == nil || b.kpi == nil || b.position.IsClosed() {
		b.mu.RUnlock()
		return false
	}
	if b.kpi.TokenAddress != b.token.TokenAddress {
		// a stale snapshot from a previous session, skip this tick
		b.mu.RUnlock()
		return false
	}
	mint := b.token.TokenAddress
	kpi := *b.kpi
	b.mu.RUnlock()

	b.logger.Info("📊 " + formatKPILine(mint, kpi))
	b.publish(events.KPIUpdatedEvent{
		BaseEvent: base(events.KPIUpdated),
		Snapshot:  kpi,
	})
	return true
}

// formatKPILine collapses the snapshot into one log line: mint, profit,
// distance from the post-buy high, score and trade count.
func formatKPILine(mint string, kpi domain.KPISnapshot) string {
	profit := "profit n/a"
	if kpi.ProfitPercentOk {
		profit = fmt.Sprintf("profit %+.1f%%", kpi.ProfitPercent)
	}
	return fmt.Sprintf("%s | %s | ath %.0f%% | score %.1f | trades %d",
		shortMint(mint), profit, kpi.PercentOfATH, kpi.FinalScore, kpi.TradesObserved)
}

func shortMint(mint string) string {
	if len(mint) <= 8 {
		return mint
	}
	return mint[:4] + ".." + mint[len(mint)-4:]
}
