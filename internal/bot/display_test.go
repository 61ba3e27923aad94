// ==============================
// File: internal/bot/display_test.go
// ==============================
package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"pumptrader/internal/domain"
	"pumptrader/internal/pumpfun"
)

func kpiTestBot(t *testing.T) *Bot {
	return &Bot{logger: zaptest.NewLogger(t)}
}

func kpiTestSession(mint string, now time.Time) (*domain.SelectedToken, *domain.Position, *domain.KPISnapshot) {
	token := domain.NewSelectedToken(pumpfun.CreationEvent{
		TokenAddress: botTestMint,
		CreatedAt:    now,
	}, now)
	pos := domain.NewPosition(mint, 1.0, 0.8, 0.2, 3e-8, 6_000_000, now)
	kpi := &domain.KPISnapshot{
		TokenAddress:    mint,
		BuyPrice:        3e-8,
		CurrentPrice:    3.3e-8,
		CurrentPriceOk:  true,
		ProfitPercent:   10,
		ProfitPercentOk: true,
		PercentOfATH:    95,
		FinalScore:      22.5,
		TradesObserved:  7,
	}
	return token, pos, kpi
}

func TestKPITickEmitsForOpenPosition(t *testing.T) {
	b := kpiTestBot(t)
	b.token, b.position, b.kpi = kpiTestSession(botTestMint.String(), time.Now())

	assert.True(t, b.kpiTick())
}

func TestKPITickSkipsMissingOrClosedSession(t *testing.T) {
	now := time.Now()

	b := kpiTestBot(t)
	assert.False(t, b.kpiTick(), "no session at all")

	b.token, b.position, b.kpi = kpiTestSession(botTestMint.String(), now)
	b.kpi = nil
	assert.False(t, b.kpiTick(), "no snapshot yet")

	b.token, b.position, b.kpi = kpiTestSession(botTestMint.String(), now)
	b.position.Close(4e-8, 0.24)
	assert.False(t, b.kpiTick(), "closed position")

	// snapshot left over from a previous session must not be reported
	// against the new token
	b.token, b.position, b.kpi = kpiTestSession(botTestMint.String(), now)
	b.kpi.TokenAddress = botOtherMint.String()
	assert.False(t, b.kpiTick(), "stale snapshot identity")
}

func TestFormatKPILine(t *testing.T) {
	kpi := domain.KPISnapshot{
		ProfitPercent:   -12.3,
		ProfitPercentOk: true,
		PercentOfATH:    80,
		FinalScore:      41.7,
		TradesObserved:  12,
	}
	line := formatKPILine(botTestMint.String(), kpi)
	assert.Contains(t, line, "profit -12.3%")
	assert.Contains(t, line, "ath 80%")
	assert.Contains(t, line, "trades 12")

	kpi.ProfitPercentOk = false
	assert.Contains(t, formatKPILine(botTestMint.String(), kpi), "profit n/a")
}

func TestShortMint(t *testing.T) {
	assert.Equal(t, "abcd", shortMint("abcd"))
	assert.Equal(t, "So11..1112", shortMint("So11111111111111111111111111111111111111112"))
}
