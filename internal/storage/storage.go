// ==============================
// File: internal/storage/storage.go
// ==============================
package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pumptrader/internal/domain"
	"pumptrader/internal/pumpfun"
)

// Recorder is the fire-and-forget persistence surface. Failures are logged
// and swallowed; the trading flow never waits on the database.
type Recorder interface {
	RecordToken(token *domain.SelectedToken)
	RecordTrade(mint string, trade *pumpfun.TradeEvent)
	RecordPositionOpened(pos *domain.Position, signature string)
	RecordPositionClosed(pos *domain.Position, signature string)
}

// Store persists trading history to a local sqlite database.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to the sqlite file and migrates the schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&TokenRecord{}, &TradeRecord{}, &PositionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db, logger: log.Named("storage")}, nil
}

func (s *Store) RecordToken(token *domain.SelectedToken) {
	record := TokenRecord{
		TokenAddress:   token.TokenAddress,
		CreatorAddress: token.Creation.CreatorAddress.String(),
		Name:           token.Creation.Name,
		Symbol:         token.Creation.Symbol,
		URI:            token.Creation.URI,
		SelectedAt:     token.SelectedAt.Unix(),
	}
	go s.write("token", &record)
}

func (s *Store) RecordTrade(mint string, trade *pumpfun.TradeEvent) {
	price, ok := pumpfun.TradePrice(trade)
	record := TradeRecord{
		TokenAddress:  mint,
		TraderAddress: trade.TraderAddress.String(),
		Direction:     string(trade.Direction),
		SolAmount:     trade.SolAmount,
		TokenAmount:   trade.TokenAmount,
		Price:         price,
		PriceKnown:    ok,
		Timestamp:     trade.Timestamp.Unix(),
	}
	go s.write("trade", &record)
}

func (s *Store) RecordPositionOpened(pos *domain.Position, signature string) {
	record := PositionRecord{
		TokenAddress: pos.TokenAddress,
		BuyPrice:     pos.BuyPrice,
		BuySolCost:   pos.BuySolCost,
		TokenAmount:  pos.TokenAmount,
		BuySig:       signature,
		OpenedAt:     pos.Timestamp.Unix(),
	}
	go s.write("position", &record)
}

func (s *Store) RecordPositionClosed(pos *domain.Position, signature string) {
	if !pos.IsClosed() {
		s.logger.Warn("RecordPositionClosed called on an open position",
			zap.String("token", pos.TokenAddress))
		return
	}
	// Sell-side pointers stay nil when the proceeds could not be measured;
	// those columns keep their zero values and only the close itself is
	// recorded.
	updates := map[string]interface{}{
		"closed":    true,
		"sell_sig":  signature,
		"closed_at": time.Now().Unix(),
	}
	if pos.SellPrice != nil {
		updates["sell_price"] = *pos.SellPrice
	}
	if pos.SellSolReward != nil {
		updates["sol_received"] = *pos.SellSolReward
	}
	if pos.Profit != nil {
		updates["profit"] = *pos.Profit
	}
	token := pos.TokenAddress
	go func() {
		err := s.db.Model(&PositionRecord{}).
			Where("token_address = ? AND closed = ?", token, false).
			Updates(updates).Error
		if err != nil {
			s.logger.Warn("Position close write failed",
				zap.String("token", token), zap.Error(err))
		}
	}()
}

func (s *Store) write(kind string, record interface{}) {
	if err := s.db.Create(record).Error; err != nil {
		s.logger.Warn("Record write failed",
			zap.String("kind", kind), zap.Error(err))
	}
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
