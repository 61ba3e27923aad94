// ==============================
// File: internal/export/export.go
// ==============================
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"pumptrader/internal/domain"
)

// Format is the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures the export behavior.
type Options struct {
	Format      Format
	TokenFilter string // keep only this mint, empty keeps all
	OnlyClosed  bool   // skip positions without a recorded sell
	OutputDir   string
}

// Summary carries aggregate statistics alongside a JSON export.
type Summary struct {
	Positions  int       `json:"positions"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	TotalSol   float64   `json:"total_sol_spent"`
	TotalPnL   float64   `json:"total_pnl_sol"`
	FirstEntry time.Time `json:"first_entry,omitempty"`
	LastEntry  time.Time `json:"last_entry,omitempty"`
}

// HistoryExporter writes archived positions to disk.
type HistoryExporter struct {
	logger *zap.Logger
}

func NewHistoryExporter(logger *zap.Logger) *HistoryExporter {
	return &HistoryExporter{logger: logger.Named("export")}
}

// Export writes the position history and returns the output path.
func (e *HistoryExporter) Export(positions []*domain.Position, options Options) (string, error) {
	filtered := e.filter(positions, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no positions match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	filename := fmt.Sprintf("positions_%s.%s", time.Now().Format("2006-01-02_15-04-05"), options.Format)
	outputPath := filepath.Join(options.OutputDir, filename)
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = e.writeCSV(filtered, outputPath)
	case FormatJSON:
		err = e.writeJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Position history exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func (e *HistoryExporter) filter(positions []*domain.Position, options Options) []*domain.Position {
	var filtered []*domain.Position
	for _, pos := range positions {
		if options.TokenFilter != "" && pos.TokenAddress != options.TokenFilter {
			continue
		}
		if options.OnlyClosed && !pos.IsClosed() {
			continue
		}
		filtered = append(filtered, pos)
	}
	return filtered
}

func csvHeaders() []string {
	return []string{
		"token_address", "opened_at", "buy_price", "sol_spent",
		"token_amount", "sell_price", "sol_received", "pnl_sol",
	}
}

func csvRow(pos *domain.Position) []string {
	row := []string{
		pos.TokenAddress,
		pos.Timestamp.Format(time.RFC3339),
		strconv.FormatFloat(pos.BuyPrice, 'g', -1, 64),
		strconv.FormatFloat(pos.BuySolCost, 'f', 6, 64),
		strconv.FormatFloat(pos.TokenAmount, 'f', 2, 64),
		"", "", "",
	}
	if pos.SellPrice != nil {
		row[5] = strconv.FormatFloat(*pos.SellPrice, 'g', -1, 64)
	}
	if pos.SellSolReward != nil {
		row[6] = strconv.FormatFloat(*pos.SellSolReward, 'f', 6, 64)
	}
	if pos.Profit != nil {
		row[7] = strconv.FormatFloat(*pos.Profit, 'f', 6, 64)
	}
	return row
}

func (e *HistoryExporter) writeCSV(positions []*domain.Position, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, pos := range positions {
		if err := writer.Write(csvRow(pos)); err != nil {
			return fmt.Errorf("failed to write position: %w", err)
		}
	}
	return nil
}

func (e *HistoryExporter) writeJSON(positions []*domain.Position, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	exportData := struct {
		ExportTime time.Time          `json:"export_time"`
		Count      int                `json:"count"`
		Positions  []*domain.Position `json:"positions"`
		Summary    Summary            `json:"summary"`
	}{
		ExportTime: time.Now(),
		Count:      len(positions),
		Positions:  positions,
		Summary:    summarize(positions),
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func summarize(positions []*domain.Position) Summary {
	summary := Summary{Positions: len(positions)}
	if len(positions) == 0 {
		return summary
	}
	summary.FirstEntry = positions[0].Timestamp
	summary.LastEntry = positions[len(positions)-1].Timestamp

	for _, pos := range positions {
		summary.TotalSol += pos.BuySolCost
		if pos.Profit == nil {
			continue
		}
		summary.TotalPnL += *pos.Profit
		if *pos.Profit > 0 {
			summary.Wins++
		} else if *pos.Profit < 0 {
			summary.Losses++
		}
	}
	return summary
}
