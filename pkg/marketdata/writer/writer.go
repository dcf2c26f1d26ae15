package writer

import (
	"fmt"

	"github.com/mattxander12/forex-trader/internal/types"
)

// CandleWriter persists candles to a destination.
type CandleWriter interface {
	// Initialize sets up the writer, creating tables or files.
	Initialize() error
	// Write persists one candle of instrument.
	Write(instrument string, candle types.Candle) error
	// Finalize commits pending writes and returns the output path.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output path.
	GetOutputPath() string
}

// FileName is the parquet file name used for an instrument and granularity,
// e.g. EUR_USD_M5.parquet.
func FileName(instrument string, granularity types.Granularity) string {
	return fmt.Sprintf("%s_%s.parquet", instrument, granularity)
}
