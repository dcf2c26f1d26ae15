package provider

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
	"github.com/mattxander12/forex-trader/pkg/marketdata/writer"
)

// ParquetProvider reads candles from parquet files named by writer.FileName
// under a data directory.
type ParquetProvider struct {
	dataDir string
	db      *sql.DB
	sq      squirrel.StatementBuilderType
	logger  *logger.Logger
}

// NewParquetProvider opens an in-memory DuckDB used to query files in dataDir.
func NewParquetProvider(dataDir string, log *logger.Logger) (*ParquetProvider, error) {
	if dataDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "parquet provider requires a data directory")
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCandleSourceFailed, "failed to open DuckDB", err)
	}

	return &ParquetProvider{
		dataDir: dataDir,
		db:      db,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger:  log,
	}, nil
}

// Path returns the parquet file backing instrument and granularity.
func (p *ParquetProvider) Path(instrument string, granularity types.Granularity) string {
	return filepath.Join(p.dataDir, writer.FileName(instrument, granularity))
}

// Load implements Provider.
func (p *ParquetProvider) Load(ctx context.Context, instrument string, granularity types.Granularity, count int) ([]types.Candle, error) {
	path := p.Path(instrument, granularity)
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "no candle file for %s %s", instrument, granularity)
	}

	source := fmt.Sprintf("read_parquet('%s')", strings.ReplaceAll(path, "'", "''"))
	query := p.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From(source).
		Where(squirrel.Eq{"instrument": instrument}).
		OrderBy("time DESC")

	if count > 0 {
		query = query.Limit(uint64(count))
	}

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build candle query", err)
	}

	p.logger.Debug("Loading candles from parquet",
		zap.String("path", path),
		zap.String("instrument", instrument),
		zap.Int("count", count),
	)

	rows, err := p.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query candles", err)
	}
	defer rows.Close()

	candles := make([]types.Candle, 0, max(count, 0))

	for rows.Next() {
		var (
			c  types.Candle
			ts time.Time
		)

		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCandleParseFailed, "failed to scan candle", err)
		}

		c.Time = ts.UTC()
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read candles", err)
	}

	slices.Reverse(candles)

	return candles, nil
}

// Close releases the DuckDB connection.
func (p *ParquetProvider) Close() error {
	return p.db.Close()
}
