package writer

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// DuckDBWriter buffers candles in an in-memory DuckDB table and exports them
// to a parquet file on Finalize. Rows are deduplicated by time on export.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
}

// NewDuckDBWriter creates a writer that exports to the parquet file outputPath.
func NewDuckDBWriter(outputPath string) CandleWriter {
	return &DuckDBWriter{
		db:         nil,
		tx:         nil,
		stmt:       nil,
		outputPath: outputPath,
	}
}

// Initialize opens the database, creates the candles table and prepares the
// insert statement inside a transaction.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to open DuckDB connection", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			instrument TEXT,
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to create table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to begin transaction", err)
	}

	w.stmt, err = w.tx.Prepare(`
		INSERT INTO candles (instrument, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to prepare statement", err)
	}

	return nil
}

// Write inserts one candle.
func (w *DuckDBWriter) Write(instrument string, candle types.Candle) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeCandleWriteFailed, "writer not initialized or statement is nil")
	}

	_, err := w.stmt.Exec(
		instrument,
		candle.Time.UTC(),
		candle.Open,
		candle.High,
		candle.Low,
		candle.Close,
		candle.Volume,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to insert candle", err)
	}

	return nil
}

// Finalize commits the transaction and exports the table to parquet, ordered
// by time with one row per instrument and time.
func (w *DuckDBWriter) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeCandleWriteFailed, "writer not initialized or transaction is nil")
	}

	if err := w.stmt.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to close statement", err)
	}

	w.stmt = nil

	if err := w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeCandleWriteFailed, "failed to commit transaction", err)
	}

	w.tx = nil

	query := fmt.Sprintf(`
		COPY (
			SELECT instrument, time, arg_max(open, rowid) AS open, arg_max(high, rowid) AS high,
				arg_max(low, rowid) AS low, arg_max(close, rowid) AS close, arg_max(volume, rowid) AS volume
			FROM candles
			GROUP BY instrument, time
			ORDER BY time
		) TO '%s' (FORMAT PARQUET)
	`, escapeLiteral(w.outputPath))

	if _, err := w.db.Exec(query); err != nil {
		return "", errors.Wrapf(errors.ErrCodeCandleWriteFailed, err, "failed to export to parquet %s", w.outputPath)
	}

	return w.outputPath, nil
}

// Close releases the statement, transaction and connection.
func (w *DuckDBWriter) Close() error {
	var closeErrors []string

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("close statement: %v", err))
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("rollback: %v", err))
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("close db: %v", err))
		}

		w.db = nil
	}

	if len(closeErrors) > 0 {
		return errors.Newf(errors.ErrCodeCandleWriteFailed, "errors occurred during close: %s", strings.Join(closeErrors, "; "))
	}

	return nil
}

// GetOutputPath returns the parquet file path.
func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
