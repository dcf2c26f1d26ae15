package calibration

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/fileutil"
	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// Load reads a reliability table written by Write. A missing, unreadable or
// empty file yields None; the caller then uses raw probabilities.
func Load(path string, log *logger.Logger) optional.Option[Table] {
	if path == "" {
		return optional.None[Table]()
	}

	table, err := read(path)
	if err != nil {
		log.Info("Calibration table unavailable, using raw probabilities", zap.String("path", path), zap.Error(err))

		return optional.None[Table]()
	}

	if len(table) == 0 {
		log.Info("Calibration table is empty, using raw probabilities", zap.String("path", path))

		return optional.None[Table]()
	}

	log.Debug("Loaded calibration table", zap.String("path", path), zap.Int("bins", len(table)))

	return optional.Some(table)
}

func read(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCalibrationIOFailed, "failed to open calibration table", err)
	}
	defer f.Close()

	var table Table

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "lo") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}

		var values [3]float64
		for i := range values {
			values[i], err = strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeCalibrationIOFailed, err, "invalid calibration row %q", line)
			}
		}

		table = append(table, Bin{Lo: values[0], Hi: values[1], WinRate: values[2]})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCalibrationIOFailed, "failed to read calibration table", err)
	}

	return table, nil
}

// Write stores table as CSV with a "lo,hi,winRate" header. Empty bins are
// written as NaN.
func Write(path string, table Table) error {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"lo", "hi", "winRate"}); err != nil {
		return errors.Wrap(errors.ErrCodeCalibrationIOFailed, "failed to write calibration header", err)
	}

	for _, b := range table {
		rate := "NaN"
		if !math.IsNaN(b.WinRate) {
			rate = strconv.FormatFloat(b.WinRate, 'f', 6, 64)
		}

		row := []string{
			strconv.FormatFloat(b.Lo, 'f', 2, 64),
			strconv.FormatFloat(b.Hi, 'f', 2, 64),
			rate,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(errors.ErrCodeCalibrationIOFailed, "failed to write calibration row", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeCalibrationIOFailed, "failed to flush calibration table", err)
	}

	if err := fileutil.WriteAtomic(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeCalibrationIOFailed, "failed to write calibration table", err)
	}

	return nil
}
