package provider

import (
	"errors"

	"github.com/mattxander12/forex-trader/internal/types"
)

// mockWriter records candles written to it.
type mockWriter struct {
	initializeErr  error
	writeErr       error
	finalizeErr    error
	outputPath     string
	initialized    bool
	written        []types.Candle
	instruments    []string
	finalizeCalled int
}

func (m *mockWriter) Initialize() error {
	if m.initializeErr != nil {
		return m.initializeErr
	}

	m.initialized = true

	return nil
}

func (m *mockWriter) Write(instrument string, candle types.Candle) error {
	if m.writeErr != nil {
		return m.writeErr
	}

	m.instruments = append(m.instruments, instrument)
	m.written = append(m.written, candle)

	return nil
}

func (m *mockWriter) Finalize() (string, error) {
	m.finalizeCalled++
	if m.finalizeErr != nil {
		return "", m.finalizeErr
	}

	return m.outputPath, nil
}

func (m *mockWriter) Close() error {
	return nil
}

func (m *mockWriter) GetOutputPath() string {
	return m.outputPath
}

var errBoom = errors.New("boom")
