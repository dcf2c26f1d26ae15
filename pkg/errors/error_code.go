package errors

// ErrorCode identifies the kind of failure.
type ErrorCode int

const (
	// General (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation and configuration (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidMAKind        ErrorCode = 102
	ErrCodeInvalidGranularity   ErrorCode = 103
	ErrCodeInvalidSession       ErrorCode = 104
	ErrCodeInvalidRiskMode      ErrorCode = 105
	ErrCodeConfigNotFound       ErrorCode = 106
	ErrCodeInvalidRequest       ErrorCode = 107

	// Candle sources (200-299)
	ErrCodeCandleSourceFailed  ErrorCode = 200
	ErrCodeInsufficientCandles ErrorCode = 201
	ErrCodeDataNotFound        ErrorCode = 202
	ErrCodeQueryFailed         ErrorCode = 203
	ErrCodeUnsupportedProvider ErrorCode = 204
	ErrCodeCandleWriteFailed   ErrorCode = 205
	ErrCodeCandleParseFailed   ErrorCode = 206

	// Indicators (300-399)
	ErrCodeInvalidPeriod ErrorCode = 300

	// Classifier and model files (400-499)
	ErrCodeClassifierMissing   ErrorCode = 400
	ErrCodePredictionFailed    ErrorCode = 401
	ErrCodeModelLoadFailed     ErrorCode = 402
	ErrCodeModelSaveFailed     ErrorCode = 403
	ErrCodeVersionMismatch     ErrorCode = 404
	ErrCodeSignatureMismatch   ErrorCode = 405
	ErrCodeCalibrationIOFailed ErrorCode = 406

	// Backtest and training runs (500-599)
	ErrCodeNoUsableBars   ErrorCode = 500
	ErrCodeRunFailed      ErrorCode = 501
	ErrCodeNoLabeledBars  ErrorCode = 502
	ErrCodeResultWriteErr ErrorCode = 503

	// Jobs and the event hub (600-699)
	ErrCodeJobNotFound      ErrorCode = 600
	ErrCodeHubClosed        ErrorCode = 601
	ErrCodeSubscriberExists ErrorCode = 602
	ErrCodeResultStoreError ErrorCode = 603

	// Transport (700-799)
	ErrCodeStreamUnsupported ErrorCode = 700
	ErrCodeUpgradeFailed     ErrorCode = 701
)
