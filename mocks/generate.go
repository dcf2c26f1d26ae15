package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/mattxander12/forex-trader/pkg/marketdata/provider Provider,Downloader
//go:generate mockgen -destination=./mock_classifier.go -package=mocks github.com/mattxander12/forex-trader/internal/classifier Classifier
//go:generate mockgen -destination=./mock_emitter.go -package=mocks github.com/mattxander12/forex-trader/internal/backtest/engine Emitter
