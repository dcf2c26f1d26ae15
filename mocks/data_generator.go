package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/mattxander12/forex-trader/internal/types"
)

// DataGenerator produces deterministic candle series for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a generator with a fixed seed.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures a generated series.
type GeneratorConfig struct {
	StartTime time.Time
	// Granularity sets the spacing between candles.
	Granularity  types.Granularity
	Count        int
	InitialPrice float64
	// Volatility is the per-bar standard deviation of returns.
	Volatility float64
	// Trend is the total drift spread across the series.
	Trend float64
	// Cycle adds a sine wave with this period in bars; 0 disables it.
	Cycle          int
	CycleAmplitude float64
	VolumeBase     float64
}

// DefaultConfig returns an M5 EUR_USD-like series configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Granularity:    types.GranularityM5,
		Count:          1000,
		InitialPrice:   1.1,
		Volatility:     0.0008,
		Trend:          0,
		Cycle:          0,
		CycleAmplitude: 0,
		VolumeBase:     1000,
	}
}

// Generate builds candles from a geometric random walk.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Candle {
	candles := make([]types.Candle, config.Count)
	price := config.InitialPrice
	ts := config.StartTime
	step := config.Granularity.Duration()

	for i := range config.Count {
		open := price

		// Box-Muller
		u1 := math.Max(g.rng.Float64(), 1e-12)
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		change := config.Volatility*z + config.Trend/float64(max(config.Count, 1))
		if config.Cycle > 0 {
			phase := 2 * math.Pi / float64(config.Cycle)
			change += config.CycleAmplitude * (math.Sin(phase*float64(i+1)) - math.Sin(phase*float64(i)))
		}

		closePrice := open * (1 + change)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) + math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		low := math.Min(open, closePrice) - math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (0.7 + g.rng.Float64()*0.6)

		candles[i] = types.Candle{
			Time:   ts,
			Open:   roundToDecimals(open, 5),
			High:   roundToDecimals(high, 5),
			Low:    roundToDecimals(low, 5),
			Close:  roundToDecimals(closePrice, 5),
			Volume: math.Round(volume),
		}

		price = closePrice
		ts = ts.Add(step)
	}

	return candles
}

// GenerateCandles returns count default candles from seed 42.
func GenerateCandles(count int) []types.Candle {
	config := DefaultConfig()
	config.Count = count

	return NewDataGenerator(42).Generate(config)
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
