package classifier

import (
	"math"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// TrainOptions tunes batch gradient descent.
type TrainOptions struct {
	Epochs       int     `yaml:"epochs" json:"epochs"`
	LearningRate float64 `yaml:"learningRate" json:"learningRate"`
	L2           float64 `yaml:"l2" json:"l2"`
}

// DefaultTrainOptions returns the options used when none are configured.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Epochs: 300, LearningRate: 0.1, L2: 1e-4}
}

// Logistic is a binary logistic regression over standardized features. It
// predicts the probability of UP.
type Logistic struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
}

// TrainLogistic fits a model to examples.
func TrainLogistic(examples []Example, opts TrainOptions) (*Logistic, error) {
	if len(examples) == 0 {
		return nil, errors.New(errors.ErrCodeNoLabeledBars, "no labeled examples to train on")
	}

	if opts.Epochs <= 0 {
		opts.Epochs = DefaultTrainOptions().Epochs
	}

	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}

	dim := len(examples[0].Features)
	for _, ex := range examples {
		if len(ex.Features) != dim {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter,
				"example %d has %d features, expected %d", ex.Index, len(ex.Features), dim)
		}
	}

	m := &Logistic{
		Weights: make([]float64, dim),
		Bias:    0,
		Mean:    make([]float64, dim),
		Std:     make([]float64, dim),
	}
	m.fitScaler(examples)

	xs := make([][]float64, len(examples))
	ys := make([]float64, len(examples))
	for i, ex := range examples {
		xs[i] = m.standardize(ex.Features)
		if ex.Label == LabelUp {
			ys[i] = 1
		}
	}

	n := float64(len(xs))
	grad := make([]float64, dim)

	for range opts.Epochs {
		clear(grad)
		gradBias := 0.0

		for i, x := range xs {
			diff := m.linear(x) - ys[i]
			for j, v := range x {
				grad[j] += diff * v
			}
			gradBias += diff
		}

		for j := range m.Weights {
			m.Weights[j] -= opts.LearningRate * (grad[j]/n + opts.L2*m.Weights[j])
		}
		m.Bias -= opts.LearningRate * gradBias / n
	}

	return m, nil
}

func (m *Logistic) fitScaler(examples []Example) {
	n := float64(len(examples))

	for _, ex := range examples {
		for j, v := range ex.Features {
			m.Mean[j] += v / n
		}
	}

	for _, ex := range examples {
		for j, v := range ex.Features {
			d := v - m.Mean[j]
			m.Std[j] += d * d / n
		}
	}

	for j := range m.Std {
		m.Std[j] = math.Sqrt(m.Std[j])
		if m.Std[j] < epsilon {
			m.Std[j] = 1
		}
	}
}

func (m *Logistic) standardize(features []float64) []float64 {
	x := make([]float64, len(features))
	for j, v := range features {
		x[j] = (v - m.Mean[j]) / m.Std[j]
	}

	return x
}

// linear returns sigmoid(w.x + b) for already standardized x.
func (m *Logistic) linear(x []float64) float64 {
	z := m.Bias
	for j, v := range x {
		z += m.Weights[j] * v
	}

	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}

	e := math.Exp(z)

	return e / (1 + e)
}

// Predict scores features. Both labels are always scored.
func (m *Logistic) Predict(features []float64) (Prediction, error) {
	if len(features) != len(m.Weights) {
		return Prediction{}, errors.Newf(errors.ErrCodePredictionFailed,
			"got %d features, model expects %d", len(features), len(m.Weights))
	}

	pUp := m.linear(m.standardize(features))
	label := LabelUp
	if pUp < 0.5 {
		label = LabelDown
	}

	return Prediction{
		Label:  label,
		Scores: map[Label]float64{LabelUp: pUp, LabelDown: 1 - pUp},
	}, nil
}

// Accuracy is the share of examples whose predicted label matches.
func Accuracy(c Classifier, examples []Example) (float64, error) {
	if len(examples) == 0 {
		return math.NaN(), nil
	}

	correct := 0
	for _, ex := range examples {
		pred, err := c.Predict(ex.Features)
		if err != nil {
			return 0, err
		}

		if pred.Label == ex.Label {
			correct++
		}
	}

	return float64(correct) / float64(len(examples)), nil
}
