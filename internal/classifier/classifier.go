// Package classifier builds feature vectors and outcome labels from candles
// and scores bars with a trained direction model.
package classifier

// Label is the predicted direction of the next move.
type Label string

const (
	LabelUp   Label = "UP"
	LabelDown Label = "DOWN"
)

// Prediction is a classifier's output for one bar. Scores may omit labels the
// model does not score.
type Prediction struct {
	Label  Label
	Scores map[Label]float64
}

// Score returns the score for label and whether the model produced one.
func (p Prediction) Score(label Label) (float64, bool) {
	s, ok := p.Scores[label]

	return s, ok
}

// Classifier scores a feature vector.
type Classifier interface {
	Predict(features []float64) (Prediction, error)
}
