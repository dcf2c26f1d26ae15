package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/mattxander12/forex-trader/internal/fileutil"
	"github.com/mattxander12/forex-trader/internal/version"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// ModelFile is the on-disk form of a trained model.
type ModelFile struct {
	Format      string    `json:"format"`
	Signature   string    `json:"signature"`
	Instrument  string    `json:"instrument"`
	Granularity string    `json:"granularity"`
	TrainedAt   time.Time `json:"trainedAt"`
	Accuracy    float64   `json:"accuracy"`
	Model       *Logistic `json:"model"`
}

// SaveModel writes file to path as JSON, creating parent directories. An empty
// Format is stamped with version.ModelFormat.
func SaveModel(path string, file ModelFile) error {
	if file.Model == nil {
		return errors.New(errors.ErrCodeModelSaveFailed, "model is nil")
	}

	if file.Format == "" {
		file.Format = version.ModelFormat
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeModelSaveFailed, "failed to encode model", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeModelSaveFailed, "failed to create model directory", err)
	}

	if err := fileutil.WriteAtomic(path, data, 0o600); err != nil {
		return errors.Wrapf(errors.ErrCodeModelSaveFailed, err, "failed to write model to %s", path)
	}

	return nil
}

// LoadModel reads a model file and checks that it was written in a compatible
// format for the given feature signature.
func LoadModel(path, signature string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeModelLoadFailed, err, "failed to read model %s", path)
	}

	var file ModelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeModelLoadFailed, err, "failed to decode model %s", path)
	}

	if err := version.CheckModelCompatibility(version.ModelFormat, file.Format); err != nil {
		return nil, err
	}

	if file.Signature != signature {
		return nil, errors.Newf(errors.ErrCodeSignatureMismatch,
			"model signature %q does not match %q", file.Signature, signature)
	}

	if file.Model == nil || len(file.Model.Weights) != len(FeatureNames) {
		return nil, errors.Newf(errors.ErrCodeModelLoadFailed, "model %s has no usable weights", path)
	}

	return &file, nil
}
