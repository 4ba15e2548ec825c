package ml

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Save writes the fitted ensemble as a JSON artifact named after its
// version. The artifact carries everything needed to score: specialist
// weights and scalers, meta-learner, calibrator, class weight, and the
// training-metric snapshot.
func (e *Ensemble) Save(dir string) (string, error) {
	if !e.Fitted {
		return "", errors.ErrModelNotFitted
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create model dir")
	}

	path := filepath.Join(dir, e.Version+".json")
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal ensemble")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write ensemble artifact")
	}
	return path, nil
}

// LoadEnsemble reads a saved artifact.
func LoadEnsemble(path string) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read ensemble artifact")
	}
	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "unmarshal ensemble artifact")
	}
	if !e.Fitted {
		return nil, errors.ErrModelNotFitted
	}
	return &e, nil
}

// LoadVersion resolves a version id inside the model directory.
func LoadVersion(dir, versionID string) (*Ensemble, error) {
	return LoadEnsemble(filepath.Join(dir, versionID+".json"))
}
