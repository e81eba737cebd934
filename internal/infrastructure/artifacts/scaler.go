package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"waste_service/internal/domain/model"
)

// StandardScaler applies (x - mean) / scale per feature.
type StandardScaler struct {
	mean  []float64
	scale []float64
	names []string
}

type scalerFile struct {
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	FeatureNames []string  `json:"feature_names,omitempty"`
}

// NewStandardScaler validates the learned parameters. A zero scale is
// stored as 1, matching how the scaler was fitted on constant columns.
func NewStandardScaler(mean, scale []float64, names []string) (*StandardScaler, error) {
	if len(mean) == 0 {
		return nil, fmt.Errorf("%w: scaler has no features", model.ErrArtifact)
	}
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("%w: scaler has %d means and %d scales", model.ErrArtifact, len(mean), len(scale))
	}
	if len(names) > 0 && len(names) != len(mean) {
		return nil, fmt.Errorf("%w: scaler has %d feature names for %d features", model.ErrArtifact, len(names), len(mean))
	}
	s := make([]float64, len(scale))
	for i, v := range scale {
		if v == 0 {
			v = 1
		}
		s[i] = v
	}
	return &StandardScaler{mean: slices.Clone(mean), scale: s, names: slices.Clone(names)}, nil
}

// DecodeStandardScaler reads `{"mean": [...], "scale": [...], "feature_names": [...]}`.
func DecodeStandardScaler(r io.Reader) (*StandardScaler, error) {
	var f scalerFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode scaler: %v", model.ErrArtifact, err)
	}
	return NewStandardScaler(f.Mean, f.Scale, f.FeatureNames)
}

func (s *StandardScaler) Scale(values []float64) ([]float64, error) {
	if len(values) != len(s.mean) {
		return nil, fmt.Errorf("%w: scaler expects %d features, got %d", model.ErrArtifact, len(s.mean), len(values))
	}
	out := make([]float64, len(values))
	for i, x := range values {
		out[i] = (x - s.mean[i]) / s.scale[i]
	}
	return out, nil
}

// FeatureNames returns the columns the scaler was fitted on, if recorded.
func (s *StandardScaler) FeatureNames() []string { return slices.Clone(s.names) }

// FeatureCount is the vector length the scaler accepts.
func (s *StandardScaler) FeatureCount() int { return len(s.mean) }
