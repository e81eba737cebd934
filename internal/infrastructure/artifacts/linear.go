package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"waste_service/internal/domain/model"
)

// LinearModel predicts intercept + coefficients·x.
type LinearModel struct {
	intercept    float64
	coefficients []float64
}

type linearFile struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// NewLinearModel returns a linear regressor over len(coefficients) features.
func NewLinearModel(intercept float64, coefficients []float64) (*LinearModel, error) {
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("%w: linear model has no coefficients", model.ErrArtifact)
	}
	return &LinearModel{intercept: intercept, coefficients: slices.Clone(coefficients)}, nil
}

// DecodeLinearModel reads `{"intercept": b, "coefficients": [...]}`.
func DecodeLinearModel(r io.Reader) (*LinearModel, error) {
	var f linearFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode linear model: %v", model.ErrArtifact, err)
	}
	return NewLinearModel(f.Intercept, f.Coefficients)
}

func (m *LinearModel) Predict(_ context.Context, values []float64) (float64, error) {
	if len(values) != len(m.coefficients) {
		return 0, fmt.Errorf("%w: linear model expects %d features, got %d", model.ErrArtifact, len(m.coefficients), len(values))
	}
	y := m.intercept
	for i, w := range m.coefficients {
		y += w * values[i]
	}
	return y, nil
}

// FeatureCount is the vector length the model accepts.
func (m *LinearModel) FeatureCount() int { return len(m.coefficients) }
