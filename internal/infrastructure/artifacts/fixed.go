package artifacts

import (
	"context"
	"slices"

	"waste_service/internal/domain/model"
)

// Fixed-value artifacts for tests and local runs without trained models.

// StaticEncoder encodes from a fixed table; codes follow the order of Zones.
type StaticEncoder struct {
	Zones []string
	Err   error
}

func (e StaticEncoder) Encode(name string) (int, error) {
	if e.Err != nil {
		return 0, e.Err
	}
	if i := slices.Index(e.Zones, name); i >= 0 {
		return i, nil
	}
	return 0, model.ErrUnknownZone
}

func (e StaticEncoder) Classes() []string { return slices.Clone(e.Zones) }

// IdentityScaler returns its input unchanged, or Err.
type IdentityScaler struct {
	Err error
}

func (s IdentityScaler) Scale(values []float64) ([]float64, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return slices.Clone(values), nil
}

// ConstantRegressor always predicts Value, or fails with Err.
type ConstantRegressor struct {
	Value float64
	Err   error
}

func (r ConstantRegressor) Predict(context.Context, []float64) (float64, error) {
	return r.Value, r.Err
}
