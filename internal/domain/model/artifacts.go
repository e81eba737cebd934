package model

import (
	"context"
	"errors"
)

// ErrArtifact marks a model, encoder, scaler or schema that could not be loaded or invoked.
var ErrArtifact = errors.New("artifact error")

// ErrUnknownZone is returned by a ZoneEncoder for names outside its catalog.
var ErrUnknownZone = errors.New("unknown zone")

// ZoneEncoder maps zone names to the integer codes used in training.
type ZoneEncoder interface {
	Encode(name string) (int, error)
	// Classes returns the catalog in code order.
	Classes() []string
}

// FeatureScaler applies the learned per-feature affine transform.
type FeatureScaler interface {
	Scale(values []float64) ([]float64, error)
}

// FeatureNamer is implemented by scalers that remember their training columns.
type FeatureNamer interface {
	FeatureNames() []string
}

// Regressor produces one raw prediction from a scaled vector.
type Regressor interface {
	Predict(ctx context.Context, values []float64) (float64, error)
}

// ArtifactBundle is the read-only set of artifacts shared by all predictions.
type ArtifactBundle struct {
	Version   string
	Encoder   ZoneEncoder
	Scaler    FeatureScaler
	Regressor Regressor
	Schema    []string
}

// Validate reports a bundle with missing components.
func (b *ArtifactBundle) Validate() error {
	switch {
	case b == nil:
		return errors.Join(ErrArtifact, errors.New("bundle is nil"))
	case b.Encoder == nil:
		return errors.Join(ErrArtifact, errors.New("zone encoder is missing"))
	case b.Scaler == nil:
		return errors.Join(ErrArtifact, errors.New("scaler is missing"))
	case b.Regressor == nil:
		return errors.Join(ErrArtifact, errors.New("regressor is missing"))
	case len(b.Schema) == 0:
		return errors.Join(ErrArtifact, errors.New("schema is empty"))
	}
	return nil
}
