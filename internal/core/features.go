package core

import (
	"fmt"

	"waste_service/internal/domain/model"
)

var baseFeatures = []string{
	model.FeatureTotalHouseholds,
	model.FeatureCoveredHouseholds,
	model.FeatureZoneID,
	model.FeatureWardNo,
}

// BuildFeatures lays the request out in schema order. Columns the request
// does not provide are zero; the four base columns must all be in the schema.
func BuildFeatures(req model.PredictionRequest, zoneID int, schema []string) (model.FeatureVector, error) {
	if err := checkSchema(schema); err != nil {
		return nil, err
	}

	values := map[string]float64{
		model.FeatureTotalHouseholds:   float64(req.TotalHouseholds),
		model.FeatureCoveredHouseholds: float64(req.CoveredHouseholds),
		model.FeatureZoneID:            float64(zoneID),
		model.FeatureWardNo:            float64(wardOrDefault(req.WardNumber)),
	}

	vec := make(model.FeatureVector, len(schema))
	for i, name := range schema {
		vec[i] = model.Feature{Name: name, Value: values[name]}
	}
	return vec, nil
}

func checkSchema(schema []string) error {
	if len(schema) == 0 {
		return fmt.Errorf("%w: schema has no columns", model.ErrArtifact)
	}
	seen := make(map[string]struct{}, len(schema))
	for _, name := range schema {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: schema lists %q twice", model.ErrArtifact, name)
		}
		seen[name] = struct{}{}
	}
	for _, name := range baseFeatures {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("%w: schema is missing column %q", model.ErrArtifact, name)
		}
	}
	return nil
}

func wardOrDefault(ward int) int {
	if ward <= 0 {
		return defaultWard
	}
	return ward
}
