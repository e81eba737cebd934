package artifacts_test

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste_service/internal/domain/model"
	"waste_service/internal/infrastructure/artifacts"
)

func loadTestEnsemble(t *testing.T) *artifacts.TreeEnsemble {
	t.Helper()
	f, err := os.Open("testdata/bundle/XGBoost.json")
	require.NoError(t, err)
	defer f.Close()

	m, err := artifacts.DecodeTreeEnsemble(f)
	require.NoError(t, err)
	return m
}

func TestTreeEnsemble_Predict(t *testing.T) {
	m := loadTestEnsemble(t)
	assert.Equal(t, 4, m.FeatureCount())

	tests := []struct {
		name string
		x    []float64
		want float64
	}{
		{name: "right then left", x: []float64{0, 2, -1, 0}, want: 350.5},
		{name: "right then right", x: []float64{0, 2, 1, 0}, want: 450.5},
		{name: "left then left", x: []float64{0, -1.5, 0, 0}, want: 150.5},
		{name: "threshold goes right", x: []float64{0, 0, 0.5, 0}, want: 450.5},
		{name: "missing follows default", x: []float64{0, math.NaN(), math.NaN(), 0}, want: 250.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Predict(context.Background(), tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTreeEnsemble_PredictRejectsWidth(t *testing.T) {
	m := loadTestEnsemble(t)
	_, err := m.Predict(context.Background(), []float64{1, 2})
	assert.ErrorIs(t, err, model.ErrArtifact)
}

const oneLeafModel = `{
  "learner": {
    "gradient_booster": {"name": "gbtree", "model": {"trees": [
      {"left_children": [-1], "right_children": [-1], "split_indices": [0],
       "split_conditions": [0.25], "default_left": [0]}
    ]}},
    "learner_model_param": {"base_score": "%s", "num_feature": "1"},
    "objective": {"name": "%s"}
  }
}`

func decodeOneLeaf(baseScore, objective string) (*artifacts.TreeEnsemble, error) {
	doc := fmt.Sprintf(oneLeafModel, baseScore, objective)
	return artifacts.DecodeTreeEnsemble(strings.NewReader(doc))
}

func TestTreeEnsemble_Objectives(t *testing.T) {
	tests := []struct {
		base      string
		objective string
		want      float64
	}{
		{base: "[1.5E0]", objective: "reg:squarederror", want: 1.75},
		{base: "2", objective: "count:poisson", want: 2 * math.Exp(0.25)},
		{base: "5E-1", objective: "reg:logistic", want: 1 / (1 + math.Exp(-0.25))},
	}
	for _, tt := range tests {
		t.Run(tt.objective, func(t *testing.T) {
			m, err := decodeOneLeaf(tt.base, tt.objective)
			require.NoError(t, err)
			got, err := m.Predict(context.Background(), []float64{42})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDecodeTreeEnsemble_Rejects(t *testing.T) {
	_, err := decodeOneLeaf("0.5", "multi:softprob")
	assert.ErrorIs(t, err, model.ErrArtifact)

	_, err = decodeOneLeaf("0", "reg:gamma")
	assert.ErrorIs(t, err, model.ErrArtifact)

	_, err = decodeOneLeaf("abc", "reg:squarederror")
	assert.ErrorIs(t, err, model.ErrArtifact)

	_, err = artifacts.DecodeTreeEnsemble(strings.NewReader("{not json"))
	assert.ErrorIs(t, err, model.ErrArtifact)

	linearBooster := `{"learner": {"gradient_booster": {"name": "gblinear"},
	  "learner_model_param": {"base_score": "0.5", "num_feature": "1"},
	  "objective": {"name": "reg:squarederror"}}}`
	_, err = artifacts.DecodeTreeEnsemble(strings.NewReader(linearBooster))
	assert.ErrorIs(t, err, model.ErrArtifact)

	cyclic := `{"learner": {"gradient_booster": {"name": "gbtree", "model": {"trees": [
	  {"left_children": [0], "right_children": [0], "split_indices": [0], "split_conditions": [1]}
	]}}, "learner_model_param": {"base_score": "0.5", "num_feature": "1"},
	  "objective": {"name": "reg:squarederror"}}}`
	_, err = artifacts.DecodeTreeEnsemble(strings.NewReader(cyclic))
	assert.ErrorIs(t, err, model.ErrArtifact)

	badFeature := `{"learner": {"gradient_booster": {"name": "gbtree", "model": {"trees": [
	  {"left_children": [1, -1, -1], "right_children": [2, -1, -1], "split_indices": [3, 0, 0], "split_conditions": [1, 2, 3]}
	]}}, "learner_model_param": {"base_score": "0.5", "num_feature": "1"},
	  "objective": {"name": "reg:squarederror"}}}`
	_, err = artifacts.DecodeTreeEnsemble(strings.NewReader(badFeature))
	assert.ErrorIs(t, err, model.ErrArtifact)

	noTrees := `{"learner": {"gradient_booster": {"name": "gbtree", "model": {"trees": []}},
	  "learner_model_param": {"base_score": "0.5", "num_feature": "1"},
	  "objective": {"name": "reg:squarederror"}}}`
	_, err = artifacts.DecodeTreeEnsemble(strings.NewReader(noTrees))
	assert.ErrorIs(t, err, model.ErrArtifact)
}
