package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste_service/internal/core"
	"waste_service/internal/domain/model"
	"waste_service/internal/infrastructure/artifacts"
)

var testZones = []string{"Zone A", "Zone B", "Zone C"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRecorder struct {
	mu        sync.Mutex
	served    int
	fallbacks []string
	zones     int
}

func (r *fakeRecorder) PredictionServed(fallback bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.served++
}

func (r *fakeRecorder) FallbackUsed(stage, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, stage+"/"+reason)
}

func (r *fakeRecorder) ZoneFallback() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones++
}

type panicRegressor struct{}

func (panicRegressor) Predict(context.Context, []float64) (float64, error) {
	panic("corrupt model state")
}

type panicEncoder struct{}

func (panicEncoder) Encode(string) (int, error) { panic("encoder table missing") }
func (panicEncoder) Classes() []string          { return nil }

type shortScaler struct{}

func (shortScaler) Scale(values []float64) ([]float64, error) { return values[:1], nil }

// linearBundle predicts 0.5*covered + 10*zone_code on unscaled features.
func linearBundle(t *testing.T) *model.ArtifactBundle {
	t.Helper()
	enc, err := artifacts.NewLabelEncoder(testZones)
	require.NoError(t, err)
	scaler, err := artifacts.NewStandardScaler([]float64{0, 0, 0, 0}, []float64{1, 1, 1, 1}, testSchema)
	require.NoError(t, err)
	reg, err := artifacts.NewLinearModel(0, []float64{0, 0.5, 10, 0})
	require.NoError(t, err)
	return &model.ArtifactBundle{
		Version:   "test",
		Encoder:   enc,
		Scaler:    scaler,
		Regressor: reg,
		Schema:    testSchema,
	}
}

func constantBundle(value float64, err error) *model.ArtifactBundle {
	return &model.ArtifactBundle{
		Encoder:   artifacts.StaticEncoder{Zones: testZones},
		Scaler:    artifacts.IdentityScaler{},
		Regressor: artifacts.ConstantRegressor{Value: value, Err: err},
		Schema:    testSchema,
	}
}

func request(total, covered int, zone string) model.RawInput {
	return model.RawInput{
		"total_households":   total,
		"covered_households": covered,
		"zone_name":          zone,
	}
}

func TestPredict_KnownZone(t *testing.T) {
	svc := core.NewPredictionService(linearBundle(t), discardLogger())

	out, err := svc.Predict(context.Background(), request(1000, 800, "Zone A"))
	require.NoError(t, err)

	assert.False(t, out.Fallback())
	assert.Equal(t, 400, out.Result.PredictedHouseholds)
	assert.Equal(t, 40.0, out.Result.SegregationRate)
	assert.Equal(t, "XGBoost", out.Result.ModelUsed)

	out, err = svc.Predict(context.Background(), request(1000, 800, "Zone C"))
	require.NoError(t, err)
	assert.Equal(t, 420, out.Result.PredictedHouseholds)
	assert.Equal(t, 42.0, out.Result.SegregationRate)
}

func TestPredict_UnknownZoneEncodesAsZero(t *testing.T) {
	rec := &fakeRecorder{}
	svc := core.NewPredictionService(linearBundle(t), discardLogger(), core.WithRecorder(rec))

	unknown, err := svc.Predict(context.Background(), request(500, 500, "NotARealZone"))
	require.NoError(t, err)
	reference, err := svc.Predict(context.Background(), request(500, 500, "Zone A"))
	require.NoError(t, err)

	assert.False(t, unknown.Fallback())
	assert.Equal(t, reference.Result, unknown.Result)
	assert.Equal(t, 250, unknown.Result.PredictedHouseholds)
	assert.Equal(t, 50.0, unknown.Result.SegregationRate)
	assert.Equal(t, "NotARealZone", unknown.Request.ZoneName)
	assert.Equal(t, 1, rec.zones)
}

func TestPredict_EncoderFaultsEncodeAsZero(t *testing.T) {
	for name, enc := range map[string]model.ZoneEncoder{
		"error": artifacts.StaticEncoder{Zones: testZones, Err: errors.New("encoder offline")},
		"panic": panicEncoder{},
	} {
		t.Run(name, func(t *testing.T) {
			b := linearBundle(t)
			b.Encoder = enc
			rec := &fakeRecorder{}
			svc := core.NewPredictionService(b, discardLogger(), core.WithRecorder(rec), core.WithDefaultZones(testZones))

			out, err := svc.Predict(context.Background(), request(1000, 800, "Zone C"))
			require.NoError(t, err)
			assert.False(t, out.Fallback())
			assert.Equal(t, 400, out.Result.PredictedHouseholds)
			assert.Equal(t, 1, rec.zones)
		})
	}
}

func TestPredict_ClampsToCovered(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{name: "above covered", value: 5000, want: 800},
		{name: "negative", value: -37.2, want: 0},
		{name: "fraction truncates", value: 123.99, want: 123},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := core.NewPredictionService(constantBundle(tt.value, nil), discardLogger())
			out, err := svc.Predict(context.Background(), request(1000, 800, "Zone B"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Result.PredictedHouseholds)
		})
	}
}

func TestPredict_OutputBounds(t *testing.T) {
	values := []float64{-1e9, -1, 0, 0.4, 1, 7.7, 333.3, 1e9}
	for _, v := range values {
		svc := core.NewPredictionService(constantBundle(v, nil), discardLogger())
		for total := 1; total <= 60; total += 7 {
			for covered := 0; covered <= total; covered += 3 {
				out, err := svc.Predict(context.Background(), request(total, covered, "Zone A"))
				require.NoError(t, err)

				p := out.Result.PredictedHouseholds
				assert.GreaterOrEqual(t, p, 0)
				assert.LessOrEqual(t, p, covered)
				assert.Equal(t, core.SegregationRate(p, total), out.Result.SegregationRate)
				assert.GreaterOrEqual(t, out.Result.SegregationRate, 0.0)
				assert.LessOrEqual(t, out.Result.SegregationRate, 100.0)
			}
		}
	}
}

func TestPredict_Idempotent(t *testing.T) {
	svc := core.NewPredictionService(linearBundle(t), discardLogger())
	first, err := svc.Predict(context.Background(), request(731, 402, "Zone B"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Predict(context.Background(), request(731, 402, "Zone B"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPredict_ValidationErrorsSkipPipeline(t *testing.T) {
	rec := &fakeRecorder{}
	svc := core.NewPredictionService(linearBundle(t), discardLogger(), core.WithRecorder(rec))

	_, err := svc.Predict(context.Background(), request(0, 0, "X"))
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.KindNonPositiveTotal, verr.Kind)

	_, err = svc.Predict(context.Background(), request(10, 11, "X"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.KindCoveredOutOfRange, verr.Kind)

	assert.Zero(t, rec.served)
}

func TestPredict_Fallbacks(t *testing.T) {
	missingZone := linearBundle(t)
	missingZone.Schema = []string{"Total_Households", "Covered_Households", "Ward No."}

	namesDiffer := linearBundle(t)
	reordered, err := artifacts.NewStandardScaler([]float64{0, 0, 0, 0}, []float64{1, 1, 1, 1},
		[]string{"Covered_Households", "Total_Households", "Zone_ID", "Ward No."})
	require.NoError(t, err)
	namesDiffer.Scaler = reordered

	shortOutput := linearBundle(t)
	shortOutput.Scaler = shortScaler{}

	wrongWidth := linearBundle(t)
	wrongWidth.Regressor, err = artifacts.NewLinearModel(0, []float64{1, 1})
	require.NoError(t, err)

	panics := linearBundle(t)
	panics.Regressor = panicRegressor{}

	tests := []struct {
		name   string
		bundle *model.ArtifactBundle
		stage  string
		reason string
	}{
		{name: "no artifacts", bundle: nil, stage: core.StageArtifacts, reason: core.ReasonArtifactsUnavailable},
		{name: "incomplete bundle", bundle: &model.ArtifactBundle{Schema: testSchema}, stage: core.StageArtifacts, reason: core.ReasonArtifactsUnavailable},
		{name: "schema lacks zone id", bundle: missingZone, stage: core.StageFeatures, reason: core.ReasonSchemaMismatch},
		{name: "scaler error", bundle: &model.ArtifactBundle{
			Encoder:   artifacts.StaticEncoder{Zones: testZones},
			Scaler:    artifacts.IdentityScaler{Err: model.ErrArtifact},
			Regressor: artifacts.ConstantRegressor{Value: 1},
			Schema:    testSchema,
		}, stage: core.StageScaler, reason: core.ReasonScalingFailed},
		{name: "scaler fitted on other columns", bundle: namesDiffer, stage: core.StageScaler, reason: core.ReasonScalingFailed},
		{name: "scaler output too short", bundle: shortOutput, stage: core.StageScaler, reason: core.ReasonScalingFailed},
		{name: "model error", bundle: constantBundle(0, errors.New("booster crashed")), stage: core.StageModel, reason: core.ReasonInferenceFailed},
		{name: "model feature width", bundle: wrongWidth, stage: core.StageModel, reason: core.ReasonInferenceFailed},
		{name: "model NaN", bundle: constantBundle(math.NaN(), nil), stage: core.StageModel, reason: core.ReasonNonFinitePrediction},
		{name: "model Inf", bundle: constantBundle(math.Inf(1), nil), stage: core.StageModel, reason: core.ReasonNonFinitePrediction},
		{name: "model panic", bundle: panics, stage: core.StagePipeline, reason: core.ReasonInternalPanic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			svc := core.NewPredictionService(tt.bundle, discardLogger(), core.WithRecorder(rec))

			out, err := svc.Predict(context.Background(), request(1000, 800, "Zone A"))
			require.NoError(t, err)

			require.True(t, out.Fallback())
			assert.Equal(t, tt.stage, out.Warning.Stage)
			assert.Equal(t, tt.reason, out.Warning.Reason)
			assert.Equal(t, 560, out.Result.PredictedHouseholds)
			assert.Equal(t, 56.0, out.Result.SegregationRate)
			assert.Equal(t, "XGBoost", out.Result.ModelUsed)
			assert.Equal(t, []string{tt.stage + "/" + tt.reason}, rec.fallbacks)
			assert.Equal(t, 1, rec.served)
		})
	}
}

func TestPredict_FallbackCarriesLoadError(t *testing.T) {
	loadErr := errors.New("open saved_models/XGBoost.json: no such file or directory")
	svc := core.NewPredictionService(nil, discardLogger(), core.WithLoadError(loadErr))
	require.True(t, svc.Degraded())

	out, err := svc.Predict(context.Background(), request(100, 70, "Zone A"))
	require.NoError(t, err)
	require.True(t, out.Fallback())
	assert.ErrorIs(t, out.Warning, loadErr)
	assert.Equal(t, 49, out.Result.PredictedHouseholds)
	assert.Equal(t, 49.0, out.Result.SegregationRate)
}

func TestPredict_DefaultZone(t *testing.T) {
	svc := core.NewPredictionService(linearBundle(t), discardLogger())
	assert.False(t, svc.Degraded())
	assert.Equal(t, "Zone A", svc.DefaultZone())

	svc = core.NewPredictionService(linearBundle(t), discardLogger(), core.WithDefaultZones([]string{"Zone C", "Zone A"}))
	out, err := svc.Predict(context.Background(), model.RawInput{"total_households": 1000, "covered_households": 800})
	require.NoError(t, err)
	assert.Equal(t, "Zone C", out.Request.ZoneName)
	assert.Equal(t, 420, out.Result.PredictedHouseholds)

	svc = core.NewPredictionService(nil, discardLogger())
	assert.Equal(t, core.UnknownZone, svc.DefaultZone())
}

func TestPredict_Concurrent(t *testing.T) {
	svc := core.NewPredictionService(linearBundle(t), discardLogger())

	var wg sync.WaitGroup
	results := make([]model.PredictionResult, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Predict(context.Background(), request(1000, 800, "Zone B"))
			if err == nil {
				results[i] = out.Result
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, 410, r.PredictedHouseholds)
	}
}
