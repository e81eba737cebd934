package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"waste_service/internal/domain/model"
)

// Pipeline stages reported in fallback warnings.
const (
	StageArtifacts = "artifacts"
	StageFeatures  = "features"
	StageScaler    = "scaler"
	StageModel     = "model"
	StagePipeline  = "pipeline"
)

// Fallback reasons.
const (
	ReasonArtifactsUnavailable = "artifacts_unavailable"
	ReasonSchemaMismatch       = "schema_mismatch"
	ReasonScalingFailed        = "scaling_failed"
	ReasonInferenceFailed      = "inference_failed"
	ReasonNonFinitePrediction  = "non_finite_prediction"
	ReasonInternalPanic        = "internal_panic"
)

// PredictionRecorder observes pipeline outcomes.
type PredictionRecorder interface {
	PredictionServed(fallback bool)
	FallbackUsed(stage, reason string)
	ZoneFallback()
}

type nopRecorder struct{}

func (nopRecorder) PredictionServed(bool)       {}
func (nopRecorder) FallbackUsed(string, string) {}
func (nopRecorder) ZoneFallback()               {}

// PredictionService runs the prediction pipeline over an injected artifact bundle.
// It holds no mutable state and is safe for concurrent use.
type PredictionService struct {
	bundle   *model.ArtifactBundle
	loadErr  error
	zones    []string
	recorder PredictionRecorder
	logger   *slog.Logger
}

// Option configures a PredictionService.
type Option func(*PredictionService)

// WithDefaultZones sets the ordering whose first entry replaces a blank zone name.
func WithDefaultZones(zones []string) Option {
	return func(s *PredictionService) { s.zones = slices.Clone(zones) }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r PredictionRecorder) Option {
	return func(s *PredictionService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLoadError records why the bundle could not be loaded. It is reported
// in every fallback warning while the service runs without artifacts.
func WithLoadError(err error) Option {
	return func(s *PredictionService) { s.loadErr = err }
}

// NewPredictionService creates the pipeline. A nil or incomplete bundle is
// accepted: the service then answers every request with the fallback estimate.
func NewPredictionService(bundle *model.ArtifactBundle, logger *slog.Logger, opts ...Option) *PredictionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PredictionService{
		bundle:   bundle,
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := bundle.Validate(); err != nil {
		s.bundle = nil
		if s.loadErr == nil {
			s.loadErr = err
		}
	}
	if len(s.zones) == 0 && s.bundle != nil {
		s.zones = s.bundle.Encoder.Classes()
	}
	return s
}

// Degraded reports whether the service runs without artifacts.
func (s *PredictionService) Degraded() bool { return s.bundle == nil }

// DefaultZone is the zone substituted for a blank zone name.
func (s *PredictionService) DefaultZone() string {
	if len(s.zones) == 0 {
		return UnknownZone
	}
	return s.zones[0]
}

// Predict validates the body and runs the pipeline. The only error returned
// is a *model.ValidationError; every later failure degrades to the fallback
// estimate and is reported through the outcome's Warning.
func (s *PredictionService) Predict(ctx context.Context, raw model.RawInput) (model.PredictionOutcome, error) {
	req, err := ValidateRequest(raw, s.zones)
	if err != nil {
		return model.PredictionOutcome{}, err
	}
	return s.Estimate(ctx, req), nil
}

// Estimate runs the pipeline for an already validated request.
func (s *PredictionService) Estimate(ctx context.Context, req model.PredictionRequest) model.PredictionOutcome {
	raw, warn := s.infer(ctx, req)
	if warn != nil {
		s.logger.Warn("prediction pipeline failed, using fallback estimate",
			slog.String("stage", warn.Stage),
			slog.String("reason", warn.Reason),
			slog.Any("error", warn.Err),
			slog.String("zone", req.ZoneName),
			slog.Int("covered_households", req.CoveredHouseholds),
		)
		s.recorder.FallbackUsed(warn.Stage, warn.Reason)
		raw = FallbackEstimate(req.CoveredHouseholds)
	}

	predicted := ClampPrediction(raw, req.CoveredHouseholds)
	s.recorder.PredictionServed(warn != nil)

	return model.PredictionOutcome{
		Request: req,
		Result: model.PredictionResult{
			SegregationRate:     SegregationRate(predicted, req.TotalHouseholds),
			PredictedHouseholds: predicted,
			ModelUsed:           model.ModelLabel,
		},
		Warning: warn,
	}
}

func (s *PredictionService) infer(ctx context.Context, req model.PredictionRequest) (raw float64, warn *model.PipelineWarning) {
	defer func() {
		if r := recover(); r != nil {
			warn = &model.PipelineWarning{
				Stage:  StagePipeline,
				Reason: ReasonInternalPanic,
				Err:    fmt.Errorf("panic: %v", r),
			}
		}
	}()

	if s.bundle == nil {
		err := s.loadErr
		if err == nil {
			err = model.ErrArtifact
		}
		return 0, &model.PipelineWarning{Stage: StageArtifacts, Reason: ReasonArtifactsUnavailable, Err: err}
	}

	zoneID := s.encodeZone(req.ZoneName)

	vec, err := BuildFeatures(req, zoneID, s.bundle.Schema)
	if err != nil {
		return 0, &model.PipelineWarning{Stage: StageFeatures, Reason: ReasonSchemaMismatch, Err: err}
	}
	s.logger.Debug("built feature vector",
		slog.Any("columns", vec.Names()),
		slog.Any("values", vec.Values()),
	)

	scaled, err := s.scale(vec)
	if err != nil {
		return 0, &model.PipelineWarning{Stage: StageScaler, Reason: ReasonScalingFailed, Err: err}
	}

	p, err := s.bundle.Regressor.Predict(ctx, scaled)
	if err != nil {
		return 0, &model.PipelineWarning{Stage: StageModel, Reason: ReasonInferenceFailed, Err: err}
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, &model.PipelineWarning{
			Stage:  StageModel,
			Reason: ReasonNonFinitePrediction,
			Err:    fmt.Errorf("%w: regressor returned %v", model.ErrArtifact, p),
		}
	}
	s.logger.Debug("model prediction", slog.Float64("raw", p))
	return p, nil
}

// encodeZone never fails: unknown zones and encoder faults map to code 0.
func (s *PredictionService) encodeZone(name string) (code int) {
	name = strings.TrimSpace(name)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("zone encoder panicked, using code 0", slog.String("zone", name), slog.Any("panic", r))
			s.recorder.ZoneFallback()
			code = 0
		}
	}()

	id, err := s.bundle.Encoder.Encode(name)
	if err != nil {
		if errors.Is(err, model.ErrUnknownZone) {
			s.logger.Info("unknown zone, using code 0", slog.String("zone", name))
		} else {
			s.logger.Warn("zone encoding failed, using code 0", slog.String("zone", name), slog.Any("error", err))
		}
		s.recorder.ZoneFallback()
		return 0
	}
	return id
}

func (s *PredictionService) scale(vec model.FeatureVector) ([]float64, error) {
	if namer, ok := s.bundle.Scaler.(model.FeatureNamer); ok {
		if names := namer.FeatureNames(); len(names) > 0 && !slices.Equal(names, vec.Names()) {
			return nil, fmt.Errorf("%w: scaler was fitted on %v, schema is %v", model.ErrArtifact, names, vec.Names())
		}
	}
	scaled, err := s.bundle.Scaler.Scale(vec.Values())
	if err != nil {
		return nil, err
	}
	if len(scaled) != len(vec) {
		return nil, fmt.Errorf("%w: scaler returned %d values for %d features", model.ErrArtifact, len(scaled), len(vec))
	}
	return scaled, nil
}
