package main

import (
	"context"
	"errors"
	"log/slog"

	"waste_service/internal/config"
	"waste_service/internal/core"
	"waste_service/internal/domain/model"
	"waste_service/internal/domain/repository"
	"waste_service/internal/infrastructure/artifacts"
	"waste_service/internal/infrastructure/metrics"
	"waste_service/internal/infrastructure/mlclient"
)

// app holds everything built once at startup and shared by all requests.
type app struct {
	predictions   *core.PredictionService
	dashboard     *core.DashboardService
	metrics       *metrics.PredictionMetrics
	requiredFiles []string
	closers       []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{metrics: metrics.NewPredictionMetrics()}

	// Dataset
	var source repository.WardRecordSource
	switch cfg.DatasetSource {
	case config.SourcePostgres:
		pg, err := repository.NewPostgresWardSource(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		source = pg
	default:
		source = repository.NewCSVWardSource(cfg.DataFile)
		a.requiredFiles = append(a.requiredFiles, cfg.DataFile)
	}
	a.dashboard = core.NewDashboardService(source, logger)

	// Artifacts are loaded once; a failure leaves the service degraded, not down.
	var storeOpts []artifacts.StoreOption
	if cfg.MLServiceURL != "" {
		storeOpts = append(storeOpts, artifacts.WithRemoteRegressor(mlclient.NewHTTPRegressor(cfg.MLServiceURL, cfg.MLTimeout)))
	}
	var bundle *model.ArtifactBundle
	store, err := artifacts.NewFileStore(cfg.ArtifactDir, storeOpts...)
	if err == nil {
		a.requiredFiles = append(store.RequiredFiles(), a.requiredFiles...)
		bundle, err = store.LoadBundle(ctx)
	}
	if err != nil {
		logger.Error("failed to load model artifacts; every prediction will use the fallback estimate",
			slog.String("artifact_dir", cfg.ArtifactDir),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("model artifacts loaded",
			slog.String("version", bundle.Version),
			slog.Int("features", len(bundle.Schema)),
			slog.Int("zones", len(bundle.Encoder.Classes())),
		)
	}

	zones, zerr := a.dashboard.ZoneNames(ctx)
	if zerr != nil {
		logger.Warn("could not read zone names from dataset", slog.String("error", zerr.Error()))
	}

	a.predictions = core.NewPredictionService(bundle, logger,
		core.WithDefaultZones(zones),
		core.WithRecorder(a.metrics),
		core.WithLoadError(err),
	)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
