package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"waste_service/internal/domain/model"
	"waste_service/internal/domain/repository"
)

// ErrNoValidData is returned when cleaning leaves no usable rows.
var ErrNoValidData = errors.New("no valid data available after cleaning")

type DashboardService struct {
	source repository.WardRecordSource
	logger *slog.Logger
}

func NewDashboardService(source repository.WardRecordSource, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{source: source, logger: logger}
}

// Source is the record source behind the dashboard.
func (s *DashboardService) Source() repository.WardRecordSource { return s.source }

// Build aggregates the dataset per zone and for the whole city.
func (s *DashboardService) Build(ctx context.Context) (*model.Dashboard, error) {
	records, err := s.source.LoadWardRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ward records: %w", err)
	}

	byZone := make(map[string]*model.ZoneStats)
	dropped := 0
	for _, r := range records {
		if !usable(r) {
			dropped++
			continue
		}
		z, ok := byZone[r.ZoneName]
		if !ok {
			z = &model.ZoneStats{ZoneName: r.ZoneName}
			byZone[r.ZoneName] = z
		}
		z.TotalHouseholds += *r.TotalHouseholds
		z.CoveredHouseholds += *r.CoveredHouseholds
		z.SourceSegregatedHHs += *r.SourceSegregatedHHs
	}
	if dropped > 0 {
		s.logger.Info("dropped unusable ward records", slog.Int("dropped", dropped), slog.Int("total", len(records)))
	}
	if len(byZone) == 0 {
		return nil, ErrNoValidData
	}

	names := make([]string, 0, len(byZone))
	for name := range byZone {
		names = append(names, name)
	}
	sort.Strings(names)

	dash := &model.Dashboard{
		Zones:    make([]model.ZoneStats, 0, len(names)),
		ZoneList: names,
	}
	var total, covered, segregated decimal.Decimal
	for _, name := range names {
		z := byZone[name]
		z.CoverageRate = ratePercent(z.CoveredHouseholds, z.TotalHouseholds)
		z.SegregationRate = ratePercent(z.SourceSegregatedHHs, z.TotalHouseholds)
		dash.Zones = append(dash.Zones, *z)

		total = total.Add(decimal.NewFromFloat(z.TotalHouseholds))
		covered = covered.Add(decimal.NewFromFloat(z.CoveredHouseholds))
		segregated = segregated.Add(decimal.NewFromFloat(z.SourceSegregatedHHs))
	}

	// City totals are whole households; rates use the truncated sums.
	t, c, sg := total.Truncate(0), covered.Truncate(0), segregated.Truncate(0)
	dash.CityTotals = model.CityTotals{
		TotalHouseholds:     t.IntPart(),
		CoveredHouseholds:   c.IntPart(),
		SourceSegregatedHHs: sg.IntPart(),
		CoverageRate:        percent(c, t),
		SegregationRate:     percent(sg, t),
	}
	return dash, nil
}

// ZoneNames returns each zone once, in the order the dataset first lists it.
func (s *DashboardService) ZoneNames(ctx context.Context) ([]string, error) {
	records, err := s.source.LoadWardRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ward records: %w", err)
	}
	seen := make(map[string]struct{})
	var names []string
	for _, r := range records {
		if r.ZoneName == "" {
			continue
		}
		if _, ok := seen[r.ZoneName]; ok {
			continue
		}
		seen[r.ZoneName] = struct{}{}
		names = append(names, r.ZoneName)
	}
	return names, nil
}

func usable(r model.WardRecord) bool {
	return r.ZoneName != "" &&
		r.TotalHouseholds != nil &&
		r.CoveredHouseholds != nil &&
		r.SourceSegregatedHHs != nil &&
		*r.TotalHouseholds > 0
}

func ratePercent(part, whole float64) float64 {
	return percent(decimal.NewFromFloat(part), decimal.NewFromFloat(whole))
}
