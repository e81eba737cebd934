package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"waste_service/internal/domain/model"
)

// Normalised column names.
const (
	ColumnTotalHouseholds   = "Total_Households"
	ColumnCoveredHouseholds = "Covered_Households"
	ColumnSourceSegregation = "HH_Source_Segregation"
	ColumnZoneName          = "Zone_Name"
)

// normaliseColumn maps the headers of the municipal export to normalised names.
func normaliseColumn(header string) string {
	name := strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	switch name {
	case "Total No. of households / establishments":
		return ColumnTotalHouseholds
	case "Total no. of households and establishments covered through doorstep collection":
		return ColumnCoveredHouseholds
	case "HH covered with Source Seggeratation", "HH covered with Source Segregation":
		return ColumnSourceSegregation
	case "Zone Name":
		return ColumnZoneName
	}
	return name
}

var requiredColumns = []string{
	ColumnTotalHouseholds,
	ColumnCoveredHouseholds,
	ColumnSourceSegregation,
	ColumnZoneName,
}

// CSVWardSource reads ward rows from a CSV export. The file is read on every
// call so that an updated export is picked up without a restart.
type CSVWardSource struct {
	path string
}

func NewCSVWardSource(path string) *CSVWardSource {
	return &CSVWardSource{path: path}
}

func (s *CSVWardSource) Location() string {
	if abs, err := filepath.Abs(s.path); err == nil {
		return abs
	}
	return s.path
}

// Path is the configured file path.
func (s *CSVWardSource) Path() string { return s.path }

// Check reads the header and the first row.
func (s *CSVWardSource) Check(_ context.Context) error {
	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if _, err := r.Read(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read first row: %w", err)
	}
	return nil
}

func (s *CSVWardSource) LoadWardRecords(ctx context.Context) ([]model.WardRecord, error) {
	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseWardCSV(ctx, f)
}

func (s *CSVWardSource) open() (*os.File, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, s.Location())
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return f, nil
}

// ParseWardCSV normalises headers and returns one record per row. Cells that
// are not numbers are left nil.
func ParseWardCSV(ctx context.Context, r io.Reader) ([]model.WardRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MissingColumnsError{Missing: slices.Clone(requiredColumns), Available: []string{}}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	available := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := normaliseColumn(h)
		available[i] = name
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing, Available: available}
	}

	var records []model.WardRecord
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		records = append(records, model.WardRecord{
			ZoneName:            strings.TrimSpace(cell(row, index[ColumnZoneName])),
			TotalHouseholds:     number(cell(row, index[ColumnTotalHouseholds])),
			CoveredHouseholds:   number(cell(row, index[ColumnCoveredHouseholds])),
			SourceSegregatedHHs: number(cell(row, index[ColumnSourceSegregation])),
		})
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func number(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
