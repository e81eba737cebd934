package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"waste_service/internal/domain/model"
)

// ErrDatasetNotFound is returned when the ward dataset does not exist.
var ErrDatasetNotFound = errors.New("dataset not found")

// MissingColumnsError reports required dataset columns that are absent.
type MissingColumnsError struct {
	Missing   []string
	Available []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("Missing required columns in data: %s", strings.Join(e.Missing, ", "))
}

// WardRecordSource yields the per-ward rows behind the dashboard.
type WardRecordSource interface {
	LoadWardRecords(ctx context.Context) ([]model.WardRecord, error)
	// Check verifies that the source can be read.
	Check(ctx context.Context) error
	// Location describes where the data lives, for error messages.
	Location() string
}
