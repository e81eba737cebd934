package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"waste_service/internal/domain/model"
)

// Request field names.
const (
	FieldTotalHouseholds   = "total_households"
	FieldCoveredHouseholds = "covered_households"
	FieldZoneName          = "zone_name"
	FieldWardNumber        = "ward_number"
)

// UnknownZone is used when no zone is given and no default zone is known.
const UnknownZone = "Unknown"

const defaultWard = 1

// ValidateRequest turns a decoded body into a PredictionRequest.
// defaultZones supplies the zone used when the request has none.
func ValidateRequest(raw model.RawInput, defaultZones []string) (model.PredictionRequest, error) {
	if len(raw) == 0 {
		return model.PredictionRequest{}, &model.ValidationError{Kind: model.KindMissingBody}
	}

	total, err := intField(raw, FieldTotalHouseholds, 0)
	if err != nil {
		return model.PredictionRequest{}, err
	}
	covered, err := intField(raw, FieldCoveredHouseholds, 0)
	if err != nil {
		return model.PredictionRequest{}, err
	}
	ward, err := intField(raw, FieldWardNumber, defaultWard)
	if err != nil {
		return model.PredictionRequest{}, err
	}

	if total <= 0 {
		return model.PredictionRequest{}, &model.ValidationError{Kind: model.KindNonPositiveTotal, Field: FieldTotalHouseholds}
	}
	if covered < 0 || covered > total {
		return model.PredictionRequest{}, &model.ValidationError{Kind: model.KindCoveredOutOfRange, Field: FieldCoveredHouseholds}
	}
	if ward <= 0 {
		return model.PredictionRequest{}, &model.ValidationError{Kind: model.KindInvalidWard, Field: FieldWardNumber}
	}

	zone := stringField(raw, FieldZoneName)
	if zone == "" {
		zone = UnknownZone
		if len(defaultZones) > 0 {
			zone = defaultZones[0]
		}
	}

	return model.PredictionRequest{
		TotalHouseholds:   total,
		CoveredHouseholds: covered,
		ZoneName:          zone,
		WardNumber:        ward,
	}, nil
}

// intField reads an integer the way a lenient JSON client would send it:
// numbers are truncated toward zero, strings must hold an integer.
func intField(raw model.RawInput, field string, fallback int) (int, error) {
	v, ok := raw[field]
	if !ok {
		return fallback, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, &model.ValidationError{Kind: model.KindInvalidType, Field: field}
	}
	return n, nil
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return intFromInt64(i)
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return intFromFloat(f)
	case float64:
		return intFromFloat(t)
	case int:
		return t, true
	case int64:
		return intFromInt64(t)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func intFromInt64(i int64) (int, bool) {
	if i > math.MaxInt || i < math.MinInt {
		return 0, false
	}
	return int(i), true
}

func intFromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int(f), true
}

func stringField(raw model.RawInput, field string) string {
	switch t := raw[field].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
