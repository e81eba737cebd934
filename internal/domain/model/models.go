package model

// Feature names the model artifacts were trained on.
const (
	FeatureTotalHouseholds   = "Total_Households"
	FeatureCoveredHouseholds = "Covered_Households"
	FeatureZoneID            = "Zone_ID"
	FeatureWardNo            = "Ward No."
)

// ModelLabel is reported in every prediction, whatever regressor is configured.
const ModelLabel = "XGBoost"

// RawInput is a decoded JSON request body.
type RawInput map[string]any

// PredictionRequest is a validated prediction input.
type PredictionRequest struct {
	TotalHouseholds   int
	CoveredHouseholds int
	ZoneName          string
	WardNumber        int
}

// Feature is one named numeric model input.
type Feature struct {
	Name  string
	Value float64
}

// FeatureVector is ordered exactly like the schema artifact.
type FeatureVector []Feature

// Values returns the positional values of the vector.
func (v FeatureVector) Values() []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = f.Value
	}
	return out
}

// Names returns the feature names in vector order.
func (v FeatureVector) Names() []string {
	out := make([]string, len(v))
	for i, f := range v {
		out[i] = f.Name
	}
	return out
}

// PredictionResult is the success-shaped answer of the pipeline.
type PredictionResult struct {
	SegregationRate     float64 `json:"segregation_rate"`
	PredictedHouseholds int     `json:"predicted_households"`
	ModelUsed           string  `json:"model_used"`
}

// PipelineWarning records why the fallback estimate replaced the model.
type PipelineWarning struct {
	Stage  string
	Reason string
	Err    error
}

func (w *PipelineWarning) Error() string {
	if w.Err == nil {
		return w.Stage + ": " + w.Reason
	}
	return w.Stage + ": " + w.Reason + ": " + w.Err.Error()
}

func (w *PipelineWarning) Unwrap() error { return w.Err }

// PredictionOutcome pairs a result with the request it answers.
// Warning is nil when the model produced the result.
type PredictionOutcome struct {
	Request PredictionRequest
	Result  PredictionResult
	Warning *PipelineWarning
}

// Fallback reports whether the result is the heuristic estimate.
func (o PredictionOutcome) Fallback() bool { return o.Warning != nil }

// WardRecord is one dataset row after column normalisation.
type WardRecord struct {
	ZoneName            string   `db:"zone_name"`
	TotalHouseholds     *float64 `db:"total_households"`
	CoveredHouseholds   *float64 `db:"covered_households"`
	SourceSegregatedHHs *float64 `db:"source_segregated"`
}

// ZoneStats holds the aggregated counts of one zone.
type ZoneStats struct {
	ZoneName            string  `json:"Zone_Name"`
	TotalHouseholds     float64 `json:"Total_Households"`
	CoveredHouseholds   float64 `json:"Covered_Households"`
	SourceSegregatedHHs float64 `json:"HH_Source_Segregation"`
	CoverageRate        float64 `json:"Coverage_Rate"`
	SegregationRate     float64 `json:"Segregation_Rate"`
}

// CityTotals sums all zones.
type CityTotals struct {
	TotalHouseholds     int64   `json:"Total_Households"`
	CoveredHouseholds   int64   `json:"Covered_Households"`
	SourceSegregatedHHs int64   `json:"HH_Source_Segregation"`
	CoverageRate        float64 `json:"Coverage_Rate"`
	SegregationRate     float64 `json:"Segregation_Rate"`
}

// Dashboard is the payload of the dashboard view.
type Dashboard struct {
	Zones      []ZoneStats `json:"zones"`
	CityTotals CityTotals  `json:"city_totals"`
	ZoneList   []string    `json:"zone_list"`
}
