package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"waste_service/internal/domain/model"
)

// HTTPRegressor delegates inference to a model server.
type HTTPRegressor struct {
	endpoint string
	client   *http.Client
}

func NewHTTPRegressor(endpoint string, timeout time.Duration) *HTTPRegressor {
	return &HTTPRegressor{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type MLRequest struct {
	Features []float64 `json:"features"`
}

type MLResponse struct {
	Prediction *float64 `json:"prediction"`
}

// Predict posts the scaled vector and returns the server's prediction.
// Every failure is reported as an artifact error.
func (c *HTTPRegressor) Predict(ctx context.Context, values []float64) (float64, error) {
	body, err := json.Marshal(MLRequest{Features: values})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to marshal ML request: %v", model.ErrArtifact, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create ML request: %v", model.ErrArtifact, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: ML service request failed: %v", model.ErrArtifact, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: ML service returned status: %d", model.ErrArtifact, resp.StatusCode)
	}

	var mlResp MLResponse
	if err := json.NewDecoder(resp.Body).Decode(&mlResp); err != nil {
		return 0, fmt.Errorf("%w: failed to decode ML response: %v", model.ErrArtifact, err)
	}
	if mlResp.Prediction == nil {
		return 0, fmt.Errorf("%w: ML response has no prediction", model.ErrArtifact)
	}

	return *mlResp.Prediction, nil
}
