package mlclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste_service/internal/domain/model"
	"waste_service/internal/infrastructure/mlclient"
)

func TestHTTPRegressor_Predict(t *testing.T) {
	var got mlclient.MLRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"prediction": 512.25}`))
	}))
	defer srv.Close()

	p, err := mlclient.NewHTTPRegressor(srv.URL, time.Second).Predict(context.Background(), []float64{2, 2, -1, 0})
	require.NoError(t, err)
	assert.Equal(t, 512.25, p)
	assert.Equal(t, []float64{2, 2, -1, 0}, got.Features)
}

func TestHTTPRegressor_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{name: "malformed body", handler: func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"prediction":`))
		}},
		{name: "no prediction", handler: func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"status": "ok"}`))
		}},
		{name: "timeout", handler: func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := mlclient.NewHTTPRegressor(srv.URL, 50*time.Millisecond).Predict(context.Background(), []float64{1})
			assert.ErrorIs(t, err, model.ErrArtifact)
		})
	}
}

func TestHTTPRegressor_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := mlclient.NewHTTPRegressor(url, time.Second).Predict(context.Background(), []float64{1})
	assert.ErrorIs(t, err, model.ErrArtifact)
}
