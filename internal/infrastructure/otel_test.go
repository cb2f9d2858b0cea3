package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeOTelWithDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	providers, err := InitializeOTel(DefaultOTelConfig(), logger)
	require.NoError(t, err)
	require.NotNil(t, providers.Metrics)
	require.NotNil(t, providers.PrometheusHTTP)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTelDisabled(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = false
	cfg.EnableMetrics = false

	providers, err := InitializeOTel(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.NoError(t, providers.Shutdown(context.Background()))
}
