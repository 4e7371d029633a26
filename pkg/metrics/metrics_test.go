package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gauge(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestNewRegistersWithGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.FeatureFunctions.Set(3)
	m.ScoreSlots.Set(7)

	assert.Equal(t, 3.0, gauge(t, reg, "decoder_feature_functions"))
	assert.Equal(t, 7.0, gauge(t, reg, "decoder_score_slots"))

	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
	assert.Panics(t, func() { New(reg) }, "duplicate registration")
}

func TestServerMuxServesGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ScoreSlots.Set(11)
	mux := newMux(reg)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "decoder_score_slots 11")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "/metrics")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
