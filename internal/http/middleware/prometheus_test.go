package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMeasuredApp(t *testing.T) (*fiber.App, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	pm, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(pm.Handler())
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/documents/:id", ok)
	app.Put("/documents/:id", ok)
	app.Post("/node/documents", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad meta")
	})
	app.Delete("/node/documents", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/metrics", ok)
	app.Get("/healthz", ok)
	return app, pm, reg
}

func TestPrometheusMiddleware_CountsByRoutePattern(t *testing.T) {
	app, pm, _ := newMeasuredApp(t)

	requests := []struct {
		method, target string
	}{
		{http.MethodGet, "/documents/1"},
		{http.MethodGet, "/documents/2"},
		{http.MethodPut, "/documents/2"},
		{http.MethodPost, "/node/documents"},
		{http.MethodDelete, "/node/documents?storageNodeId=1"},
	}
	for _, r := range requests {
		_, err := app.Test(httptest.NewRequest(r.method, r.target, nil))
		require.NoError(t, err)
	}

	tests := []struct {
		method, path, status string
		want                 float64
	}{
		{"GET", "/documents/:id", "200", 2},
		{"PUT", "/documents/:id", "200", 1},
		{"POST", "/node/documents", "400", 1},
		{"DELETE", "/node/documents", "204", 1},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := testutil.ToFloat64(pm.requestCount.WithLabelValues(tt.method, tt.path, tt.status))
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, 4, testutil.CollectAndCount(pm.requestDuration))
}

func TestPrometheusMiddleware_SkipsScrapesAndProbes(t *testing.T) {
	app, _, reg := newMeasuredApp(t)

	for _, p := range []string{"/metrics", "/healthz"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, p, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		assert.Empty(t, mf.GetMetric(), "unexpected samples for %s", mf.GetName())
	}
}

func TestNewPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMiddleware(reg)
	assert.Error(t, err)
}
