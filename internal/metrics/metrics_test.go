package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OAuthResolution("google", "created")
	m.OAuthResolution("google", "created")
	m.PermissionDenied("subscriber", "insufficient_role")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OAuthResolutionsTotal.WithLabelValues("google", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PermissionDenialsTotal.WithLabelValues("subscriber", "insufficient_role")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.OAuthResolution("google", "created")
	m.PermissionDenied("admin", "unauthenticated")
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/swords/:index", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/swords/1", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/swords/:index", "204")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "touken_http_requests_total")
}
