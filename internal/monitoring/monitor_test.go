package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics()

	m.OrderCreated()
	m.OrderCreated()
	m.StatusChanged("delivered")
	m.NotificationOutcome("failed")
	m.CouponApplied("best")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CouponsApplied.WithLabelValues("best")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.StatusChanged("ready")
		m.NotificationOutcome("sent")
		m.CouponApplied("manual")
	})
	assert.Zero(t, m.Uptime())
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/orders/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/api/orders/:id", "GET", "204")))

	w = httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "tableside_http_requests_total"))
}
