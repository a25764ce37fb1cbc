package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusBucket(t *testing.T) {
	cases := map[int]string{
		100: "1xx",
		201: "2xx",
		304: "3xx",
		401: "4xx",
		503: "5xx",
	}
	for code, want := range cases {
		assert.Equal(t, want, statusBucket(code), "code %d", code)
	}
}

func TestRecordTransaction(t *testing.T) {
	before := testutil.ToFloat64(TransactionsCreated.WithLabelValues("HIGH", "true"))
	RecordTransaction("HIGH", true)
	after := testutil.ToFloat64(TransactionsCreated.WithLabelValues("HIGH", "true"))

	assert.Equal(t, before+1, after)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/ping", "2xx"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/ping", "2xx")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "risk_intake_http_requests_total")
}
