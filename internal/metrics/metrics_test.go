package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/api/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(RequestTotal.WithLabelValues("GET", "/api/products/{id}", "404"))
	req := httptest.NewRequest(http.MethodGet, "/api/products/77", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(RequestTotal.WithLabelValues("GET", "/api/products/{id}", "404"))
	assert.Equal(t, before+1, after)
}

func TestRecordJob(t *testing.T) {
	RecordJob("expire-pending-orders", nil, time.Now())
	RecordJob("expire-pending-orders", errors.New("boom"), time.Now())
	assert.GreaterOrEqual(t, testutil.ToFloat64(JobRuns.WithLabelValues("expire-pending-orders", "success")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(JobRuns.WithLabelValues("expire-pending-orders", "failed")), 1.0)
}

func TestHandlerExposesDomainCounters(t *testing.T) {
	OrdersCreated.Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gearhire_orders_created_total")
}
