package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWrite(t *testing.T) {
	before := testutil.ToFloat64(collectionWrites.WithLabelValues("create", ResultOK))
	RecordWrite("create", ResultOK)
	assert.InDelta(t, before+1, testutil.ToFloat64(collectionWrites.WithLabelValues("create", ResultOK)), 1e-9)
}

func TestRecordDropped_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(normalizerDropped.WithLabelValues("ratings"))
	RecordDropped("ratings", 0)
	RecordDropped("ratings", 3)
	assert.InDelta(t, before+3, testutil.ToFloat64(normalizerDropped.WithLabelValues("ratings")), 1e-9)
}

func TestHandler(t *testing.T) {
	RecordEvent("books.changed")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bookly_bus_events_total")
}
