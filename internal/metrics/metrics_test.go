package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(dispatchFailures)
	DispatchFailure()
	DispatchFailure()
	assert.Equal(t, before+2, testutil.ToFloat64(dispatchFailures))

	before = testutil.ToFloat64(eventsDropped.WithLabelValues("completion"))
	EventDropped("completion")
	assert.Equal(t, before+1, testutil.ToFloat64(eventsDropped.WithLabelValues("completion")))

	before = testutil.ToFloat64(apiErrors.WithLabelValues("404"))
	APIError(http.StatusNotFound)
	assert.Equal(t, before+1, testutil.ToFloat64(apiErrors.WithLabelValues("404")))
}

func TestHandlerExposesCounters(t *testing.T) {
	SyncStarted()
	StateChanged()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "configmanager_sync_started_total")
	assert.Contains(t, body, "configmanager_state_change_total")
}
