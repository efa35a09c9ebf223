// Package metrics holds the manager prometheus counters.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "configmanager"

var (
	syncStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_started_total",
		Help:      "The total number of sync runs started",
	})

	dispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_failure_total",
		Help:      "The total number of hosts whose work item could not be submitted",
	})

	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_dropped_total",
		Help:      "The total number of bus events dropped by their handler",
	}, []string{"consumer"})

	apiErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_error_total",
		Help:      "The total number of API requests answered with an error",
	}, []string{"status"})

	stateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_change_total",
		Help:      "The total number of desired state replacements",
	})
)

func SyncStarted() {
	syncStarted.Inc()
}

func DispatchFailure() {
	dispatchFailures.Inc()
}

func EventDropped(consumer string) {
	eventsDropped.WithLabelValues(consumer).Inc()
}

func APIError(status int) {
	apiErrors.WithLabelValues(strconv.Itoa(status)).Inc()
}

func StateChanged() {
	stateChanges.Inc()
}

// Handler serves the default registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
