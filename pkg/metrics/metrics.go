package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vendordesk"

// Registry holds every collector of this process. It is separate from the
// prometheus default registry so tests can read values without global noise.
var Registry = prometheus.NewRegistry()

var (
	IntentsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intents_total",
		Help:      "Chat messages classified, by intent.",
	}, []string{"intent"})

	StoreCallsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_calls_total",
		Help:      "Entity store calls issued by the assistant, by operation and outcome.",
	}, []string{"op", "outcome"})

	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method, route pattern and status code.",
	}, []string{"method", "route", "code"})
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ObserveStoreCall records one store call outcome.
func ObserveStoreCall(op string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	StoreCallsTotal.WithLabelValues(op, outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
