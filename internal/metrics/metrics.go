// Package metrics registers the Prometheus instruments for sync runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters fed by the report sink.
type Metrics struct {
	DocumentsProcessed prometheus.Counter
	DocumentsIndexed   prometheus.Counter
	Warnings           *prometheus.CounterVec
}

// New registers the sync counters on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "regsync_documents_processed_total",
			Help: "Regulation records fetched and saved.",
		}),
		DocumentsIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "regsync_documents_indexed_total",
			Help: "Regulation records made searchable.",
		}),
		Warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regsync_warnings_total",
			Help: "Non-fatal failures recorded during runs.",
		}, []string{"kind"}),
	}
}
