package report

import "github.com/openregs/regsync/internal/metrics"

// PrometheusSink feeds report events into the Prometheus counters.
type PrometheusSink struct {
	m *metrics.Metrics
}

// NewPrometheusSink wires a sink onto registered metrics.
func NewPrometheusSink(m *metrics.Metrics) *PrometheusSink {
	return &PrometheusSink{m: m}
}

// Consume updates counters for one event.
func (s *PrometheusSink) Consume(evt Event) {
	switch evt.Stage {
	case StageProcessed:
		s.m.DocumentsProcessed.Inc()
	case StageIndexed:
		s.m.DocumentsIndexed.Inc()
	case StageWarning:
		s.m.Warnings.WithLabelValues("fetch").Inc()
	case StageMissingLink:
		s.m.Warnings.WithLabelValues("missing_link").Inc()
	case StageCitationWarning:
		s.m.Warnings.WithLabelValues("citation").Inc()
	}
}
