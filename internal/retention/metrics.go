package retention

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus instruments for the retention subsystem.
type Metrics struct {
	passes     *prometheus.CounterVec
	evicted    prometheus.Counter
	freedBytes prometheus.Counter
	fileErrors prometheus.Counter
}

// NewMetrics creates and registers the retention metrics on the given
// registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "markui_retention_passes_total",
				Help: "Cleanup pass outcomes by result (completed, skipped, error).",
			},
			[]string{"result"},
		),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markui_retention_evicted_documents_total",
			Help: "Total number of documents evicted by cleanup passes.",
		}),
		freedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markui_retention_freed_bytes_total",
			Help: "Total bytes freed by cleanup passes.",
		}),
		fileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markui_retention_file_errors_total",
			Help: "File deletions that failed or found the file already missing.",
		}),
	}

	for _, c := range []prometheus.Collector{m.passes, m.evicted, m.freedBytes, m.fileErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observePass(result string, report *Report) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
	if report != nil {
		m.evicted.Add(float64(report.EvictedCount))
		m.freedBytes.Add(float64(report.FreedBytes))
		m.fileErrors.Add(float64(report.FileErrors))
	}
}
