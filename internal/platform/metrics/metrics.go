package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several collectors (one per test) can
// coexist. All recording helpers are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	PatientsCreatedTotal prometheus.Counter
	PatientsLoaded       prometheus.Gauge
	QuotesTotal          prometheus.Counter
	PaymentsTotal        *prometheus.CounterVec
	LedgerRowsTotal      prometheus.Counter
	AmountCollectedTotal prometheus.Counter
	IntegrityErrorsTotal *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"method", "path"}),

		PatientsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "patients_created_total",
			Help:      "Total number of patient records created.",
		}),

		PatientsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "patients_loaded",
			Help:      "Patients held in memory after the last load.",
		}),

		QuotesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "quotes_total",
			Help:      "Total bills quoted.",
		}),

		PaymentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "payments_total",
			Help:      "Payments recorded by method.",
		}, []string{"method"}),

		LedgerRowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "ledger_rows_total",
			Help:      "Payment ledger rows appended.",
		}),

		AmountCollectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "amount_collected_total",
			Help:      "Sum of discounted totals of recorded payments.",
		}),

		IntegrityErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "integrity_errors_total",
			Help:      "Corrupt rows encountered while loading persisted data.",
		}, []string{"source"}),
	}
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) PatientCreated() {
	if c == nil {
		return
	}
	c.PatientsCreatedTotal.Inc()
}

func (c *Collector) SetPatientsLoaded(n int) {
	if c == nil {
		return
	}
	c.PatientsLoaded.Set(float64(n))
}

func (c *Collector) Quoted() {
	if c == nil {
		return
	}
	c.QuotesTotal.Inc()
}

func (c *Collector) PaymentRecorded(method string, rows int, collected float64) {
	if c == nil {
		return
	}
	c.PaymentsTotal.WithLabelValues(method).Inc()
	c.LedgerRowsTotal.Add(float64(rows))
	c.AmountCollectedTotal.Add(collected)
}

func (c *Collector) IntegrityError(source string) {
	if c == nil {
		return
	}
	c.IntegrityErrorsTotal.WithLabelValues(source).Inc()
}
