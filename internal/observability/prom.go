package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Prom struct {
	reg prometheus.Gatherer

	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Spreadsheet mirror
	MirrorResults  *prometheus.CounterVec
	MirrorDuration *prometheus.HistogramVec

	// Check-ins
	CheckinsTotal *prometheus.CounterVec
}

func NewProm(reg *prometheus.Registry) *Prom {
	p := &Prom{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jumpin",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "jumpin",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "jumpin",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "jumpin",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jumpin",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		MirrorResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jumpin",
				Subsystem: "mirror",
				Name:      "results_total",
				Help:      "Spreadsheet mirror writes by op and result.",
			},
			[]string{"op", "result"}, // result=ok|row_not_found|circuit_open|unauthorized|error
		),
		MirrorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "jumpin",
				Subsystem: "mirror",
				Name:      "duration_seconds",
				Help:      "Spreadsheet mirror write latency.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"op"},
		),
		CheckinsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jumpin",
				Name:      "checkins_total",
				Help:      "Check-in attempts by result.",
			},
			[]string{"result"}, // result=ok|duplicate|not_found|failed
		),
	}

	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.MirrorResults, p.MirrorDuration,
		p.CheckinsTotal,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()

		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// ObserveMirror records one spreadsheet mirror outcome.
func (p *Prom) ObserveMirror(op, result string, d time.Duration) {
	p.MirrorResults.WithLabelValues(op, result).Inc()
	p.MirrorDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prom) ObserveCheckin(result string) {
	p.CheckinsTotal.WithLabelValues(result).Inc()
}

// Handler serves the registry this Prom was built on.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
