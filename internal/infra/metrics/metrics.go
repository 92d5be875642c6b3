package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for a crawl. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry       *prometheus.Registry
	PagesTotal     prometheus.Counter
	JobsTotal      prometheus.Counter
	ResponsesTotal *prometheus.CounterVec
	ClicksTotal    *prometheus.CounterVec
	Stagnation     prometheus.Gauge
	ArrivalSeconds prometheus.Histogram
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yjs_pages_total",
		Help: "Distinct result pages persisted.",
	})
	jobs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yjs_jobs_total",
		Help: "Distinct job records persisted.",
	})
	responses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yjs_responses_total",
		Help: "Intercepted search responses by extraction outcome.",
	}, []string{"outcome"})
	clicks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yjs_clicks_total",
		Help: "Next-page click attempts by result.",
	}, []string{"result"})
	stagnation := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "yjs_stagnation",
		Help: "Consecutive pagination attempts without new jobs.",
	})
	arrival := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "yjs_arrival_seconds",
		Help:    "Time from click dispatch to the expected page arriving.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15},
	})

	registry.MustRegister(pages, jobs, responses, clicks, stagnation, arrival)

	return &Metrics{
		Registry:       registry,
		PagesTotal:     pages,
		JobsTotal:      jobs,
		ResponsesTotal: responses,
		ClicksTotal:    clicks,
		Stagnation:     stagnation,
		ArrivalSeconds: arrival,
	}
}

func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

func (m *Metrics) AddJobs(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.JobsTotal.Add(float64(n))
}

func (m *Metrics) IncResponse(outcome string) {
	if m == nil {
		return
	}
	m.ResponsesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncClick(result string) {
	if m == nil {
		return
	}
	m.ClicksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetStagnation(n int) {
	if m == nil {
		return
	}
	m.Stagnation.Set(float64(n))
}

func (m *Metrics) ObserveArrival(d time.Duration) {
	if m == nil {
		return
	}
	m.ArrivalSeconds.Observe(d.Seconds())
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logger.Logger) {
	if m == nil || addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", logger.Error(err))
		}
	}()
	log.Info("metrics endpoint listening", logger.String("addr", addr))
}
