package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

// Recorder is the narrow interface usecase and worker code depend on, kept
// separate from the concrete Prometheus registry so fakes are trivial to
// write in tests.
type Recorder interface {
	ObserveProcessed(status string, workerID string, duration time.Duration)
	IncQueueError(workerID string)
	SetQueueDepth(workerID string, depth float64)
}

// Metrics wires the four series named for this worker onto its own
// registry, plus the standard process/Go self-metrics.
type Metrics struct {
	registry *prometheus.Registry

	tasksProcessed *prometheus.CounterVec
	processingTime *prometheus.HistogramVec
	queueErrors    *prometheus.CounterVec
	queueDepth     *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	m := &Metrics{
		registry: reg,
		tasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Total number of video processing tasks handled, by terminal status.",
		}, []string{"status", "worker_id"}),
		processingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_processing_seconds",
			Help:      "Time spent processing a single task end to end.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"status", "worker_id"}),
		queueErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_errors_total",
			Help:      "Total number of transport-level queue errors encountered.",
		}, []string{"worker_id"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Last observed queue depth as seen by a worker's fetch.",
		}, []string{"worker_id"}),
	}

	reg.MustRegister(m.tasksProcessed, m.processingTime, m.queueErrors, m.queueDepth)
	return m
}

func (m *Metrics) ObserveProcessed(status string, workerID string, duration time.Duration) {
	m.tasksProcessed.WithLabelValues(status, workerID).Inc()
	m.processingTime.WithLabelValues(status, workerID).Observe(duration.Seconds())
}

func (m *Metrics) IncQueueError(workerID string) {
	m.queueErrors.WithLabelValues(workerID).Inc()
}

func (m *Metrics) SetQueueDepth(workerID string, depth float64) {
	m.queueDepth.WithLabelValues(workerID).Set(depth)
}

// Server exposes the registry over GET /metrics, reusing the teacher's
// echo-based graceful shutdown idiom for what used to be its API server.
type Server struct {
	echo *echo.Echo
	log  logger.Logger
}

func NewServer(m *Metrics, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))
	return &Server{echo: e, log: log}
}

func (s *Server) Start(addr string) {
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("metrics server stopped: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
