// Package observe exposes the relay's Prometheus collectors.
package observe

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds every collector the relay registers. All collectors live
// on a private registry so tests can build as many instances as they want.
type Metrics struct {
	registry *prometheus.Registry

	framesUploaded     prometheus.Counter
	framesServed       *prometheus.CounterVec
	frameBytes         prometheus.Histogram
	sessionsCreated    prometheus.Counter
	violationsIngested *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	framesUploaded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_frames_uploaded_total",
		Help: "Frames accepted from phone cameras.",
	})
	framesServed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_frames_served_total",
		Help: "Frames handed to polling agents, split by placeholder.",
	}, []string{"placeholder"})
	frameBytes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vigil_frame_bytes",
		Help:    "Size of uploaded frames.",
		Buckets: prometheus.ExponentialBuckets(1024, 2, 12),
	})
	sessionsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_sessions_created_total",
		Help: "Remote camera sessions created.",
	})
	violationsIngested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_violations_ingested_total",
		Help: "Violations archived by the relay.",
	}, []string{"kind", "severity", "source"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(framesUploaded, framesServed, frameBytes, sessionsCreated, violationsIngested)

	return &Metrics{
		registry:           registry,
		framesUploaded:     framesUploaded,
		framesServed:       framesServed,
		frameBytes:         frameBytes,
		sessionsCreated:    sessionsCreated,
		violationsIngested: violationsIngested,
	}
}

// TrackWSClients registers a gauge fed by fn, typically the hub's
// connected client count.
func (m *Metrics) TrackWSClients(fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "vigil_ws_clients",
		Help: "Currently connected websocket subscribers.",
	}, fn))
}

// RecordUpload counts an accepted frame and its size.
func (m *Metrics) RecordUpload(bytes int) {
	m.framesUploaded.Inc()
	m.frameBytes.Observe(float64(bytes))
}

// RecordFrameServed counts a frame delivered to a polling agent.
func (m *Metrics) RecordFrameServed(placeholder bool) {
	label := "false"
	if placeholder {
		label = "true"
	}
	m.framesServed.WithLabelValues(label).Inc()
}

// RecordSessionCreated counts a new remote camera session.
func (m *Metrics) RecordSessionCreated() {
	m.sessionsCreated.Inc()
}

// RecordViolation counts an archived violation.
func (m *Metrics) RecordViolation(kind, severity, source string) {
	m.violationsIngested.WithLabelValues(kind, severity, source).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return func(c *fiber.Ctx) error {
		h(c.Context())
		return nil
	}
}
