package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ayusman/mudra/internal/pipeline"
)

// Manager owns the pipeline metrics. It implements pipeline.Observer and
// pipeline.DropObserver.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	framesProcessed prometheus.Counter
	framesDropped   prometheus.Counter
	frameLatency    prometheus.Histogram

	outcomes    *prometheus.CounterVec
	gestures    *prometheus.CounterVec
	suppressed  *prometheus.CounterVec
	dispatches  *prometheus.CounterVec
	dispatchLat *prometheus.HistogramVec

	volumeLevel      prometheus.Gauge
	detectionEnabled prometheus.Gauge
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// metrics are registered with the default registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mudra",
		subsystem:        "pipeline",
		histogramBuckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Total number of frames run through the pipeline",
	})

	m.framesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_dropped_total",
		Help:      "Total number of frames replaced by a newer one before processing",
	})

	m.frameLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_processing_seconds",
		Help:      "Time spent classifying and dispatching one frame",
		Buckets:   m.histogramBuckets,
	})

	m.outcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hand_outcomes_total",
		Help:      "Per-hand results by status",
	}, []string{"status"})

	m.gestures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "gestures_total",
		Help:      "Recognized gestures by kind",
	}, []string{"kind"})

	m.suppressed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cooldown_suppressed_total",
		Help:      "Discrete gestures suppressed by the cooldown gate, by channel",
	}, []string{"channel"})

	m.dispatches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatches_total",
		Help:      "Executed commands by kind and result",
	}, []string{"kind", "result"})

	m.dispatchLat = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_seconds",
		Help:      "Time spent executing a command",
		Buckets:   m.histogramBuckets,
	}, []string{"kind"})

	m.volumeLevel = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "volume_level",
		Help:      "Last volume level reported by the controller (0-1)",
	})

	m.detectionEnabled = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detection_enabled",
		Help:      "1 when gesture detection is enabled",
	})
}

// Observe records a frame report.
func (m *Manager) Observe(_ context.Context, r pipeline.Report) {
	m.framesProcessed.Inc()
	m.frameLatency.Observe(r.Duration.Seconds())

	for _, o := range r.Outcomes {
		m.outcomes.WithLabelValues(string(o.Status)).Inc()
		if !o.Event.None() {
			m.gestures.WithLabelValues(string(o.Event.Kind)).Inc()
		}

		switch o.Status {
		case pipeline.StatusSuppressed:
			m.suppressed.WithLabelValues(o.Event.Channel()).Inc()
		case pipeline.StatusDispatched, pipeline.StatusFailed:
			result := "ok"
			if o.Status == pipeline.StatusFailed {
				result = "error"
			}
			kind := string(o.Command.Kind)
			m.dispatches.WithLabelValues(kind, result).Inc()
			m.dispatchLat.WithLabelValues(kind).Observe(o.Latency.Seconds())
		}

		if o.HasLevel {
			m.volumeLevel.Set(o.Level)
		}
	}
}

// ObserveDrop records a frame dropped from the mailbox.
func (m *Manager) ObserveDrop() {
	m.framesDropped.Inc()
}

// SetDetectionEnabled records whether detection is enabled.
func (m *Manager) SetDetectionEnabled(enabled bool) {
	if enabled {
		m.detectionEnabled.Set(1)
	} else {
		m.detectionEnabled.Set(0)
	}
}
