package editor

import "github.com/prometheus/client_golang/prometheus"

// Metrics contadores de la sincronización optimista del editor.
type Metrics struct {
	applied    *prometheus.CounterVec
	confirmed  *prometheus.CounterVec
	rolledBack *prometheus.CounterVec
	pending    prometheus.Gauge
	sessions   prometheus.Gauge
	remote     *prometheus.HistogramVec
}

// NewMetrics crea las métricas y, si reg no es nil, las registra.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "layout",
			Subsystem: "sync",
			Name:      "mutations_applied_total",
			Help:      "Mutaciones aplicadas localmente y encoladas.",
		}, []string{"op"}),
		confirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "layout",
			Subsystem: "sync",
			Name:      "mutations_confirmed_total",
			Help:      "Mutaciones confirmadas por el backend.",
		}, []string{"op"}),
		rolledBack: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "layout",
			Subsystem: "sync",
			Name:      "mutations_rolled_back_total",
			Help:      "Mutaciones revertidas (incluye las arrastradas por FIFO de entidad).",
		}, []string{"op"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "layout",
			Subsystem: "sync",
			Name:      "mutations_pending",
			Help:      "Mutaciones pendientes de confirmar en todas las sesiones.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "layout",
			Subsystem: "editor",
			Name:      "sessions",
			Help:      "Sesiones de edición cargadas en memoria.",
		}),
		remote: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "layout",
			Subsystem: "sync",
			Name:      "remote_duration_seconds",
			Help:      "Latencia de las llamadas al backend por operación y resultado.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.applied, m.confirmed, m.rolledBack, m.pending, m.sessions, m.remote)
	}
	return m
}
