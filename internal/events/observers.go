package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var (
	// busEvents counts events by type and job name. Job names come from a
	// small fixed set, so cardinality stays bounded.
	busEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_total",
			Help: "Total number of bot events by type and job.",
		},
		[]string{"type", "job"},
	)
)

func init() {
	prometheus.MustRegister(busEvents)
}

// LogObserver writes each event as a structured log line.
type LogObserver struct {
	log zerolog.Logger
}

// NewLogObserver returns an observer logging at info level for normal
// activity and warn level for failures.
func NewLogObserver(log zerolog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Observe implements Observer.
func (o *LogObserver) Observe(ev Event) {
	e := o.log.Info()
	if ev.Type == JobFailed {
		e = o.log.Warn()
	}
	e = e.Str("event", string(ev.Type)).Time("at", ev.At)
	if ev.Job != "" {
		e = e.Str("job", ev.Job)
	}
	for k, v := range ev.Fields {
		e = e.Str(k, v)
	}
	e.Msg("event")
}

// MetricsObserver increments the bot_events_total counter per event.
type MetricsObserver struct{}

// NewMetricsObserver returns a Prometheus-backed observer.
func NewMetricsObserver() *MetricsObserver { return &MetricsObserver{} }

// Observe implements Observer.
func (o *MetricsObserver) Observe(ev Event) {
	busEvents.WithLabelValues(string(ev.Type), ev.Job).Inc()
}
