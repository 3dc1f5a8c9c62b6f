package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/mkvroute/internal/dispatch"
	"github.com/danmuck/mkvroute/internal/ebml"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mkvroute",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests served by the report surface, by route template.",
		},
		[]string{"route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mkvroute",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Report surface request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	dispatchElements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mkvroute",
			Subsystem: "dispatch",
			Name:      "elements_total",
			Help:      "Elements sent through a dispatch table, by outcome.",
		},
		[]string{"table", "outcome"},
	)
	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mkvroute",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Wall time of one probe run.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"success"},
	)
	probeElements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mkvroute",
			Subsystem: "probe",
			Name:      "elements_read_total",
			Help:      "Elements read from input streams.",
		},
		[]string{"success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, dispatchElements, probeDuration, probeElements)
	})
}

func RecordHTTPRequest(route string, status int, duration time.Duration) {
	RegisterMetrics()
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func RecordProbe(duration time.Duration, elements int, success bool) {
	RegisterMetrics()
	successLabel := strconv.FormatBool(success)
	probeDuration.WithLabelValues(successLabel).Observe(duration.Seconds())
	probeElements.WithLabelValues(successLabel).Add(float64(elements))
}

// DispatchObserver counts dispatch outcomes for one table. Counters are
// resolved up front so Observe stays allocation free.
type DispatchObserver struct {
	matched   prometheus.Counter
	fallback  prometheus.Counter
	unhandled prometheus.Counter
}

func NewDispatchObserver(table string) *DispatchObserver {
	RegisterMetrics()
	return &DispatchObserver{
		matched:   dispatchElements.WithLabelValues(table, dispatch.OutcomeMatched.String()),
		fallback:  dispatchElements.WithLabelValues(table, dispatch.OutcomeDefault.String()),
		unhandled: dispatchElements.WithLabelValues(table, dispatch.OutcomeUnhandled.String()),
	}
}

func (o *DispatchObserver) Observe(_ ebml.Element, outcome dispatch.Outcome) {
	switch outcome {
	case dispatch.OutcomeMatched:
		o.matched.Inc()
	case dispatch.OutcomeDefault:
		o.fallback.Inc()
	default:
		o.unhandled.Inc()
	}
}
