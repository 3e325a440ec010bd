package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for battle matches.
type Metrics struct {
	MatchesStarted      prometheus.Counter
	MatchesFinished     prometheus.Counter
	AnswersRecorded     *prometheus.CounterVec
	ResponseTime        prometheus.Histogram
	PersistenceResults  *prometheus.CounterVec
	AnnouncementFailure prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests to
// avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MatchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "matches_started_total",
			Help:      "Matches started",
		}),
		MatchesFinished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "matches_finished_total",
			Help:      "Matches where every student reached the quota",
		}),
		AnswersRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "answers_recorded_total",
			Help:      "Answers recorded, by correctness",
		}, []string{"correct"}),
		ResponseTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "battle",
			Name:      "response_time_seconds",
			Help:      "Time from question display to answer",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 20, 30},
		}),
		PersistenceResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "answer_persistence_total",
			Help:      "Answer persistence outcomes after retries",
		}, []string{"result"}),
		AnnouncementFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "announcement_failures_total",
			Help:      "Failed turn announcements",
		}),
	}
}
