package merge

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmynk/housemerge/internal/models"
)

// Outcome labels for housemerge_merges_total.
const (
	OutcomeMerged          = "merged"
	OutcomePreviewed       = "previewed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
	OutcomeInvalid         = "invalid"
	OutcomeError           = "error"
)

// Metrics holds the Prometheus metrics for the merge engine.
// A nil *Metrics records nothing.
type Metrics struct {
	Merges   *prometheus.CounterVec
	Rows     *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics creates and registers the merge metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Merges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "housemerge_merges_total",
			Help: "Merge and preview requests by outcome",
		}, []string{"outcome"}),
		Rows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "housemerge_merge_rows_total",
			Help: "Rows touched by committed merges, by audit count key",
		}, []string{"kind"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "housemerge_merge_duration_seconds",
			Help:    "Wall time of merge requests, including lock wait",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observe(outcome string, counts *models.MoveCounts, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Merges.WithLabelValues(outcome).Inc()
	m.Duration.Observe(elapsed.Seconds())
	if counts != nil && outcome == OutcomeMerged {
		for kind, n := range counts.Map() {
			m.Rows.WithLabelValues(kind).Add(float64(n))
		}
	}
}

func outcomeOf(err error, dryRun bool) string {
	switch {
	case err == nil && dryRun:
		return OutcomePreviewed
	case err == nil:
		return OutcomeMerged
	case errors.Is(err, ErrAuthentication):
		return OutcomeUnauthenticated
	case errors.Is(err, ErrAuthorization):
		return OutcomeForbidden
	case ValidationKindOf(err) != "":
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
