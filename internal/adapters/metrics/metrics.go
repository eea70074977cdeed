package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
)

var (
	httpRequestsTotal *prometheus.CounterVec
	grantsIssuedTotal *prometheus.CounterVec
	votesTotal        prometheus.Counter
	conflictsTotal    *prometheus.CounterVec
	registerOnce      sync.Once
)

// Register creates the collectors on the default registry. It is safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epoll",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the API.",
		}, []string{"method", "path", "status"})
		grantsIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epoll",
			Name:      "grants_issued_total",
			Help:      "Access tokens issued, by grant type.",
		}, []string{"grant_type"})
		votesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "epoll",
			Name:      "votes_recorded_total",
			Help:      "Votes persisted on polls.",
		})
		conflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epoll",
			Name:      "debate_version_conflicts_total",
			Help:      "Optimistic concurrency conflicts on debate writes, by operation.",
		}, []string{"op"})
	})
}

func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Recorder forwards domain events to the registered collectors.
type Recorder struct{}

func NewRecorder() Recorder {
	Register()
	return Recorder{}
}

func (Recorder) GrantIssued(grantType domain.GrantType) {
	grantsIssuedTotal.WithLabelValues(string(grantType)).Inc()
}

func (Recorder) VoteRecorded() {
	votesTotal.Inc()
}

func (Recorder) VersionConflict(op string) {
	conflictsTotal.WithLabelValues(op).Inc()
}
