package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadchat"

// Metrics holds every collector the service reports.
type Metrics struct {
	registry *prometheus.Registry

	questionVisits *prometheus.CounterVec
	answers        *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	outcomeScores  *prometheus.HistogramVec
	lookups        *prometheus.CounterVec
	llmFailures    prometheus.Counter
	persistence    *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	sessions       prometheus.Counter
	httpDuration   *prometheus.HistogramVec
}

// New creates collectors on a fresh registry that also carries Go runtime and
// process metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		questionVisits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "question_visits_total",
			Help:      "Questions presented, by question and section.",
		}, []string{"node", "section"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers submitted, by question and result.",
		}, []string{"node", "result"}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Terminal sentinels reached.",
		}, []string{"outcome"}),
		outcomeScores: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outcome_score",
			Help:      "Qualification score when a sentinel is reached.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"outcome"}),
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_lookups_total",
			Help:      "Knowledge answers served, by source.",
		}, []string{"source"}),
		llmFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_failures_total",
			Help:      "Language model calls that failed or returned nothing.",
		}),
		persistence: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Best-effort writes to the session repository that failed.",
		}, []string{"op"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_notifications_total",
			Help:      "Lead notification attempts, by result.",
		}, []string{"result"}),
		sessions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Conversations started.",
		}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns engine lifecycle hooks that count question visits and outcomes.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnQuestionEnter: func(_ context.Context, ev *domain.QuestionEvent) {
			m.questionVisits.WithLabelValues(ev.NodeID, string(ev.Section)).Inc()
		},
		OnOutcome: func(_ context.Context, ev *domain.OutcomeEvent) {
			m.outcomes.WithLabelValues(string(ev.Outcome)).Inc()
			m.outcomeScores.WithLabelValues(string(ev.Outcome)).Observe(float64(ev.Score))
		},
	}
}

// ObserveAnswer counts an answer as accepted or invalid.
func (m *Metrics) ObserveAnswer(nodeID string, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "invalid"
	}
	m.answers.WithLabelValues(nodeID, result).Inc()
}

// ObserveLookup counts a knowledge answer by source.
func (m *Metrics) ObserveLookup(source string) {
	m.lookups.WithLabelValues(source).Inc()
}

// ObserveLLMFailure counts a failed model call.
func (m *Metrics) ObserveLLMFailure() {
	m.llmFailures.Inc()
}

// ObservePersistenceFailure counts a failed repository write.
func (m *Metrics) ObservePersistenceFailure(op string) {
	m.persistence.WithLabelValues(op).Inc()
}

// ObserveNotification counts a lead notification attempt.
func (m *Metrics) ObserveNotification(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}

// ObserveSessionStart counts a new conversation.
func (m *Metrics) ObserveSessionStart() {
	m.sessions.Inc()
}

// ObserveHTTP records one request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
