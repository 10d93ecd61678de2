package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
	submissionsReceived     *prometheus.CounterVec
	reviewsCompleted        *prometheus.CounterVec
	reviewScoreDistribution prometheus.Histogram
	quizAttempts            *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the grading API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assess_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assess_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assess_errors_total",
			Help: "Total number of error responses returned.",
		}, []string{"method", "route", "status"})

		submissionsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assess_submissions_received_total",
			Help: "Submissions accepted into the review queue, labelled by lateness.",
		}, []string{"timeliness"})

		reviewsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assess_reviews_completed_total",
			Help: "Reviews finalised, labelled by mode (single or batch).",
		}, []string{"mode"})

		reviewScoreDistribution = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assess_review_score",
			Help:    "Distribution of final review scores.",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		})

		quizAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assess_quiz_attempts_total",
			Help: "Quiz attempts graded, labelled by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			submissionsReceived,
			reviewsCompleted,
			reviewScoreDistribution,
			quizAttempts,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// SubmissionsReceivedTotal exposes the submission intake counter.
func SubmissionsReceivedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsReceived
}

// ReviewsCompletedTotal exposes the completed review counter.
func ReviewsCompletedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewsCompleted
}

// ReviewScoreHistogram exposes the final score distribution.
func ReviewScoreHistogram() prometheus.Histogram {
	RegisterMetrics()
	return reviewScoreDistribution
}

// QuizAttemptsTotal exposes the quiz attempt counter.
func QuizAttemptsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return quizAttempts
}
