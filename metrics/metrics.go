// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipehub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recipehub_http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipehub_rate_limit_hits_total",
			Help: "Requests rejected by the per-IP limiter",
		},
	)

	// Domain counters
	RecipeVotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_recipe_votes_total",
			Help: "Upvotes and downvotes applied to recipes",
		},
		[]string{"direction"},
	)

	RecipeRatings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipehub_recipe_ratings_total",
			Help: "Ratings recorded on recipes",
		},
	)

	RecipeComments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_recipe_comments_total",
			Help: "Comment mutations on recipes",
		},
		[]string{"action"}, // added, edited, deleted
	)

	UserFollows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_user_follows_total",
			Help: "Follow and unfollow operations",
		},
		[]string{"action", "outcome"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_events_published_total",
			Help: "Domain events published to redis",
		},
		[]string{"type", "outcome"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
