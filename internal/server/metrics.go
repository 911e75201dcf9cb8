package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cognicore/shortliffe/pkg/shortliffe/inference"
	"github.com/cognicore/shortliffe/pkg/shortliffe/query"
)

var (
	// httpRequests counts requests by route and status
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortliffe_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// httpDuration tracks request latency
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shortliffe_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"method", "route"})

	inferenceRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortliffe_inference_runs_total",
		Help: "Inference runs by whether they reached a fixpoint",
	}, []string{"fixpoint"})

	inferencePasses = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shortliffe_inference_passes",
		Help:    "Passes per inference run",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
	})

	inferredFacts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortliffe_inferred_facts_total",
		Help: "Facts derived or improved by inference",
	})

	skippedRules = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortliffe_skipped_rules_total",
		Help: "Rules skipped because they failed to evaluate",
	})

	// queries counts queries by outcome: concluded, near_miss, no_match, rejected
	queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortliffe_queries_total",
		Help: "Queries by outcome",
	}, []string{"outcome"})
)

func observeInference(res inference.Result) {
	inferenceRuns.WithLabelValues(strconv.FormatBool(res.Fixpoint)).Inc()
	inferencePasses.Observe(float64(res.Passes))
	inferredFacts.Add(float64(len(res.Inferred)))
	skippedRules.Add(float64(len(res.Skipped)))
}

func observeQuery(rep query.Report) {
	outcome := "no_match"
	switch {
	case !rep.Success:
		outcome = "rejected"
	case len(rep.Conclusions) > 0:
		outcome = "concluded"
	case len(rep.NearMisses) > 0:
		outcome = "near_miss"
	}
	queries.WithLabelValues(outcome).Inc()
}

// metricsMiddleware records request counts and latency per route template.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
