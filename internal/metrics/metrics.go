// Package metrics exposes Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksDispatched counts crawl tasks handed to the queue by the scheduler.
	TasksDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_tasks_dispatched_total",
		Help: "Number of crawl tasks dispatched by the scheduler.",
	})

	// CrawlsTotal counts crawl attempts by outcome.
	CrawlsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_crawls_total",
		Help: "Number of crawl attempts by outcome.",
	}, []string{"outcome"})

	// NewArticles counts articles persisted for the first time.
	NewArticles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_articles_new_total",
		Help: "Number of newly persisted articles.",
	})

	// CrawlDuration observes how long a single source crawl takes.
	CrawlDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "digest_crawl_duration_seconds",
		Help:    "Duration of a single source crawl.",
		Buckets: prometheus.DefBuckets,
	})

	// ArticlesArchived counts articles hidden by the lifecycle sweep.
	ArticlesArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_articles_archived_total",
		Help: "Number of articles archived by lifecycle maintenance.",
	})

	// ArticlesDeleted counts articles removed by the lifecycle sweep.
	ArticlesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_articles_deleted_total",
		Help: "Number of articles deleted by lifecycle maintenance.",
	})
)

// Crawl outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
