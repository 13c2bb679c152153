package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PasteCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitpaste_paste_created_total",
		Help: "no. of pastes created",
	})
	PasteRetrieved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitpaste_paste_retrieved_total",
		Help: "no. of pastes retrieved",
	})
	IdempotentReplays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitpaste_idempotent_replays_total",
		Help: "no. of create requests answered from the idempotency ledger",
	})
	CommitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitpaste_commit_failures_total",
		Help: "no. of failed git commit sequences",
	})
	PushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitpaste_push_failures_total",
		Help: "no. of failed git pushes",
	})
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitpaste_rate_limit_hits_total",
			Help: "no. of rate limit violations",
		},
		[]string{"endpoint"},
	)
	RenderCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitpaste_render_cache_hits_total",
		Help: "no. of render cache hits",
	})
	RenderCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitpaste_render_cache_misses_total",
		Help: "no. of render cache misses",
	})
)

func Init() {
}
