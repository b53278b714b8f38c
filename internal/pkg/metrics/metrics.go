// Package metrics 定义 Prometheus 指标。
//
// 指标在包初始化时创建，InitMetrics 只负责注册到默认 Registry，可以安全地重复调用。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recipebox"

var (
	// HTTPRequestsTotal 按路由与状态码统计请求数。
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	// HTTPRequestDuration 请求耗时分布。
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// AuthEventsTotal 认证事件（register / login / verify）及其结果。
	AuthEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Authentication events by kind and outcome.",
	}, []string{"event", "outcome"})

	// FavoritesMutationsTotal 收藏变更次数。
	FavoritesMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "favorites_mutations_total",
		Help:      "Favorites add/remove operations.",
	}, []string{"op"})

	// CatalogCacheTotal 菜谱缓存命中情况。
	CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_cache_total",
		Help:      "Recipe catalog cache lookups by result (hit/miss).",
	}, []string{"result"})

	// CatalogUpstreamErrorsTotal 上游菜谱 API 错误次数。
	CatalogUpstreamErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_upstream_errors_total",
		Help:      "Failed calls to the upstream recipe API.",
	})

	// RateLimitWaitDuration 等待令牌的耗时。
	RateLimitWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ratelimit_wait_seconds",
		Help:      "Time spent waiting for a rate limit token.",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})

	// RateLimitTimeoutTotal 等待令牌超时次数。
	RateLimitTimeoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_timeout_total",
		Help:      "Rate limit waits aborted by context.",
	})

	// RateLimitRejectedTotal 非阻塞检查被拒绝次数。
	RateLimitRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_rejected_total",
		Help:      "Requests rejected by a non-blocking rate limit check.",
	}, []string{"scope"})

	// NotifyJobsTotal 通知任务执行结果。
	NotifyJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notify_jobs_total",
		Help:      "Notification jobs by outcome.",
	}, []string{"outcome"})

	// NotifyQueueWorkers worker 池大小。
	NotifyQueueWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notify_queue_workers",
		Help:      "Configured notification worker pool size.",
	})
)

var once sync.Once

// InitMetrics 注册所有指标并记录 worker 池大小。
func InitMetrics(notifyWorkers int) {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AuthEventsTotal,
			FavoritesMutationsTotal,
			CatalogCacheTotal,
			CatalogUpstreamErrorsTotal,
			RateLimitWaitDuration,
			RateLimitTimeoutTotal,
			RateLimitRejectedTotal,
			NotifyJobsTotal,
			NotifyQueueWorkers,
		)
	})
	NotifyQueueWorkers.Set(float64(notifyWorkers))
}
