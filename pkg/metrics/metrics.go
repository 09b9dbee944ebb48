// Package metrics provides the centralized Prometheus metrics registry for
// the collector. All metrics are defined in their respective packages
// (client, collector, store, httpcache, ratelimit) to maintain modularity
// and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the collector.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - glmr_api_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - glmr_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - glmr_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - glmr_api_cache_served_total (Counter): Responses served from the response cache after a 304
//
// Retry Metrics (pkg/client):
//   - glmr_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - glmr_api_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - glmr_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - glmr_rate_limit_remaining (Gauge): Requests remaining in the current GitLab rate limit window
//   - glmr_rate_limit_low_total (Counter): Responses observed with a low remaining budget
//
// Response Cache Metrics (pkg/httpcache):
//   - glmr_response_cache_hits_total (Counter): Response cache hits
//   - glmr_response_cache_misses_total (Counter): Response cache misses
//   - glmr_response_cache_errors_total{operation} (Counter): Cache operation errors
//
// Record Cache Metrics (pkg/store):
//   - glmr_record_cache_records (Gauge): Records currently held by the cache
//   - glmr_record_cache_corrupt_lines_total (Counter): Cache lines dropped during load
//
// Collector Metrics (pkg/collector):
//   - glmr_collector_items_seen_total (Counter): Merge requests considered across all listings
//   - glmr_collector_records_written_total (Counter): Records that passed the staleness check
//   - glmr_collector_records_skipped_total (Counter): Records skipped because the cached copy was as fresh
//   - glmr_collector_items_discarded_total (Counter): Merge requests discarded after a detail-fetch failure
//   - glmr_collector_projects_skipped_total (Counter): Projects skipped because their listing failed
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(glmr_api_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(glmr_api_request_duration_seconds_bucket[5m]))
//
//   # Response Cache Hit Rate
//   sum(rate(glmr_response_cache_hits_total[5m])) /
//   (sum(rate(glmr_response_cache_hits_total[5m])) + sum(rate(glmr_response_cache_misses_total[5m])))
//
//   # Rate Limit Headroom
//   glmr_rate_limit_remaining < 50
//
//   # Share of Listed Items Actually Written
//   rate(glmr_collector_records_written_total[15m]) / rate(glmr_collector_items_seen_total[15m])
