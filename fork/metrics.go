package fork

import "github.com/trufflesuite/ganache-sub010/metrics"

var (
	metricLookups        = metrics.LazyLoadCounterVec("fork_lookups_count", []string{"kind", "result"})
	metricRemoteCalls    = metrics.LazyLoadCounterVec("fork_remote_calls_count", []string{"kind"})
	metricRetries        = metrics.LazyLoadCounter("fork_remote_retries_count")
	metricRemoteDuration = metrics.LazyLoadHistogramVec("fork_remote_duration_ms", []string{"kind"}, metrics.BucketRemoteReq)
)
