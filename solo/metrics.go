package solo

import "github.com/trufflesuite/ganache-sub010/metrics"

var (
	metricBlocksProduced  = metrics.LazyLoadCounterVec("solo_blocks_produced_count", []string{"trigger"})
	metricCyclesAborted   = metrics.LazyLoadCounter("solo_cycles_aborted_count")
	metricProduceDuration = metrics.LazyLoadHistogram("solo_produce_duration_ms", []int64{1, 5, 10, 50, 100, 500, 1000, 5000})
)
