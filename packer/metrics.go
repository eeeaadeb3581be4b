package packer

import "github.com/trufflesuite/ganache-sub010/metrics"

var (
	metricTransactionTypeCounter = metrics.LazyLoadCounterVec("packer_transaction_type", []string{"type", "status"})
	metricBlockGasUsed           = metrics.LazyLoadHistogram("packer_block_gas_used", []int64{0, 21000, 100_000, 1_000_000, 5_000_000, 15_000_000, 30_000_000})
)
