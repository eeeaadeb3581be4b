package txpool

import (
	"github.com/trufflesuite/ganache-sub010/metrics"
	"github.com/trufflesuite/ganache-sub010/tx"
)

var (
	metricTxPoolGauge  = metrics.LazyLoadGaugeVec("txpool_current_tx_count", []string{"source", "type"})
	metricBadTxCounter = metrics.LazyLoadCounterVec("txpool_bad_tx_count", []string{"reason"})
	metricExecutables  = metrics.LazyLoadGauge("txpool_executable_tx_count")
)

func txTypeString(txType byte) string {
	if txType == tx.TypeDynamicFee {
		return "DynamicFee"
	}
	return "Legacy"
}
