// Copyright (c) 2024 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import "github.com/trufflesuite/ganache-sub010/metrics"

var (
	metricCacheHitMiss  = metrics.LazyLoadCounterVec("repo_cache_hit_miss_count", []string{"type", "event"})
	metricBestBlockNum  = metrics.LazyLoadGauge("repo_best_block_number")
	metricBlockTxsCount = metrics.LazyLoadHistogram("repo_block_txs_count", []int64{0, 1, 2, 5, 10, 20, 50, 100, 200, 500})
)
