// Copyright (c) 2024 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/trufflesuite/ganache-sub010/metrics"

var (
	metricAccountReads = metrics.LazyLoadCounterVec("state_account_reads_count", []string{"source"})
	metricStorageReads = metrics.LazyLoadCounterVec("state_storage_reads_count", []string{"source"})
)
