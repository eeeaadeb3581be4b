// Copyright (c) 2018 The VeChainThor developers

package txpool

import (
	"container/heap"
	"math/big"
	"slices"
	"sync"

	"github.com/holiman/uint256"

	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/tx"
)

// txObjectMap maintains the mapping of tx hash to tx object, and the per sender nonce lists.
type txObjectMap struct {
	lock     sync.RWMutex
	byHash   map[ganache.Bytes32]*txObject
	bySender map[ganache.Address]*txList
	seq      uint64
	// drained txs, kept until the next wash so a restore keeps their sequence
	retired map[ganache.Bytes32]*txObject
}

func newTxObjectMap() *txObjectMap {
	return &txObjectMap{
		byHash:   make(map[ganache.Bytes32]*txObject),
		bySender: make(map[ganache.Address]*txList),
		retired:  make(map[ganache.Bytes32]*txObject),
	}
}

func (m *txObjectMap) ContainsHash(txHash ganache.Bytes32) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, found := m.byHash[txHash]
	return found
}

func (m *txObjectMap) Get(txHash ganache.Bytes32) *txObject {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.byHash[txHash]
}

func (m *txObjectMap) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.byHash)
}

// Add puts the tx object into the map. base is the committed nonce of the sender.
// A tx with the same sender and nonce is replaced if the new one bumps both fee fields.
func (m *txObjectMap) Add(txObj *txObject, base uint64, opts *Options) (replaced *txObject, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, found := m.byHash[txObj.Hash()]; found {
		return nil, nil
	}

	list := m.bySender[txObj.sender]
	if list == nil {
		list = newTxList(base)
	}

	if previous := list.Get(txObj.Nonce()); previous != nil {
		if !bumped(txObj.MaxFeePerGas(), previous.MaxFeePerGas(), opts.PriceBump) ||
			!bumped(txObj.MaxPriorityFeePerGas(), previous.MaxPriorityFeePerGas(), opts.PriceBump) {
			return nil, errUnderpriced
		}
		replaced = previous
	} else {
		if len(m.byHash) >= opts.Limit {
			return nil, errPoolFull
		}
		if list.Len() >= opts.LimitPerAccount {
			return nil, errAccountQuota
		}
	}

	m.seq++
	txObj.seq = m.seq
	list.Put(txObj)
	m.bySender[txObj.sender] = list
	if replaced != nil {
		delete(m.byHash, replaced.Hash())
	}
	m.byHash[txObj.Hash()] = txObj
	list.Promote()
	return replaced, nil
}

func (m *txObjectMap) RemoveByHash(txHash ganache.Bytes32) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	txObj, ok := m.byHash[txHash]
	if !ok {
		return false
	}
	delete(m.byHash, txHash)
	list := m.bySender[txObj.sender]
	list.Remove(txObj.Nonce())
	if list.Len() == 0 {
		delete(m.bySender, txObj.sender)
	} else {
		list.Promote()
	}
	return true
}

// Senders returns senders having txs in the map.
func (m *txObjectMap) Senders() []ganache.Address {
	m.lock.RLock()
	defer m.lock.RUnlock()

	senders := make([]ganache.Address, 0, len(m.bySender))
	for sender := range m.bySender {
		senders = append(senders, sender)
	}
	return senders
}

// Executables returns executable txs in selection order, without removing them.
func (m *txObjectMap) Executables(baseFee *big.Int) tx.Transactions {
	m.lock.RLock()
	defer m.lock.RUnlock()

	var txs tx.Transactions
	m.selectExecutables(baseFee, func(txObj *txObject) bool {
		txs = append(txs, txObj.Transaction)
		return true
	})
	return txs
}

// Drain removes and returns executable txs in selection order, within the gas budget.
// A sender whose next tx does not fit is skipped, its later txs stay in the map.
func (m *txObjectMap) Drain(maxGas uint64, baseFee *big.Int) tx.Transactions {
	m.lock.Lock()
	defer m.lock.Unlock()

	var (
		taken     []*txObject
		remaining = maxGas
	)
	m.selectExecutables(baseFee, func(txObj *txObject) bool {
		if txObj.Gas() > remaining {
			return false
		}
		remaining -= txObj.Gas()
		taken = append(taken, txObj)
		return true
	})

	txs := make(tx.Transactions, 0, len(taken))
	for _, txObj := range taken {
		list := m.bySender[txObj.sender]
		list.Remove(txObj.Nonce())
		list.base = txObj.Nonce() + 1
		if list.Len() == 0 {
			delete(m.bySender, txObj.sender)
		}
		delete(m.byHash, txObj.Hash())
		txObj.executable = false
		m.retired[txObj.Hash()] = txObj
		txs = append(txs, txObj.Transaction)
	}
	return txs
}

// Restore puts drained txs back. A tx whose slot was taken meanwhile is dropped.
func (m *txObjectMap) Restore(txs tx.Transactions) (restored int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	touched := make(map[ganache.Address]*txList)
	for _, trx := range txs {
		hash := trx.Hash()
		if _, found := m.byHash[hash]; found {
			continue
		}
		txObj := m.retired[hash]
		if txObj == nil {
			resolved, err := resolveTx(trx)
			if err != nil {
				continue
			}
			m.seq++
			resolved.seq = m.seq
			txObj = resolved
		}
		delete(m.retired, hash)

		list := m.bySender[txObj.sender]
		if list == nil {
			list = newTxList(txObj.Nonce())
			m.bySender[txObj.sender] = list
		}
		if list.Get(txObj.Nonce()) != nil {
			continue
		}
		list.Put(txObj)
		if txObj.Nonce() < list.base {
			list.base = txObj.Nonce()
		}
		m.byHash[hash] = txObj
		touched[txObj.sender] = list
		restored++
	}
	for _, list := range touched {
		list.Promote()
	}
	return
}

// Wash forwards sender lists to their committed nonces, drops txs which can no longer
// fit into a block, and evicts the newest queued txs while over limit.
// With settle set, drained txs are forgotten and can no longer be restored with their seq.
func (m *txObjectMap) Wash(bases map[ganache.Address]uint64, gasLimit uint64, limit int, settle bool) (removed, promoted []*txObject) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if settle {
		clear(m.retired)
	}

	for sender, list := range m.bySender {
		if base, ok := bases[sender]; ok {
			removed = append(removed, list.Forward(base)...)
		}
		for _, txObj := range list.All() {
			if txObj.Gas() > gasLimit {
				removed = append(removed, list.Remove(txObj.Nonce()))
			}
		}
		promoted = append(promoted, list.Promote()...)
		if list.Len() == 0 {
			delete(m.bySender, sender)
		}
	}
	for _, txObj := range removed {
		delete(m.byHash, txObj.Hash())
	}

	if over := len(m.byHash) - limit; over > 0 {
		var queued []*txObject
		for _, txObj := range m.byHash {
			if !txObj.executable {
				queued = append(queued, txObj)
			}
		}
		// newest first
		slices.SortFunc(queued, func(a, b *txObject) int { return compareSeq(b, a) })
		for _, txObj := range queued[:min(over, len(queued))] {
			list := m.bySender[txObj.sender]
			list.Remove(txObj.Nonce())
			if list.Len() == 0 {
				delete(m.bySender, txObj.sender)
			}
			delete(m.byHash, txObj.Hash())
			removed = append(removed, txObj)
		}
	}
	return
}

// ToTxObjects returns all tx objects in insertion order.
func (m *txObjectMap) ToTxObjects() []*txObject {
	m.lock.RLock()
	defer m.lock.RUnlock()

	objs := make([]*txObject, 0, len(m.byHash))
	for _, txObj := range m.byHash {
		objs = append(objs, txObj)
	}
	slices.SortFunc(objs, compareSeq)
	return objs
}

func (m *txObjectMap) ToTxs() tx.Transactions {
	objs := m.ToTxObjects()
	txs := make(tx.Transactions, 0, len(objs))
	for _, txObj := range objs {
		txs = append(txs, txObj.Transaction)
	}
	return txs
}

// selectExecutables visits executable txs by descending priority fee, then ascending sequence.
// Senders are visited in nonce order; visit returning false skips the rest of that sender.
// Txs whose fee cap is below baseFee stop their sender.
func (m *txObjectMap) selectExecutables(baseFee *big.Int, visit func(txObj *txObject) bool) {
	var h priceHeap
	push := func(objs []*txObject) {
		if len(objs) == 0 {
			return
		}
		if fee, ok := objs[0].priorityFee(baseFee); ok {
			heap.Push(&h, &priceItem{objs, fee})
		}
	}
	for _, list := range m.bySender {
		push(list.Executables())
	}
	for h.Len() > 0 {
		item := heap.Pop(&h).(*priceItem)
		if visit(item.objs[0]) {
			push(item.objs[1:])
		}
	}
}

func compareSeq(a, b *txObject) int {
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

type priceItem struct {
	objs []*txObject // executable run of one sender, head first
	fee  *uint256.Int
}

type priceHeap []*priceItem

func (h priceHeap) Len() int { return len(h) }
func (h priceHeap) Less(i, j int) bool {
	if c := h[i].fee.Cmp(h[j].fee); c != 0 {
		return c > 0
	}
	return h[i].objs[0].seq < h[j].objs[0].seq
}
func (h priceHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *priceHeap) Push(x any)   { *h = append(*h, x.(*priceItem)) }
func (h *priceHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
