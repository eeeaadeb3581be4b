package txpool

import (
	"slices"
	"sort"
)

// txList holds the pooled txs of one sender, ordered by nonce.
type txList struct {
	base   uint64 // next nonce expected from the sender
	nonces []uint64
	txs    map[uint64]*txObject
}

func newTxList(base uint64) *txList {
	return &txList{
		base: base,
		txs:  make(map[uint64]*txObject),
	}
}

func (l *txList) Len() int {
	return len(l.nonces)
}

func (l *txList) Get(nonce uint64) *txObject {
	return l.txs[nonce]
}

// Put inserts or replaces the tx at its nonce, returning the replaced one.
func (l *txList) Put(obj *txObject) *txObject {
	nonce := obj.Nonce()
	old := l.txs[nonce]
	l.txs[nonce] = obj
	if old == nil {
		i := sort.Search(len(l.nonces), func(i int) bool { return l.nonces[i] >= nonce })
		l.nonces = slices.Insert(l.nonces, i, nonce)
	}
	return old
}

func (l *txList) Remove(nonce uint64) *txObject {
	obj := l.txs[nonce]
	if obj == nil {
		return nil
	}
	delete(l.txs, nonce)
	i := sort.Search(len(l.nonces), func(i int) bool { return l.nonces[i] >= nonce })
	l.nonces = slices.Delete(l.nonces, i, i+1)
	return obj
}

// Forward drops txs with nonce below base and sets the new base.
func (l *txList) Forward(base uint64) []*txObject {
	var removed []*txObject
	for len(l.nonces) > 0 && l.nonces[0] < base {
		removed = append(removed, l.Remove(l.nonces[0]))
	}
	l.base = base
	return removed
}

// Promote marks the contiguous run from base as executable and the rest as queued.
// It returns txs whose state flipped to executable.
func (l *txList) Promote() []*txObject {
	var promoted []*txObject
	next := l.base
	for _, nonce := range l.nonces {
		obj := l.txs[nonce]
		executable := nonce == next
		if executable {
			next++
			if !obj.executable {
				promoted = append(promoted, obj)
			}
		}
		obj.executable = executable
	}
	return promoted
}

// Executables returns the contiguous run from base.
func (l *txList) Executables() []*txObject {
	var objs []*txObject
	next := l.base
	for _, nonce := range l.nonces {
		if nonce != next {
			break
		}
		objs = append(objs, l.txs[nonce])
		next++
	}
	return objs
}

// Last returns the tx with the highest nonce.
func (l *txList) Last() *txObject {
	if len(l.nonces) == 0 {
		return nil
	}
	return l.txs[l.nonces[len(l.nonces)-1]]
}

func (l *txList) All() []*txObject {
	objs := make([]*txObject, 0, len(l.nonces))
	for _, nonce := range l.nonces {
		objs = append(objs, l.txs[nonce])
	}
	return objs
}
