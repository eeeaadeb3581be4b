// Package stackedmap implements a map with nested save-restore points.
//
// All writes go into one append-only journal. A frame is just the journal
// offset at which it was pushed, so popping a frame truncates the journal
// and merging a frame drops its offset, handing its entries to the parent.
package stackedmap

// MapGetter defines getter method of map.
type MapGetter func(key any) (value any, exist bool, err error)

// StackedMap maintains maps in a stack.
// Each map inherits key/value of map that is at lower level.
// It acts as a map with save-restore/snapshot-revert manner.
type StackedMap struct {
	src       MapGetter
	journal   []journalEntry
	frames    []int         // journal offset where each frame starts
	revisions map[any][]int // journal indices of each key, ascending
}

type journalEntry struct {
	key   any
	value any
}

// New create an instance of StackedMap.
// src acts as source of data. The returned map has one base frame.
func New(src MapGetter) *StackedMap {
	return &StackedMap{
		src:       src,
		frames:    []int{0},
		revisions: make(map[any][]int),
	}
}

// Depth returns depth of stack.
func (sm *StackedMap) Depth() int {
	return len(sm.frames)
}

// Push pushes a new map on stack.
// It returns stack depth before push, which identifies the new frame.
func (sm *StackedMap) Push() int {
	sm.frames = append(sm.frames, len(sm.journal))
	return len(sm.frames) - 1
}

// Pop pops the map at top of stack.
// It will revert all Put operations since last Push, including those merged
// into it from frames pushed later.
func (sm *StackedMap) Pop() {
	sm.PopTo(len(sm.frames) - 1)
}

// PopTo pops maps until stack depth reaches depth.
func (sm *StackedMap) PopTo(depth int) {
	if depth < 0 || depth >= len(sm.frames) {
		return
	}
	start := sm.frames[depth]
	for i := len(sm.journal) - 1; i >= start; i-- {
		key := sm.journal[i].key
		revs := sm.revisions[key]
		if len(revs) <= 1 {
			delete(sm.revisions, key)
		} else {
			sm.revisions[key] = revs[:len(revs)-1]
		}
		sm.journal[i] = journalEntry{}
	}
	sm.journal = sm.journal[:start]
	sm.frames = sm.frames[:depth]
}

// Merge merges the map at top of stack into its parent.
// It panics when only the base frame is left.
func (sm *StackedMap) Merge() {
	if len(sm.frames) < 2 {
		panic("stackedmap: merge base frame")
	}
	sm.frames = sm.frames[:len(sm.frames)-1]
}

// Get gets value for given key.
// The second return value indicates whether the given key is found.
func (sm *StackedMap) Get(key any) (any, bool, error) {
	if revs, ok := sm.revisions[key]; ok {
		return sm.journal[revs[len(revs)-1]].value, true, nil
	}
	return sm.src(key)
}

// Put puts key value into map at stack top.
// It will panic if stack is empty.
func (sm *StackedMap) Put(key, value any) {
	if len(sm.frames) == 0 {
		panic("stackedmap: put on empty stack")
	}
	sm.revisions[key] = append(sm.revisions[key], len(sm.journal))
	sm.journal = append(sm.journal, journalEntry{key, value})
}

// Journal traverses journal entries of all Put operations, in the order they happened.
// The traversal aborts when cb returns false.
func (sm *StackedMap) Journal(cb func(key, value any) bool) {
	for _, e := range sm.journal {
		if !cb(e.key, e.value) {
			return
		}
	}
}

// Len returns number of journal entries.
func (sm *StackedMap) Len() int {
	return len(sm.journal)
}
