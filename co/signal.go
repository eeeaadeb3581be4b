// Copyright (c) 2018 The VeChainThor developers

package co

import (
	"sync"
)

// Waiter provides channel to wait for.
// Each call of C returns the channel taken on the previous call, so no
// broadcast in between is lost. Wakeups may be spurious.
type Waiter interface {
	C() <-chan struct{}
}

// Signal broadcasts the occurrence of an event to any number of waiters.
// Unlike sync.Cond it is channel based, so waiting can be combined with
// other channels in a select. The zero value is ready to use.
type Signal struct {
	l  sync.Mutex
	ch chan struct{}
}

func (s *Signal) current() chan struct{} {
	s.l.Lock()
	defer s.l.Unlock()
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	return s.ch
}

// Broadcast wakes all goroutines that are waiting on s.
func (s *Signal) Broadcast() {
	s.l.Lock()
	defer s.l.Unlock()
	if s.ch != nil {
		close(s.ch)
	}
	s.ch = make(chan struct{})
}

// NewWaiter create a Waiter object for acquiring channel to wait for.
func (s *Signal) NewWaiter() Waiter {
	return &waiter{s: s, ref: s.current()}
}

type waiter struct {
	s   *Signal
	ref chan struct{}
}

func (w *waiter) C() <-chan struct{} {
	ch := w.ref
	w.ref = w.s.current()
	return ch
}
