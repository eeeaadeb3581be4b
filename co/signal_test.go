// Copyright (c) 2018 The VeChainThor developers

package co_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trufflesuite/ganache-sub010/co"
)

func TestSignalBroadcastBeforeWaiter(t *testing.T) {
	var sig co.Signal
	sig.Broadcast()

	w := sig.NewWaiter()
	select {
	case <-w.C():
		t.Fatal("waiter created after broadcast should block")
	default:
	}
}

func TestSignalBroadcastAfterWaiter(t *testing.T) {
	var sig co.Signal

	var ws []co.Waiter
	for range 10 {
		ws = append(ws, sig.NewWaiter())
	}
	sig.Broadcast()

	for _, w := range ws {
		select {
		case <-w.C():
		case <-time.After(time.Second):
			t.Fatal("waiter not woken")
		}
	}
}

func TestSignalWaiterRearms(t *testing.T) {
	var sig co.Signal
	w := sig.NewWaiter()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-w.C()
		<-w.C()
	}()

	sig.Broadcast()
	time.Sleep(10 * time.Millisecond)
	sig.Broadcast()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter missed a broadcast")
	}
}

func TestGoes(t *testing.T) {
	var (
		goes co.Goes
		n    atomic.Int32
	)
	ctx, cancel := context.WithCancel(context.Background())
	for range 5 {
		goes.Go(func() { n.Add(1) })
	}
	goes.GoCtx(ctx, func(ctx context.Context) {
		<-ctx.Done()
		n.Add(1)
	})
	cancel()

	select {
	case <-goes.Done():
	case <-time.After(time.Second):
		t.Fatal("goroutines not done")
	}
	assert.Equal(t, int32(6), n.Load())
}
