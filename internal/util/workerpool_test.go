package util

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsAllSubmittedFunctions(t *testing.T) {
	p := New(context.Background(), 2)
	var count int32
	for i := 0; i < 10; i++ {
		p.Submit(func() { atomic.AddInt32(&count, 1) })
	}
	p.Run()

	assert.Equal(t, int32(10), count)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New(context.Background(), 2)
	var inFlight, maxInFlight int32
	for i := 0; i < 8; i++ {
		p.Submit(func() {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				max := atomic.LoadInt32(&maxInFlight)
				if cur <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		})
	}
	p.Run()

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxInFlight)), 2)
}

func TestPoolZeroOrNegativeConcurrencyTreatedAsOne(t *testing.T) {
	p := New(context.Background(), 0)
	var count int32
	p.Submit(func() { atomic.AddInt32(&count, 1) })
	p.Submit(func() { atomic.AddInt32(&count, 1) })
	p.Run()

	assert.Equal(t, int32(2), count)
}

func TestPoolStopsLaunchingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(ctx, 1)
	ran := false
	p.Submit(func() { ran = true })
	p.Run()

	assert.False(t, ran, "no function should run once the context is already cancelled")
}
