package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerOnlyLastCallFires(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var mu sync.Mutex
	var fired []int
	for i := 1; i <= 5; i++ {
		i := i
		d.Trigger(func() {
			mu.Lock()
			fired = append(fired, i)
			mu.Unlock()
		})
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{5}, fired)
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestFetchGuardDropsConcurrentTriggers(t *testing.T) {
	var g FetchGuard

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan bool)

	go func() {
		done <- g.Run(func() {
			close(started)
			<-release
		})
	}()
	<-started

	assert.True(t, g.InFlight())
	assert.False(t, g.Run(func() { t.Error("second fetch ran while first was in flight") }))

	close(release)
	assert.True(t, <-done)
	assert.False(t, g.InFlight())

	assert.True(t, g.Run(func() {}))
}
