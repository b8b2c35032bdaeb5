package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_TryAcquire(t *testing.T) {
	table := NewTable()

	release, ok := table.TryAcquire(Key("g1", "u1"))
	require.True(t, ok)
	assert.True(t, table.Held("g1:u1"))

	_, ok = table.TryAcquire("g1:u1")
	assert.False(t, ok, "second acquire of a held key must fail")

	other, ok := table.TryAcquire(Key("g1", "u2"))
	require.True(t, ok, "different keys are independent")
	other()

	release()
	assert.False(t, table.Held("g1:u1"))

	again, ok := table.TryAcquire("g1:u1")
	require.True(t, ok)
	again()
}

func TestTable_ReleaseIsIdempotent(t *testing.T) {
	table := NewTable()
	release, ok := table.TryAcquire("k")
	require.True(t, ok)
	release()

	next, ok := table.TryAcquire("k")
	require.True(t, ok)
	release()
	assert.True(t, table.Held("k"), "a stale release must not free the next holder")
	next()
}

func TestTable_ExactlyOneWinnerUnderContention(t *testing.T) {
	table := NewTable()
	var winners int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	releases := make(chan func(), 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if release, ok := table.TryAcquire("guild:user"); ok {
				atomic.AddInt32(&winners, 1)
				releases <- release
			}
		}()
	}
	close(start)
	wg.Wait()
	close(releases)

	assert.Equal(t, int32(1), winners)
	for release := range releases {
		release()
	}
}

func TestTable_AcquireWaitsForRelease(t *testing.T) {
	table := NewTable()
	release, ok := table.TryAcquire("alloc:g1")
	require.True(t, ok)

	acquired := make(chan func())
	go func() {
		next, err := table.Acquire(context.Background(), "alloc:g1")
		if err == nil {
			acquired <- next
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case next := <-acquired:
		assert.True(t, table.Held("alloc:g1"))
		next()
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by release")
	}
	assert.False(t, table.Held("alloc:g1"))
}

func TestTable_AcquireHonoursContext(t *testing.T) {
	table := NewTable()
	release, ok := table.TryAcquire("k")
	require.True(t, ok)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := table.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTable_AcquireSerializesHolders(t *testing.T) {
	table := NewTable()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := table.Acquire(context.Background(), "alloc:g1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.False(t, table.Held("alloc:g1"))
}
