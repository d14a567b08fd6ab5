package runlock

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireRejectsWhileHeld(t *testing.T) {
	var l Lock
	assert.False(t, l.Held())

	release, ok := l.TryAcquire()
	require.True(t, ok)
	assert.True(t, l.Held())

	_, ok = l.TryAcquire()
	assert.False(t, ok)

	release()
	assert.False(t, l.Held())

	again, ok := l.TryAcquire()
	require.True(t, ok)

	// A stale release must not free someone else's hold.
	release()
	assert.True(t, l.Held())
	again()
	assert.False(t, l.Held())
}

func TestTryAcquireConcurrent(t *testing.T) {
	var (
		l     Lock
		wins  atomic.Int32
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := l.TryAcquire(); ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.True(t, l.Held())
}
