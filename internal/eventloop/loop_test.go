package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, size int) *Loop {
	t.Helper()
	l := New(size, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)
	return l
}

func TestLoop_FIFO(t *testing.T) {
	l := startLoop(t, 4)
	ctx := context.Background()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, l.Post(ctx, func() { got = append(got, i) }))
	}
	require.NoError(t, l.Sync(ctx, func() {}))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_NeverConcurrent(t *testing.T) {
	l := startLoop(t, 16)
	ctx := context.Background()

	var mu sync.Mutex
	running := 0
	overlap := false

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				l.Post(ctx, func() {
					mu.Lock()
					running++
					if running > 1 {
						overlap = true
					}
					mu.Unlock()
					time.Sleep(10 * time.Microsecond)
					mu.Lock()
					running--
					mu.Unlock()
				})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, l.Sync(ctx, func() {}))
	assert.False(t, overlap)
}

func TestLoop_PostAfterClose(t *testing.T) {
	l := startLoop(t, 1)
	l.Close()
	<-l.Done()

	assert.False(t, l.Post(context.Background(), func() {}))
	assert.ErrorIs(t, l.Sync(context.Background(), func() {}), ErrClosed)
}

func TestLoop_PostHonoursContextWhenFull(t *testing.T) {
	l := New(1, nil) // not running: the queue fills up
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.True(t, l.Post(ctx, func() {}))
	assert.False(t, l.Post(ctx, func() {}), "second post blocks until ctx expires")
}

func TestLoop_RecoversPanics(t *testing.T) {
	l := startLoop(t, 4)
	ctx := context.Background()

	l.Post(ctx, func() { panic("boom") })
	ran := false
	require.NoError(t, l.Sync(ctx, func() { ran = true }))
	assert.True(t, ran)
}

func TestLoop_RunStopsOnContext(t *testing.T) {
	l := New(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, l.Post(context.Background(), func() {}))
}
