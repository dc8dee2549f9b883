package queue

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, config Config) *Queue {
	t.Helper()
	q, err := New(filepath.Join(t.TempDir(), "queue.db"), config)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestQueue_EnqueueAndRun(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	var got string
	q.Register("greet", func(ctx context.Context, payload []byte) error {
		var p map[string]string
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		got = p["name"]
		return nil
	})

	id, err := q.Enqueue(ctx, "greet", map[string]string{"name": "filehub"}, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NoError(t, q.RunPending(ctx))
	assert.Equal(t, "filehub", got)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestQueue_DelayIsAFloor(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	var ran atomic.Bool
	q.Register("later", func(ctx context.Context, payload []byte) error {
		ran.Store(true)
		return nil
	})

	_, err := q.Enqueue(ctx, "later", struct{}{}, 200*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, q.RunPending(ctx))
	assert.False(t, ran.Load(), "job must not run before its delay elapses")

	time.Sleep(250 * time.Millisecond)
	require.NoError(t, q.RunPending(ctx))
	assert.True(t, ran.Load())
}

func TestQueue_RetriesUntilMaxAttempts(t *testing.T) {
	q := newTestQueue(t, Config{MaxAttempts: 3, RetryDelay: time.Millisecond})
	ctx := context.Background()

	var calls atomic.Int32
	q.Register("flaky", func(ctx context.Context, payload []byte) error {
		calls.Add(1)
		return errors.New("boom")
	})

	_, err := q.Enqueue(ctx, "flaky", struct{}{}, 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, q.RunPending(ctx))
	}

	assert.EqualValues(t, 3, calls.Load())

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending, "exhausted job must be removed")
}

func TestQueue_SucceedsAfterTransientFailure(t *testing.T) {
	q := newTestQueue(t, Config{MaxAttempts: 3, RetryDelay: time.Millisecond})
	ctx := context.Background()

	var calls atomic.Int32
	q.Register("transient", func(ctx context.Context, payload []byte) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	})

	_, err := q.Enqueue(ctx, "transient", struct{}{}, 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, q.RunPending(ctx))
	}

	assert.EqualValues(t, 2, calls.Load())
}

func TestQueue_UnknownTypeIsDropped(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "unregistered", struct{}{}, 0)
	require.NoError(t, err)

	require.NoError(t, q.RunPending(ctx))

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestQueue_WorkerPoolProcessesJobs(t *testing.T) {
	q := newTestQueue(t, Config{Workers: 2, PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var done atomic.Int32
	q.Register("count", func(ctx context.Context, payload []byte) error {
		done.Add(1)
		return nil
	})

	for i := 0; i < 10; i++ {
		_, err := q.Enqueue(ctx, "count", struct{}{}, 0)
		require.NoError(t, err)
	}

	q.Start(ctx)

	assert.Eventually(t, func() bool {
		return done.Load() == 10
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	q.Wait()
}
