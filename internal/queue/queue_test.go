package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/ci-warden/internal/core"
)

func newTestQueue(capacity int) *Queue {
	return New(capacity, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func runQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestEnqueue(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(2)

	first, err := q.Enqueue(ctx, &core.JobData{SHA: "a"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := q.Enqueue(ctx, &core.JobData{SHA: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = q.Enqueue(ctx, &core.JobData{SHA: "c"})
	assert.ErrorIs(t, err, ErrQueueFull)

	_, err = q.Enqueue(ctx, nil)
	var missing *core.MissingFieldError
	assert.ErrorAs(t, err, &missing)

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].Data.SHA)
	assert.Equal(t, "b", pending[1].Data.SHA)
}

func TestRun_WithoutHandler(t *testing.T) {
	q := newTestQueue(1)
	assert.ErrorIs(t, q.Run(context.Background()), ErrNoHandler)
}

func TestRun_ProcessesInOrderOneAtATime(t *testing.T) {
	q := newTestQueue(10)

	var (
		mu      sync.Mutex
		order   []string
		active  int32
		overlap bool
	)
	q.Process(func(_ context.Context, job *core.Job) {
		mu.Lock()
		if atomic.AddInt32(&active, 1) > 1 {
			overlap = true
		}
		order = append(order, job.Data.SHA)
		mu.Unlock()
		// complete asynchronously; the queue must wait for it
		go func() {
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			job.Done(nil)
		}()
	})

	completed := make(chan string, 3)
	q.OnComplete(func(job *core.Job, _ error) { completed <- job.Data.SHA })

	for _, sha := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(context.Background(), &core.JobData{SHA: sha})
		require.NoError(t, err)
	}
	runQueue(t, q)

	for range 3 {
		select {
		case <-completed:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.False(t, overlap, "handler ran concurrently")
	assert.Empty(t, q.Pending())
}

func TestRun_ListenersReceiveErrors(t *testing.T) {
	q := newTestQueue(10)
	boom := errors.New("boom")

	q.Process(func(_ context.Context, job *core.Job) {
		switch job.Data.SHA {
		case "panic":
			panic("handler exploded")
		case "fail":
			job.Done(boom)
		default:
			job.Done(nil)
		}
	})

	errs := make(chan error, 2)
	q.OnError(func(_ *core.Job, err error) { errs <- err })
	completed := make(chan string, 3)
	q.OnComplete(func(job *core.Job, _ error) { completed <- job.Data.SHA })

	for _, sha := range []string{"panic", "fail", "ok"} {
		_, err := q.Enqueue(context.Background(), &core.JobData{SHA: sha})
		require.NoError(t, err)
	}
	runQueue(t, q)

	var got []string
	for range 3 {
		select {
		case sha := <-completed:
			got = append(got, sha)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.Equal(t, []string{"panic", "fail", "ok"}, got)

	require.Len(t, errs, 2)
	assert.ErrorContains(t, <-errs, "handler exploded")
	assert.ErrorIs(t, <-errs, boom)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	q := newTestQueue(1)
	q.Process(func(context.Context, *core.Job) {
		// never completes
	})
	_, err := q.Enqueue(context.Background(), &core.JobData{SHA: "stuck"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestUnforce(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(10)
	forced := func() *bool { v := true; return &v }

	current, err := q.Enqueue(ctx, &core.JobData{SHA: "a", Force: forced()})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, &core.JobData{SHA: "a", Force: forced()})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, &core.JobData{SHA: "a"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, &core.JobData{SHA: "b", Force: forced()})
	require.NoError(t, err)

	assert.Equal(t, 2, q.Unforce("a", current))

	pending := q.Pending()
	require.Len(t, pending, 4)
	assert.True(t, pending[0].Data.IsForced())
	for _, p := range pending[1:3] {
		require.NotNil(t, p.Data.Force)
		assert.False(t, *p.Data.Force)
	}
	assert.True(t, pending[3].Data.IsForced())
}

func TestPending_ReturnsCopies(t *testing.T) {
	q := newTestQueue(10)
	force := true
	job, err := q.Enqueue(context.Background(), &core.JobData{SHA: "a", Force: &force})
	require.NoError(t, err)

	snapshot := q.Pending()
	require.Len(t, snapshot, 1)
	assert.Equal(t, job.ID, snapshot[0].ID)
	assert.Equal(t, 1, q.Len())

	q.Unforce("a", nil)
	assert.True(t, snapshot[0].Data.IsForced(), "earlier snapshot must not change")
	assert.False(t, q.Pending()[0].Data.IsForced())

	*snapshot[0].Data.Force = true
	assert.False(t, q.Pending()[0].Data.IsForced(), "snapshots must not alias queued data")
}
