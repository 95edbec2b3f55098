package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

// mockResult implements Result
type mockResult struct {
	err error
}

func (r *mockResult) GetError() error {
	return r.err
}

// mockJob implements Job
type mockJob struct {
	shouldErr bool
	executed  *int32 // atomic counter
}

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.shouldErr {
		return &mockResult{err: errors.New("job error")}
	}
	return &mockResult{err: nil}
}

func TestNewPool(t *testing.T) {
	ctx := context.Background()

	p1 := NewPool(ctx, 5, 0)
	if p1.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p1.workers)
	}
	if cap(p1.jobQueue) != 10 {
		t.Errorf("expected queue floor of 10, got %d", cap(p1.jobQueue))
	}

	p2 := NewPool(ctx, 0, 0)
	if p2.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p2.workers)
	}

	p3 := NewPool(ctx, 2, 50)
	if cap(p3.jobQueue) != 50 || cap(p3.results) != 50 {
		t.Errorf("expected buffers of 50, got %d and %d", cap(p3.jobQueue), cap(p3.results))
	}
}

func TestPool_Execution(t *testing.T) {
	pool := NewPool(context.Background(), 2, 10)
	pool.Start()

	var executed int32
	count := 10

	for i := 0; i < count; i++ {
		pool.Submit(&mockJob{executed: &executed})
	}

	results := pool.Wait()

	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}
}

// A full batch is submitted before Wait starts draining, so the buffers
// must absorb every job and every result up front.
func TestPool_SingleWorkerLargeBatch(t *testing.T) {
	count := 30
	pool := NewPool(context.Background(), 1, count)
	pool.Start()

	var executed int32
	for i := 0; i < count; i++ {
		pool.Submit(&mockJob{executed: &executed})
	}

	results := pool.Wait()
	if len(results) != count {
		t.Fatalf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}
}

func TestPool_ErrorsSurfaceInResults(t *testing.T) {
	pool := NewPool(context.Background(), 2, 2)
	pool.Start()

	pool.Submit(&mockJob{})
	pool.Submit(&mockJob{shouldErr: true})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failed result, got %d", failed)
	}
}

func TestPool_CancelledContextDropsSubmissions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 2, 5)
	pool.Start()
	cancel()

	var executed int32
	for i := 0; i < 5; i++ {
		pool.Submit(&mockJob{executed: &executed})
	}
	results := pool.Wait()

	// Dropped jobs produce no results; the caller sees the shortfall.
	if len(results) > 5 {
		t.Errorf("expected at most 5 results, got %d", len(results))
	}
	if n := int(atomic.LoadInt32(&executed)); n < len(results) {
		t.Errorf("collected %d results from %d executed jobs", len(results), n)
	}
}
