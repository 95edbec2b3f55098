// Package worker provides the bounded pool the stage processors dispatch
// enrichment jobs onto. Workers block on the model client's shared
// request/token budget, not on each other.
package worker

import (
	"context"
	"sync"
)

// Job is one unit of work.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job.
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers.
type Pool struct {
	workers   int
	jobQueue  chan Job
	results   chan Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPool creates a pool with the given worker count. queue sizes the
// job and result buffers and must cover the largest number of jobs
// submitted before Wait: with room for every result, a worker never
// blocks on delivery while the submitter is still queueing. The pool's
// lifetime is bounded by ctx: cancellation stops pickup of queued jobs.
func NewPool(ctx context.Context, workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue < workers*2 {
		queue = workers * 2
	}
	poolCtx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queue),
		results:  make(chan Result, queue),
		ctx:      poolCtx,
		cancel:   cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				// Cancellation raced the finish. Deliver anyway if the
				// buffer has room; completed work should not be dropped.
				select {
				case p.results <- result:
				default:
				}
				return
			}
		}
	}
}

// Submit queues a job. A cancelled pool drops submissions silently; the
// caller sees the shortfall in the collected results.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- job:
	}
}

// Wait closes the queue, waits for in-flight jobs to finish, and returns
// every result.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

// Shutdown cancels the pool and waits for workers to exit.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() { close(p.results) })
}
