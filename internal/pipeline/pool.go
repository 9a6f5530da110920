package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
)

// job is a unit of work submitted to the pool
type job func(ctx context.Context)

// pool is a bounded set of goroutines that run stage jobs
type pool struct {
	jobs       chan job
	maxWorkers int
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	logger     arbor.ILogger
}

// newPool creates a worker pool bound to ctx
func newPool(ctx context.Context, maxWorkers, queueSize int, logger arbor.ILogger) *pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if queueSize < maxWorkers {
		queueSize = maxWorkers
	}

	ctx, cancel := context.WithCancel(ctx)

	return &pool{
		jobs:       make(chan job, queueSize),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
}

// start launches the workers
func (p *pool) start() {
	p.logger.Debug().
		Int("max_workers", p.maxWorkers).
		Msg("Starting stage worker pool")

	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// submit queues a job without blocking; the queue holds one slot per stage
func (p *pool) submit(j job) error {
	select {
	case p.jobs <- j:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	default:
		return fmt.Errorf("worker pool queue is full")
	}
}

// stop closes the queue and waits for running jobs to return
func (p *pool) stop() {
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
}

func (p *pool) worker(id int) {
	defer p.wg.Done()

	for j := range p.jobs {
		j(p.ctx)
	}

	p.logger.Trace().
		Int("worker_id", id).
		Msg("Stage worker stopping - queue closed")
}
