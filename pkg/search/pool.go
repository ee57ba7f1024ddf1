package search

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/harliandi/go-quadtree/pkg/metrics"
)

var (
	// ErrPoolBusy is returned when the trial queue is full
	ErrPoolBusy = errors.New("trial pool is busy")
	// ErrPoolStopped is returned when submitting to a stopped pool
	ErrPoolStopped = errors.New("trial pool is stopped")
)

// Evaluator measures the compression ratio produced by building at a threshold.
// Implementations must not share mutable state between calls: the pool runs
// them concurrently.
type Evaluator func(ctx context.Context, threshold float64) (float64, error)

// job is one threshold trial
type job struct {
	ctx       context.Context
	threshold float64
	result    chan<- Trial
}

// Trial is the outcome of one evaluation
type Trial struct {
	Threshold float64
	Ratio     float64
	Err       error
}

// WorkerPool runs trial evaluations on a fixed set of goroutines
type WorkerPool struct {
	eval    Evaluator
	jobs    chan job
	workers int
	wg      sync.WaitGroup
	start   sync.Once
	stop    sync.Once
	mu      sync.RWMutex
	stopped bool
}

// DefaultWorkers is the host's CPU count with a floor of 3
func DefaultWorkers() int {
	return max(runtime.NumCPU(), 3)
}

// NewWorkerPool creates a pool of workers goroutines evaluating with eval.
// A non-positive worker count uses DefaultWorkers.
func NewWorkerPool(workers int, eval Evaluator) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &WorkerPool{
		eval:    eval,
		jobs:    make(chan job, workers*2),
		workers: workers,
	}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start() {
	p.start.Do(func() {
		log.Printf("Starting trial pool with %d workers", p.workers)
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		metrics.UpdateTrialQueue(len(p.jobs))
		j.result <- p.run(j)
	}
}

// run evaluates one job, turning a panicking evaluator into a failed trial
func (p *WorkerPool) run(j job) (t Trial) {
	t.Threshold = j.threshold
	defer func() {
		if r := recover(); r != nil {
			t.Err = errors.New("trial panicked")
			log.Printf("Trial at threshold %g panicked: %v", j.threshold, r)
		}
		metrics.RecordTrial(t.Err == nil)
	}()
	if err := j.ctx.Err(); err != nil {
		t.Err = err
		return t
	}
	t.Ratio, t.Err = p.eval(j.ctx, j.threshold)
	return t
}

// Submit queues a trial and waits for its result.
// Returns ErrPoolBusy if the queue is full.
func (p *WorkerPool) Submit(ctx context.Context, threshold float64) Trial {
	p.Start()

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return Trial{Threshold: threshold, Err: ErrPoolStopped}
	}
	resultChan := make(chan Trial, 1)
	select {
	case <-ctx.Done():
		p.mu.RUnlock()
		return Trial{Threshold: threshold, Err: ctx.Err()}
	case p.jobs <- job{ctx: ctx, threshold: threshold, result: resultChan}:
		p.mu.RUnlock()
		metrics.UpdateTrialQueue(len(p.jobs))
	default:
		p.mu.RUnlock()
		return Trial{Threshold: threshold, Err: ErrPoolBusy}
	}

	// A queued job always produces a result, even after cancellation.
	return <-resultChan
}

// SubmitWithRetry retries Submit while the queue is full
func (p *WorkerPool) SubmitWithRetry(ctx context.Context, threshold float64, maxRetries int) Trial {
	var last Trial
	for i := 0; i < maxRetries; i++ {
		last = p.Submit(ctx, threshold)
		if !errors.Is(last.Err, ErrPoolBusy) {
			return last
		}

		waitTime := time.Duration(i+1) * 10 * time.Millisecond
		select {
		case <-ctx.Done():
			return Trial{Threshold: threshold, Err: ctx.Err()}
		case <-time.After(waitTime):
		}
	}
	return last
}

// Evaluate runs all thresholds concurrently and returns once every trial
// has finished. Results are in the same order as thresholds.
func (p *WorkerPool) Evaluate(ctx context.Context, thresholds []float64) []Trial {
	trials := make([]Trial, len(thresholds))
	var wg sync.WaitGroup
	for i, th := range thresholds {
		wg.Add(1)
		go func(i int, th float64) {
			defer wg.Done()
			trials[i] = p.SubmitWithRetry(ctx, th, 10)
		}(i, th)
	}
	wg.Wait()
	return trials
}

// Stop drains the queue and waits for the workers to exit
func (p *WorkerPool) Stop() {
	p.stop.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()
		p.wg.Wait()
		metrics.UpdateTrialQueue(0)
		log.Printf("Trial pool stopped")
	})
}

// Workers returns the number of worker goroutines
func (p *WorkerPool) Workers() int {
	return p.workers
}
