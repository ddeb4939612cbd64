package engine

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"threadscout/backend/internal/logging"
	"threadscout/backend/pkg/models"
)

// job is one queued run awaiting a worker.
type job struct {
	run *models.Run
	def *models.WorkflowDefinition
	ws  *models.Workspace
}

// Pool executes runs on background workers. Submit creates the run row and
// returns its id immediately; the worker that picks the job up writes the
// terminal state. Callers observe completion only through the run record.
type Pool struct {
	executor *Executor
	queue    chan job
	logger   *logging.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	runCtx    context.Context
	cancelRun context.CancelFunc

	runsStarted   metric.Int64Counter
	runsCompleted metric.Int64Counter
	runsFailed    metric.Int64Counter
	draftsWritten metric.Int64Counter
}

// NewPool creates a Pool with the given worker count and queue size and
// starts its workers.
func NewPool(executor *Executor, workers, queueSize int, logger *logging.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}

	meter := otel.Meter("threadscout/engine")
	runsStarted, _ := meter.Int64Counter("engine.runs.started")
	runsCompleted, _ := meter.Int64Counter("engine.runs.completed")
	runsFailed, _ := meter.Int64Counter("engine.runs.failed")
	draftsWritten, _ := meter.Int64Counter("engine.drafts.generated")

	runCtx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		executor:      executor,
		queue:         make(chan job, queueSize),
		logger:        logger,
		runCtx:        runCtx,
		cancelRun:     cancel,
		runsStarted:   runsStarted,
		runsCompleted: runsCompleted,
		runsFailed:    runsFailed,
		draftsWritten: draftsWritten,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit creates the run row and enqueues it, returning the run id the
// caller can poll. A full queue fails the run immediately rather than
// blocking the trigger surface.
func (p *Pool) Submit(ctx context.Context, def *models.WorkflowDefinition, ws *models.Workspace, dryRun bool) (string, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", fmt.Errorf("run pool is shut down")
	}
	p.mu.Unlock()

	run, err := p.executor.Begin(ctx, def, ws, dryRun)
	if err != nil {
		return "", err
	}

	// Enqueue under the lock, re-checking closed: Shutdown closes the queue
	// while holding the same lock, so the send can never hit a closed channel.
	// A run created in the window before shutdown still reaches a terminal
	// state.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.executor.finalizeFailed(ctx, run.ID, fmt.Errorf("run pool is shut down"))
		return "", fmt.Errorf("run pool is shut down")
	}
	select {
	case p.queue <- job{run: run, def: def, ws: ws}:
		p.mu.Unlock()
		p.runsStarted.Add(ctx, 1)
		return run.ID, nil
	default:
		p.mu.Unlock()
		p.executor.finalizeFailed(ctx, run.ID, fmt.Errorf("run queue full"))
		return "", fmt.Errorf("run queue full")
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		summary, err := p.executor.Execute(p.runCtx, j.run, j.def, j.ws)
		if err != nil {
			p.runsFailed.Add(context.Background(), 1)
			continue
		}
		p.runsCompleted.Add(context.Background(), 1)
		p.draftsWritten.Add(context.Background(), int64(summary.DraftsGenerated))
	}
}

// Shutdown stops accepting runs and drains the queue. If ctx expires before
// the drain finishes, in-flight runs are canceled cooperatively and recorded
// as failed.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancelRun()
		<-done
		return ctx.Err()
	}
}
