package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"pjecz/carina/internal/core/task"
	ctxutil "pjecz/carina/internal/infrastructure/context"
)

// ErrPoolStopped is returned by Submit once Stop has begun.
var ErrPoolStopped = errors.New("worker pool stopped")

// Ejecutor runs one tarea.
type Ejecutor interface {
	Run(ctx context.Context, t task.Tarea) (string, error)
}

// trabajo keeps the correlation id of the message that brought the tarea.
type trabajo struct {
	tarea         task.Tarea
	correlationID string
}

// WorkerPool runs tareas received from the queue on a fixed number of
// goroutines.
type WorkerPool struct {
	workerCount int
	jobChan     chan trabajo
	ejecutor    Ejecutor
	log         *slog.Logger
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	stopOnce    sync.Once

	// mu guards stopped; Submit sends under the read lock so jobChan is
	// never closed while a send is in flight.
	mu      sync.RWMutex
	stopped bool
}

func NewWorkerPool(ctx context.Context, workerCount int, ejecutor Ejecutor, log *slog.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	poolCtx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		workerCount: workerCount,
		jobChan:     make(chan trabajo, workerCount*2),
		ejecutor:    ejecutor,
		log:         log.With("component", "worker_pool"),
		ctx:         poolCtx,
		cancel:      cancel,
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop lets queued tareas finish, then cancels the pool context. Later
// calls to Submit return ErrPoolStopped.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobChan)
		p.mu.Unlock()
		p.wg.Wait()
		p.cancel()
	})
}

// Submit blocks while the buffer is full.
func (p *WorkerPool) Submit(ctx context.Context, t task.Tarea) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobChan <- trabajo{tarea: t, correlationID: ctxutil.GetCorrelationID(ctx)}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobChan {
		ctx := p.ctx
		if j.correlationID != "" {
			ctx = ctxutil.WithCorrelationID(ctx, j.correlationID)
		}
		if _, err := p.ejecutor.Run(ctx, j.tarea); err != nil {
			p.log.Debug("tarea con error", "worker", id, "tarea_id", j.tarea.ID, "error", err)
		}
	}
}

// ColaLocal hands tareas straight to an in-process pool. It serves as the
// task.Queue when no broker is configured.
type ColaLocal struct {
	pool *WorkerPool
}

func NewColaLocal(pool *WorkerPool) *ColaLocal {
	return &ColaLocal{pool: pool}
}

func (c *ColaLocal) Enqueue(ctx context.Context, t task.Tarea) error {
	return c.pool.Submit(ctx, t)
}

var _ task.Queue = (*ColaLocal)(nil)
