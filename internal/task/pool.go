package task

import (
	"context"
	"sync"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

// Pool runs a fixed number of workers over a Manager's queue.
type Pool struct {
	manager Manager
	handler Handler
	workers int
	logger  logger.Logger
	wg      sync.WaitGroup
}

func NewPool(m Manager, workers int, handler Handler, log logger.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		manager: m,
		handler: handler,
		workers: workers,
		logger:  log,
	}
}

// Start launches the workers. They exit when ctx is done.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info(ctx, "Worker pool started (workers: %d)", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.loop(ctx)
		}()
	}
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) loop(ctx context.Context) {
	queue := p.manager.Queue()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-queue:
			p.handler(ctx, id)
		}
	}
}

// RunSweeper drops expired terminal tasks every interval until ctx is done.
func RunSweeper(ctx context.Context, m Manager, retention, interval time.Duration, log logger.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(retention); n > 0 {
				log.Info(ctx, "Swept %d finished tasks", n)
			}
		}
	}
}
