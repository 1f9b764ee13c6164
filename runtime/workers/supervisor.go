package workers

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultRestartInterval = 200 * time.Millisecond

// Supervisor owns the lifecycle of long running workers.
// A worker that panics or returns an error is restarted after restartInterval,
// a worker that returns nil is done for good.
// Cancelling the context given to Run or Start stops the matching workers.
type Supervisor struct {
	mu              sync.Mutex
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	log             *slog.Logger
	workers         []contract.Worker
	restartInterval time.Duration
}

var _ contract.ISupervisor = (*Supervisor)(nil)

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = DefaultRestartInterval
	}
	return &Supervisor{log: log, restartInterval: restartInterval}
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every added worker and blocks until all of them have returned.
// Stop or a cancelled parent ends the run.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	workers := append([]contract.Worker(nil), s.workers...)
	s.mu.Unlock()
	defer cancel()

	for _, worker := range workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

// Start runs a single worker under supervision in its own goroutine.
// It can be called at any time, the worker lives as long as ctx does.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()
		for {
			if ctx.Err() != nil {
				s.log.Debug("Worker not started, context done", "name", name)
				return
			}

			err := s.runOnce(ctx, worker)
			if err == nil {
				s.log.Debug("Worker finished", "name", name)
				return
			}
			if ctx.Err() != nil {
				s.log.Debug("Worker stopped", "name", name, "reason", ctx.Err())
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", name, "error", err, "in", s.restartInterval)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}

func (s *Supervisor) runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels the workers started by Run. Workers started with their own
// context through Start are stopped by cancelling that context.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until every supervised goroutine has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
