package workers

import (
	"cam-relay/contract"
	"cam-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var _ contract.ISupervisor = (*Supervisor)(nil)

const (
	defaultRestartInterval = 200 * time.Millisecond
	maxRestartInterval     = 5 * time.Second
)

// Supervisor Own a context and a Cancel function
// Run each worker in a goroutine
// Recover panics, restart crashed workers with a doubling delay
// Shutdown properly if parent context is canceled
type Supervisor struct {
	Cancel          context.CancelFunc // To stop the context
	wg              *sync.WaitGroup
	log             *slog.Logger
	workers         []contract.Worker
	restartInterval time.Duration
	restarts        atomic.Int64
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = defaultRestartInterval
	}
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartInterval: restartInterval}
}

// Run starts every registered worker and blocks until all of them returned.
// If the parent cancels, we Cancel. If WE call s.Stop(), only our children Cancel.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision in a dedicated goroutine.
// A failure in one worker must not stop the supervisor itself.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(ctx, worker)
	}()
}

// Restarts is the number of worker restarts since the supervisor was created.
func (s *Supervisor) Restarts() int64 {
	return s.restarts.Load()
}

func (s *Supervisor) supervise(ctx context.Context, worker contract.Worker) {
	name := contract.GetWorkerName(worker)
	delay := s.restartInterval

	for ctx.Err() == nil {
		startedAt := time.Now()
		err := runProtected(ctx, worker)

		switch {
		case err == nil:
			// Terminated properly, never restart !
			s.log.Info(fmt.Sprintf("Worker finished : %s", name))
			return
		case ctx.Err() != nil:
			s.log.Info("Worker stopped (context canceled)", "name", name)
			return
		}

		// A worker that stayed up long enough starts again from the base delay
		if time.Since(startedAt) >= maxRestartInterval {
			delay = s.restartInterval
		}
		s.log.Warn("Worker crashed, restarting", "name", name, "error", err, "delay", delay)

		select {
		case <-ctx.Done():
			// Priority stop, no restart delay
			return
		case <-time.After(delay):
		}
		s.restarts.Add(1)
		delay = nextRestartInterval(delay, s.restartInterval)
	}
	s.log.Info(fmt.Sprintf("Stopping : %s", name))
}

// runProtected turns a panic of worker into ErrWorkerPanic.
func runProtected(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// nextRestartInterval doubles delay up to maxRestartInterval, never below base.
func nextRestartInterval(delay, base time.Duration) time.Duration {
	return max(min(delay*2, maxRestartInterval), base)
}

// Stop Cancel all goroutines listening channel for Ctx.Done
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
