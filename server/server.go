// Package server implements the ProcessingServer: a supervisor that
// hosts a set of background processes, wraps each in an infinite-loop
// and automatic-retry envelope, and exposes three-stage cooperative
// shutdown.
package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	kilnerrors "kiln/errors"
	"kiln/events"
	"kiln/logger"
	"kiln/metrics"
)

var tracer = otel.Tracer("kiln/server")

// supervisorCounter assigns each supervisor goroutine a successive id
// for log correlation.
var supervisorCounter int64

// Server is the ProcessingServer: construct it with a process list and
// it immediately starts running them in the background.
type Server struct {
	opts Options
	bus  events.Bus

	stoppingCtx    context.Context
	stoppingCancel context.CancelFunc
	stoppedCtx     context.Context
	stoppedCancel  context.CancelFunc
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc

	stopOnce sync.Once
	disposed atomic.Bool

	wg   sync.WaitGroup
	done chan struct{}
}

// New validates opts, computes a dependency-ordered process list (see
// orderProcesses), and starts one goroutine per process. It does not
// block.
func New(processes []any, opts Options, bus events.Bus) (*Server, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if bus == nil {
		bus = events.New()
	}

	registered := make([]registeredProcess, 0, len(processes))
	for _, p := range processes {
		name, run, err := adaptProcess(p)
		if err != nil {
			return nil, err
		}
		registered = append(registered, registeredProcess{instance: p, name: name, run: run})
	}

	ordered, err := orderProcesses(registered)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts: opts,
		bus:  bus,
		done: make(chan struct{}),
	}
	s.stoppingCtx, s.stoppingCancel = context.WithCancel(context.Background())
	s.stoppedCtx, s.stoppedCancel = context.WithCancel(context.Background())
	s.shutdownCtx, s.shutdownCancel = context.WithCancel(context.Background())

	s.wg.Add(len(ordered))
	for _, p := range ordered {
		p := p
		id := atomic.AddInt64(&supervisorCounter, 1)
		go s.runProcess(id, p)
	}

	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	return s, nil
}

func (s *Server) runProcess(id int64, p registeredProcess) {
	defer s.wg.Done()

	ctx, span := tracer.Start(s.stoppedCtx, "server.runProcess")
	defer span.End()

	lctx := logger.WithComponent(ctx, p.name)
	logger.Info(lctx, "background process starting", zap.Int64("supervisor_id", id))
	events.PublishProcessStarted(lctx, s.bus, p.name)
	metrics.ProcessStarts.WithLabelValues(p.name, "attempt").Inc()

	onRetry := func(attempt int, retryErr error) {
		events.PublishProcessRetrying(lctx, s.bus, p.name, attempt, retryErr)
	}
	body := infiniteLoopTask(s.stoppingCtx, s.shutdownCtx, automaticRetryTask(p.name, s.opts, s.shutdownCtx, onRetry, p.run))

	backgroundExecution(s.opts.RestartDelay, s.shutdownCtx, func() error {
		return body(&Context{Context: s.stoppedCtx})
	})

	metrics.ProcessStops.WithLabelValues(p.name, "stopped").Inc()
	logger.Info(lctx, "background process stopped")
}

// SendStop requests cooperative shutdown: it cancels the "stopping"
// signal immediately and schedules "stopped" and "shutdown" to fire
// after StopTimeout and ShutdownTimeout respectively. Calling it more
// than once has no additional effect.
func (s *Server) SendStop() error {
	if s.disposed.Load() {
		return kilnerrors.ErrServerDisposed
	}
	s.sendStopInternal()
	return nil
}

func (s *Server) sendStopInternal() {
	s.stopOnce.Do(func() {
		events.PublishServerStopping(context.Background(), s.bus)
		s.stoppingCancel()
		time.AfterFunc(s.opts.StopTimeout, s.stoppedCancel)
		time.AfterFunc(s.opts.ShutdownTimeout, func() {
			s.shutdownCancel()
			events.PublishServerShutdown(context.Background(), s.bus)
		})
	})
}

// WaitForShutdown issues SendStop if it hasn't already run, then blocks
// until every process goroutine has returned or until
// ShutdownTimeout+LastChanceTimeout elapses, whichever comes first. It
// returns whether the dispatcher actually stopped in time.
func (s *Server) WaitForShutdown() (bool, error) {
	if s.disposed.Load() {
		return false, kilnerrors.ErrServerDisposed
	}
	s.sendStopInternal()
	return s.waitInternal(), nil
}

func (s *Server) waitInternal() bool {
	timeout := s.opts.ShutdownTimeout + s.opts.LastChanceTimeout
	select {
	case <-s.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Dispose ensures SendStop has been issued, waits for shutdown, then
// releases all cancellation sources. It is idempotent via an atomic
// exchange on disposed: a second call observes the same effect as the
// first (a no-op), not an object-disposed error.
func (s *Server) Dispose() {
	if s.disposed.Swap(true) {
		return
	}
	s.sendStopInternal()
	s.waitInternal()
	s.stoppingCancel()
	s.stoppedCancel()
	s.shutdownCancel()
	s.bus.Close()
}
