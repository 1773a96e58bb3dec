package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kiln/activation"
	kilnconfig "kiln/config"
	"kiln/events"
	"kiln/jobs"
	"kiln/logger"
	"kiln/pipeline"
	"kiln/registry"
	"kiln/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the processing server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := logger.WithComponent(cmd.Context(), "serve")

		cfg, err := kilnconfig.Load()
		if err != nil {
			logger.Fatal(ctx, "failed to load configuration", zap.Error(err))
		}
		logger.Info(ctx, "configuration loaded", zap.String("environment", cfg.Environment))

		filters := registry.New()
		filters.RegisterGlobal(&loggingFilter{})

		handlers := activation.NewRegistry(activation.NewReflectActivator())
		handlers.Register("heartbeat", heartbeatHandler{})

		perf := pipeline.New(filters, handlers)

		bus := events.New()
		subscribeToLifecycle(ctx, bus)

		opts := server.Options{
			StopTimeout:       cfg.StopTimeout(),
			ShutdownTimeout:   cfg.ShutdownTimeout(),
			LastChanceTimeout: cfg.LastChanceTimeout(),
			RestartDelay:      cfg.RestartDelay(),
			MaxRetryAttempts:  cfg.MaxRetryAttempts,
			MaxRetryDelay:     cfg.MaxRetryDelay(),
		}

		processes := []any{
			&heartbeatProcess{perf: perf},
			&cleanupProcess{},
		}

		srv, err := server.New(processes, opts, bus)
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		logger.Info(ctx, "processing server started")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		if err := srv.SendStop(); err != nil {
			logger.Warn(ctx, "send stop failed", zap.Error(err))
		}
		stopped, err := srv.WaitForShutdown()
		if err != nil {
			logger.Warn(ctx, "wait for shutdown failed", zap.Error(err))
		} else if !stopped {
			logger.Warn(ctx, "server did not stop cleanly within the shutdown window")
		}
		srv.Dispose()
		logger.Info(ctx, "processing server stopped")
		return nil
	},
}

func subscribeToLifecycle(ctx context.Context, bus events.Bus) {
	for _, topic := range []string{events.TopicProcessStarted, events.TopicProcessRetrying, events.TopicServerStopping, events.TopicServerShutdown} {
		ch, _, err := bus.Subscribe(topic)
		if err != nil {
			continue
		}
		go func(topic string, ch <-chan events.TypedEvent) {
			for evt := range ch {
				logger.Debug(ctx, "lifecycle event", zap.String("topic", topic), zap.Any("event", evt))
			}
		}(topic, ch)
	}
}

// heartbeatArgs is the payload heartbeatProcess sends through the
// pipeline and heartbeatHandler decodes it back into.
type heartbeatArgs struct {
	Source string
}

// heartbeatHandler is the demonstration activation.Handler registered
// under the "heartbeat" job type.
type heartbeatHandler struct{}

func (heartbeatHandler) ArgsType() reflect.Type { return reflect.TypeOf(heartbeatArgs{}) }

func (heartbeatHandler) Perform(ctx *jobs.Context, args any) (any, error) {
	a := args.(heartbeatArgs)
	logger.Debug(context.Background(), "heartbeat handler invoked", zap.String("source", a.Source))
	return "ok", nil
}

// loggingFilter is a demonstration ServerFilter that logs job
// performance start/end.
type loggingFilter struct{}

func (loggingFilter) OnPerforming(pc *pipeline.PerformingContext) {
	logger.Debug(context.Background(), "performing job", zap.String("job_type", pc.Job.Type()))
}

func (loggingFilter) OnPerformed(pc *pipeline.PerformedContext) {
	logger.Debug(context.Background(), "performed job", zap.String("job_type", pc.Job.Type()), zap.Any("result", pc.Result))
}

// heartbeatProcess periodically runs a demonstration job through the
// pipeline.
type heartbeatProcess struct {
	perf pipeline.Performer
}

func (p *heartbeatProcess) Name() string    { return "heartbeat" }
func (p *heartbeatProcess) Version() string { return "1.0.0" }
func (p *heartbeatProcess) Dependencies() map[string]string {
	return nil
}

func (p *heartbeatProcess) Execute(ctx *server.Context) error {
	job := &jobs.Base{JobType: "heartbeat", Data: map[string]any{"source": "processing-server"}}
	pctx := &jobs.Context{
		Job:          job,
		Cancellation: jobs.NewCancellationToken(ctx, ctx),
	}
	_, err := p.perf.PerformAsync(pctx)
	return err
}

// cleanupProcess depends on heartbeat via OrderedProcess so it always
// starts after it.
type cleanupProcess struct{}

func (p *cleanupProcess) Name() string    { return "cleanup" }
func (p *cleanupProcess) Version() string { return "1.0.0" }
func (p *cleanupProcess) Dependencies() map[string]string {
	return map[string]string{"heartbeat": ">=1.0.0"}
}

func (p *cleanupProcess) Execute(ctx *server.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
