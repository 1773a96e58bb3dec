package pipeline

import (
	"context"
	"errors"
	"time"

	kilnerrors "kiln/errors"
	"kiln/jobs"
	"kiln/metrics"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("kiln/pipeline")

// performer is the concrete Performer: it retrieves a job's filters from
// provider, runs the pre-phase, hands off to inner, runs the post-phase,
// and routes any unhandled exception through the exception-filter chain.
type performer struct {
	provider FilterProvider
	inner    InnerPerformer
}

// New builds a Performer backed by provider and inner.
func New(provider FilterProvider, inner InnerPerformer) Performer {
	return &performer{provider: provider, inner: inner}
}

// fault is the outcome of classifying an exception raised outside the
// job body.
type fault struct {
	err       error
	immediate bool // bypass the exception-filter chain, rethrow verbatim
}

// classifyFilterFault implements handleJobPerformanceException for an
// exception raised inside a pre- or post-filter method.
func classifyFilterFault(err error, shutdownRequested bool) fault {
	if kilnerrors.IsAborted(err) {
		return fault{err: err, immediate: true}
	}
	if shutdownRequested && errors.Is(err, context.Canceled) {
		return fault{err: err, immediate: true}
	}
	return fault{err: kilnerrors.Performance(err), immediate: false}
}

// classifyBodyFault applies the same JobAbortedError/shutdown-cancellation
// special-casing to an exception produced by the job body itself, without
// the JobPerformanceError wrap (that wrap is reserved for exceptions
// raised inside a filter method).
func classifyBodyFault(err error, shutdownRequested bool) fault {
	if kilnerrors.IsAborted(err) {
		return fault{err: err, immediate: true}
	}
	if shutdownRequested && errors.Is(err, context.Canceled) {
		return fault{err: err, immediate: true}
	}
	return fault{err: err, immediate: false}
}

func callOnPerforming(ctx context.Context, m serverMatch, pc *PerformingContext) error {
	if m.async != nil {
		return kilnerrors.Recover(func() error { return m.async.OnPerformingAsync(ctx, pc) })
	}
	return kilnerrors.Recover(func() error { m.sync.OnPerforming(pc); return nil })
}

func callOnPerformed(ctx context.Context, m serverMatch, pc *PerformedContext) error {
	if m.async != nil {
		return kilnerrors.Recover(func() error { return m.async.OnPerformedAsync(ctx, pc) })
	}
	return kilnerrors.Recover(func() error { m.sync.OnPerformed(pc); return nil })
}

func callOnServerException(ctx context.Context, m exceptionMatch, sec *ServerExceptionContext) error {
	if m.async != nil {
		return kilnerrors.Recover(func() error { return m.async.OnServerExceptionAsync(ctx, sec) })
	}
	return kilnerrors.Recover(func() error { m.sync.OnServerException(sec); return nil })
}

// PerformAsync runs the full pipeline for pctx: a forward pre-phase walk,
// the inner performer, a forward post-phase walk (or, if a pre-phase
// filter canceled the job, a reverse post-phase walk over the filters
// that already ran), and, on an unhandled exception, the exception
// filter chain.
func (p *performer) PerformAsync(pctx *jobs.Context) (result any, err error) {
	ctx, span := tracer.Start(pctx.Cancellation.Job, "pipeline.PerformAsync")
	defer span.End()

	jobType := pctx.Job.Type()
	started := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues(jobType).Observe(time.Since(started).Seconds())
		metrics.JobsPerformed.WithLabelValues(jobType, outcomeOf(err)).Inc()
	}()

	filters := p.provider.GetFilters(pctx.Job)
	cur := newCursor(filters)

	performing := &PerformingContext{Context: pctx}
	canceledAt := -1

	for {
		if cerr := pctx.Cancellation.ThrowIfCancellationRequested(); cerr != nil {
			return p.handleFault(ctx, pctx, cur, classifyFilterFault(cerr, pctx.Cancellation.ShutdownRequested()), nil)
		}
		m := cur.nextServerFilter()
		if !m.found() {
			break
		}
		if ferr := callOnPerforming(ctx, m, performing); ferr != nil {
			return p.handleFault(ctx, pctx, cur, classifyFilterFault(ferr, pctx.Cancellation.ShutdownRequested()), nil)
		}
		if performing.Canceled {
			canceledAt = m.index
			break
		}
	}

	if canceledAt >= 0 {
		performed := &PerformedContext{Context: pctx, Canceled: true}
		cur.index = canceledAt
		for {
			m := cur.prevServerFilter()
			if !m.found() {
				break
			}
			if ferr := callOnPerformed(ctx, m, performed); ferr != nil {
				return p.handleFault(ctx, pctx, cur, classifyFilterFault(ferr, pctx.Cancellation.ShutdownRequested()), performed)
			}
		}
		return nil, nil
	}

	bodyResult, bodyErr := kilnerrors.RecoverValue(func() (any, error) { return p.inner.PerformAsync(pctx) })
	performed := &PerformedContext{Context: pctx, Result: bodyResult, Exception: bodyErr}

	cur.reset()
	for {
		m := cur.nextServerFilter()
		if !m.found() {
			break
		}
		if ferr := callOnPerformed(ctx, m, performed); ferr != nil {
			return p.handleFault(ctx, pctx, cur, classifyFilterFault(ferr, pctx.Cancellation.ShutdownRequested()), performed)
		}
	}

	if performed.Exception != nil && !performed.ExceptionHandled {
		return p.handleFault(ctx, pctx, cur, classifyBodyFault(performed.Exception, pctx.Cancellation.ShutdownRequested()), performed)
	}

	return performed.Result, nil
}

// outcomeOf labels a JobsPerformed observation from the error PerformAsync
// is about to return.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case kilnerrors.IsAborted(err):
		return "aborted"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "exception"
	}
}

// handleFault routes a classified fault either straight back to the
// caller (immediate) or through the exception-filter chain, returning
// whatever result survives.
func (p *performer) handleFault(ctx context.Context, pctx *jobs.Context, cur *cursor, f fault, performed *PerformedContext) (any, error) {
	if f.immediate {
		return nil, f.err
	}

	sec := &ServerExceptionContext{Context: pctx, Exception: f.err}
	cur.reset()
	for {
		m := cur.nextExceptionFilter()
		if !m.found() {
			break
		}
		if err := callOnServerException(ctx, m, sec); err != nil {
			// A failure inside an exception filter method is itself a
			// filter-method fault; it replaces the chain rather than
			// continuing it.
			classified := classifyFilterFault(err, pctx.Cancellation.ShutdownRequested())
			return nil, classified.err
		}
	}

	if !sec.ExceptionHandled {
		return nil, sec.Exception
	}
	if performed != nil {
		return performed.Result, nil
	}
	return nil, nil
}
