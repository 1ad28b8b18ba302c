// Package sequencer runs the operation catalog against a connection one call
// at a time and records an outcome for every operation, whatever happens to
// the others.
package sequencer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/msto63/bankprobe/internal/catalog"
	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
	"github.com/msto63/bankprobe/pkg/core/logging"
)

var sequencerLogger = logging.New("sequencer")

// Outcome is the result of one operation
type Outcome struct {
	Index     int
	Operation string
	Request   any
	Response  any
	Err       error
	Code      codes.Code
	Kind      coreerrors.Kind
	Started   time.Time
	Duration  time.Duration
}

// OK reports whether the operation returned a response
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Sink consumes each outcome as soon as it is produced
type Sink func(Outcome)

// Option configures a Sequencer
type Option func(*Sequencer)

// WithObserver replaces the default log observer
func WithObserver(o Observer) Option {
	return func(s *Sequencer) { s.observer = o }
}

// WithTracer records one span per operation
func WithTracer(t trace.Tracer) Option {
	return func(s *Sequencer) { s.tracer = t }
}

// WithCallTimeout bounds each call. Zero leaves deadlines to the caller's
// context.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Sequencer) { s.callTimeout = d }
}

// WithSink registers a consumer for outcomes as they are produced
func WithSink(sink Sink) Option {
	return func(s *Sequencer) { s.sinks = append(s.sinks, sink) }
}

// Sequencer walks a catalog over a shared connection
type Sequencer struct {
	catalog     *catalog.Catalog
	conn        grpc.ClientConnInterface
	observer    Observer
	tracer      trace.Tracer
	callTimeout time.Duration
	sinks       []Sink
}

// New creates a sequencer for cat over conn
func New(cat *catalog.Catalog, conn grpc.ClientConnInterface, opts ...Option) *Sequencer {
	s := &Sequencer{
		catalog:  cat,
		conn:     conn,
		observer: NewLogObserver(nil),
		tracer:   noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run invokes every operation in catalog order and returns exactly one
// outcome per operation. Failures, panics and cancellation are recorded in
// the outcomes; Run itself never fails.
func (s *Sequencer) Run(ctx context.Context) []Outcome {
	ops := s.catalog.Operations()
	outcomes := make([]Outcome, 0, len(ops))

	for i, op := range ops {
		var out Outcome
		if err := ctx.Err(); err != nil {
			out = s.cancelled(ctx, i, op)
		} else {
			out = s.runOne(ctx, i, op)
		}
		outcomes = append(outcomes, out)
		s.emit(out)
	}
	return outcomes
}

// runOne executes a single operation, turning any panic into a failure of
// that operation. An observer panic after the call returned keeps the call's
// own result.
func (s *Sequencer) runOne(ctx context.Context, index int, op catalog.Descriptor) (out Outcome) {
	out = Outcome{Index: index, Operation: op.Name, Started: time.Now()}
	returned := false

	ctx, span := s.tracer.Start(ctx, op.Name, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", op.Service),
			attribute.String("rpc.method", op.Method),
		))

	defer func() {
		if r := recover(); r != nil && returned {
			sequencerLogger.Error("Observer panicked", "operation", op.Name, "panic", fmt.Sprint(r))
		} else if r != nil {
			out.Err = &coreerrors.RemoteError{
				Operation: op.Name,
				Code:      codes.Internal,
				Message:   fmt.Sprintf("panic: %v", r),
			}
			out.Response = nil
			s.safeFailure(op.Name, out.Err)
		}
		out.Duration = time.Since(out.Started)
		out.Code = coreerrors.Code(out.Err)
		out.Kind = coreerrors.KindOf(out.Err)

		span.SetAttributes(attribute.String("rpc.grpc.status_code", out.Code.String()))
		if out.Err != nil {
			span.RecordError(out.Err)
			span.SetStatus(otelcodes.Error, out.Err.Error())
		}
		span.End()
	}()

	out.Request = op.NewRequest()
	s.observer.Outbound(op.Name, out.Request)

	callCtx := ctx
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	resp, err := op.Invoke(callCtx, s.conn, out.Request)
	returned = true
	if err != nil {
		out.Err = err
		s.observer.Failure(op.Name, err)
		return out
	}

	out.Response = resp
	s.observer.Inbound(op.Name, resp)
	return out
}

// cancelled records an operation that was never attempted because ctx ended
func (s *Sequencer) cancelled(ctx context.Context, index int, op catalog.Descriptor) Outcome {
	err := &coreerrors.RemoteError{
		Operation: op.Name,
		Code:      codes.Canceled,
		Message:   "not attempted: " + ctx.Err().Error(),
		Cause:     ctx.Err(),
	}
	s.safeFailure(op.Name, err)
	return Outcome{
		Index:     index,
		Operation: op.Name,
		Err:       err,
		Code:      codes.Canceled,
		Kind:      coreerrors.KindRemote,
		Started:   time.Now(),
	}
}

// safeFailure reports a failure from a context where an observer panic must
// not escape
func (s *Sequencer) safeFailure(op string, err error) {
	defer func() { _ = recover() }()
	s.observer.Failure(op, err)
}

func (s *Sequencer) emit(out Outcome) {
	for _, sink := range s.sinks {
		func() {
			defer func() { _ = recover() }()
			sink(out)
		}()
	}
}

// Summary counts outcomes
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Summarize totals a run
func Summarize(outcomes []Outcome) Summary {
	sum := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.OK() {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
		sum.Duration += o.Duration
	}
	return sum
}
