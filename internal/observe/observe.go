package observe

import (
	"context"
	"io"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pacewatch")

// Observer handles logging and tracing for one monitor run.
type Observer struct {
	log   *bolt.Logger
	runID string
}

// New creates an Observer with console output.
// If verbose is false, only warnings and errors are shown.
func New(out io.Writer, verbose bool) *Observer {
	l := bolt.New(bolt.NewConsoleHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return &Observer{log: l, runID: uuid.NewString()}
}

// NewJSON creates an Observer with JSON output.
func NewJSON(out io.Writer, verbose bool) *Observer {
	l := bolt.New(bolt.NewJSONHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return &Observer{log: l, runID: uuid.NewString()}
}

// Log returns the underlying logger
func (o *Observer) Log() *bolt.Logger {
	return o.log
}

// RunID identifies this process's run in logs and spans.
func (o *Observer) RunID() string {
	return o.runID
}

// StartSpan starts a new OTel span tagged with the run ID.
func (o *Observer) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("run_id", o.runID)))
}

// Close flushes buffered output (placeholder)
func (o *Observer) Close() error {
	return nil
}
