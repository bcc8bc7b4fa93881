// Package notify delivers the one-time "all done" signal of a batch run.
// The signal reports completion, not success: it fires however many tasks
// failed.
package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/gaurav-prasanna/mdbatch/core"
	"github.com/rs/zerolog/log"
)

// Notifier kinds accepted by New.
const (
	KindConsole = "console"
	KindLog     = "log"
	KindNone    = "none"
)

// KnownKinds lists the notifier kinds New accepts.
var KnownKinds = []string{KindConsole, KindLog, KindNone}

// New returns the notifier for kind. Console output goes to out.
func New(kind string, out io.Writer) (core.Notifier, error) {
	switch kind {
	case KindConsole, "":
		return &Console{Out: out}, nil
	case KindLog:
		return Log{}, nil
	case KindNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", kind)
	}
}

// Console prints a human-readable completion message.
type Console struct {
	Out io.Writer
}

// Notify writes the summary to c.Out.
func (c *Console) Notify(_ context.Context, s core.Summary) error {
	if _, err := fmt.Fprintf(c.Out, "All files have been saved to: %s\n", s.OutputDir); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.Out, "%d/%d pages converted, %d failed\n", s.Succeeded, s.Total, s.Failed)
	return err
}

// Log emits the completion as a structured log event.
type Log struct{}

// Notify logs the summary.
func (Log) Notify(_ context.Context, s core.Summary) error {
	evt := log.Info()
	if s.Failed > 0 {
		evt = log.Warn()
	}
	evt.Str("output_dir", s.OutputDir).
		Int("total", s.Total).
		Int("succeeded", s.Succeeded).
		Int("failed", s.Failed).
		Dur("elapsed", s.EndedAt.Sub(s.StartedAt)).
		Msg("all conversions finished")
	return nil
}

// None discards the signal.
type None struct{}

// Notify does nothing.
func (None) Notify(context.Context, core.Summary) error { return nil }

// Func adapts a callback to core.Notifier.
type Func func(ctx context.Context, s core.Summary) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, s core.Summary) error { return f(ctx, s) }
