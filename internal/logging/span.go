package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one unit of background or request work and logs its outcome.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child logger tagged with trace and span ids. A trace id
// is minted when the context has none, so scheduler runs get one too.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := FromContext(ctx)

	if TraceIDFromContext(ctx) == "" {
		traceID := uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	attrs := []any{slog.String("span", name), slog.String("span_id", spanID)}
	if parent := stringFrom(ctx, spanIDKey); parent != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}
	logger = logger.With(attrs...)

	ctx = WithLogger(ctx, logger)
	ctx = context.WithValue(ctx, spanIDKey, spanID)

	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// End logs completion, or failure when err is non-nil.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if err != nil {
		s.logger.Error("span failed", elapsed, slog.Any("error", err))
		return
	}
	s.logger.Debug("span completed", elapsed)
}
