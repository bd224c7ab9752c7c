package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), custom)
	assert.Equal(t, custom, FromContext(ctx))
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	assert.Equal(t, "", RequestIDFromContext(WithRequestID(context.Background(), "")))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestStartSpan_TagsLoggerAndLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, span := StartSpan(WithLogger(context.Background(), base), "sweep")
	assert.NotEmpty(t, TraceIDFromContext(ctx))

	_, child := StartSpan(ctx, "finalize")
	child.End(errors.New("boom"))
	span.End(nil)

	out := buf.String()
	assert.True(t, strings.Contains(out, "span=finalize"))
	assert.True(t, strings.Contains(out, "parent_span_id="))
	assert.True(t, strings.Contains(out, "span failed"))
	assert.True(t, strings.Contains(out, "span completed"))
}
