package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestWithContext(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()
	ctxWithLogger := WithContext(ctx, logger)

	retrievedLogger := FromContext(ctxWithLogger)
	assert.NotNil(t, retrievedLogger)
}

func TestFromContext_NotFound(t *testing.T) {
	ctx := context.Background()
	logger := FromContext(ctx)

	// Should return a no-op logger
	assert.NotNil(t, logger)
}

func TestWithRequestID(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()
	requestID := "req-123"

	newCtx, newLogger := WithRequestID(ctx, logger, requestID)

	assert.NotNil(t, newCtx)
	assert.NotNil(t, newLogger)
	assert.Equal(t, requestID, GetRequestID(newCtx))
}

func TestWithOperator(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()

	newCtx, newLogger := WithOperator(ctx, logger, "ops@example.com")

	assert.NotNil(t, newLogger)
	assert.Equal(t, "ops@example.com", GetOperator(newCtx))
}

func TestGetRequestID_NotFound(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
}

func TestGetOperator_NotFound(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetOperator(ctx))
}

func TestContextKeysAreDistinct(t *testing.T) {
	assert.NotEqual(t, RequestIDKey, OperatorKey)
	assert.NotEqual(t, LoggerKey, RequestIDKey)
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	logger := FromContext(ctx)

	// Should return a no-op logger when value is wrong type
	assert.NotNil(t, logger)
	// The no-op logger should not panic when used
	logger.Info("test")
}

func TestLoggerFromEnrichedContext(t *testing.T) {
	baseLogger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()
	ctx, enrichedLogger := WithRequestID(ctx, baseLogger, "req-test")

	// The logger in context should be the enriched one
	ctxLogger := FromContext(ctx)
	assert.NotNil(t, ctxLogger)

	// Verify it's the enriched logger, not the base logger
	assert.NotEqual(t, baseLogger, enrichedLogger)
}

func TestMultipleWithRequestID(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()

	// First call
	ctx, _ = WithRequestID(ctx, logger, "first-id")
	assert.Equal(t, "first-id", GetRequestID(ctx))

	// Second call should override
	ctx, _ = WithRequestID(ctx, logger, "second-id")
	assert.Equal(t, "second-id", GetRequestID(ctx))
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	logger := FromContext(ctx)

	// These should not panic
	assert.NotPanics(t, func() {
		logger.Info("test message")
		logger.Debug("debug message")
		logger.Warn("warn message")
		logger.Error("error message")
		logger.With(zap.String("key", "value")).Info("with field")
	})
}

func newCapturedLogger() (*zap.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel)
	return zap.New(core), buf
}

func TestContextLogger_EnrichesEntries(t *testing.T) {
	logger, buf := newCapturedLogger()

	ctx := context.Background()
	ctx = context.WithValue(ctx, RequestIDKey, "req-9")
	ctx = context.WithValue(ctx, OperatorKey, "ops@example.com")

	WithLogger(ctx, logger).Info("something happened")

	out := buf.String()
	assert.True(t, strings.Contains(out, "req-9"), "expected request_id in output: %s", out)
	assert.True(t, strings.Contains(out, "ops@example.com"), "expected operator in output: %s", out)
}

func TestContextLogger_NilLoggerDoesNotPanic(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() {
		cl.Info("message on nil logger")
	})
}

func TestContextLogger_With(t *testing.T) {
	logger, buf := newCapturedLogger()

	WithLogger(context.Background(), logger).
		With(zap.String("component", "sync")).
		Info("tagged")

	assert.True(t, strings.Contains(buf.String(), "component"))
}
