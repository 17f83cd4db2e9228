package observability

import (
	"context"

	"go.uber.org/zap"

	"github.com/agent-platform/llm-gateway/middleware"
)

// LogSink emits one structured zap line per record. Prompt and response
// text never reach the log; only character lengths do.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a zap-backed sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements Sink
func (s *LogSink) Emit(ctx context.Context, rec Record) error {
	fields := []zap.Field{
		zap.String("purpose", rec.Purpose),
		zap.Bool("json_mode", rec.JSONMode),
		zap.Int("sys_chars", rec.SystemChars),
		zap.Int("user_chars", rec.UserChars),
		zap.Int64("latency_ms", rec.LatencyMs),
		zap.Int("attempts", rec.Attempts),
		zap.Bool("used_fallback", rec.UsedFallback),
	}
	if id := requestID(ctx, rec); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	switch rec.Outcome {
	case OutcomeSuccess:
		fields = append(fields,
			zap.String("provider", rec.Provider),
			zap.String("model", rec.Model))
		s.logger.Info("llm call done", fields...)
	default:
		fields = append(fields,
			zap.Strings("attempted", rec.AttemptedProviders),
			zap.String("failure_kind", rec.FailureKind),
			zap.String("failure_message", rec.FailureMessage))
		s.logger.Warn("llm call exhausted", fields...)
	}
	return nil
}

func requestID(ctx context.Context, rec Record) string {
	if rec.RequestID != "" {
		return rec.RequestID
	}
	return middleware.RequestIDFromContext(ctx)
}
