package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"prsummarizer/pkg/trace"
)

const serviceName = "prsummarizer-worker"

// NewLogger 创建 JSON production logger，无法识别的 level 回退到 info
func NewLogger(level string) *zap.Logger {
	l, err := Config(level).Build(zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		panic(err)
	}
	return l
}

func Config(level string) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil && level != "" {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg
}

// WithTrace 从 context 中提取 trace_id 并添加到 logger
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if traceID := trace.FromContext(ctx); traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
