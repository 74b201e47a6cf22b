package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type traceKey struct{}

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// Ensure returns ctx unchanged when it already carries a trace id,
// otherwise attaches a fresh one.
func Ensure(ctx context.Context) context.Context {
	if FromContext(ctx) != "" {
		return ctx
	}
	return WithContext(ctx, GenerateTraceID())
}
