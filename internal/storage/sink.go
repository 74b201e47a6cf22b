package storage

import (
	"context"

	"go.uber.org/zap"
)

// Sink persists one result record. Save reports success and never returns
// an error; failures are logged by the sink.
type Sink interface {
	Save(ctx context.Context, record any, key string) bool
}

// ResultKey is the object key for a message's result.
func ResultKey(messageID string) string {
	return messageID + ".json"
}

// MultiSink writes to every sink in order and succeeds only if all do.
type MultiSink struct {
	sinks  []Sink
	logger *zap.Logger
}

func NewMultiSink(logger *zap.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger}
}

func (m *MultiSink) Save(ctx context.Context, record any, key string) bool {
	ok := true
	for _, s := range m.sinks {
		if !s.Save(ctx, record, key) {
			ok = false
		}
	}
	if !ok {
		m.logger.Warn("Result not saved to every sink", zap.String("key", key))
	}
	return ok
}
