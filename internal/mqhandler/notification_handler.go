package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	mqcontracts "prsummarizer/contracts/mq"
	"prsummarizer/internal/gmail"
	"prsummarizer/internal/model"
	"prsummarizer/internal/storage"
	"prsummarizer/pkg/logger"
	"prsummarizer/pkg/metrics"
	"prsummarizer/pkg/trace"
	"prsummarizer/pkg/util"
)

const handlerName = "pipeline"

type MessageSource interface {
	LatestMessageID(ctx context.Context) (string, error)
	Fetch(ctx context.Context, id string) (*model.RawMessage, error)
}

type Pipeline interface {
	Process(ctx context.Context, msg *model.RawMessage) *model.ProcessingResult
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError string) error
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, messageID string) bool
	Release(ctx context.Context, handler, messageID string)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// Options 是 handler 的路由和重试配置
type Options struct {
	RoutingKey          string
	ProcessedRoutingKey string
	MaxRetries          int64
}

// NotificationHandler turns one Gmail push notification into one pipeline run
// on the newest inbox message.
type NotificationHandler struct {
	source       MessageSource
	pipeline     Pipeline
	publisher    EventPublisher
	deduper      Deduper
	retryCounter RetryCounter
	opts         Options
	logger       *zap.Logger
	now          func() time.Time
}

func NewNotificationHandler(
	source MessageSource,
	pipeline Pipeline,
	publisher EventPublisher,
	deduper Deduper,
	retryCounter RetryCounter,
	opts Options,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		source:       source,
		pipeline:     pipeline,
		publisher:    publisher,
		deduper:      deduper,
		retryCounter: retryCounter,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// Handle returns an error only when the delivery should be requeued.
func (h *NotificationHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	defer h.recoverPanic()

	ctx = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, h.logger)

	// --------------------------
	// Step 1: decode & validate
	// --------------------------
	var payload mqcontracts.GmailNotificationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.reject(ctx, log, raw, "bad_payload", err)
		return nil
	}
	if payload.EmailAddress == "" {
		h.reject(ctx, log, raw, "missing_email_address", errors.New("no emailAddress field in notification"))
		return nil
	}

	log = log.With(
		zap.String("email_address", payload.EmailAddress),
		zap.Uint64("history_id", payload.HistoryID),
	)
	log.Info("Received Gmail notification")

	retryKey := util.FormatRetryKey(handlerName, payload.EmailAddress+":"+strconv.FormatUint(payload.HistoryID, 10))

	// --------------------------
	// Step 2: newest message id
	// --------------------------
	id, err := h.source.LatestMessageID(ctx)
	if errors.Is(err, gmail.ErrNoMessages) {
		log.Info("Inbox is empty, nothing to process")
		return nil
	}
	if err != nil {
		return h.handleSourceError(ctx, log, raw, retryKey, err)
	}
	log = log.With(zap.String("message_id", id))

	// 同一封邮件可能被多条通知触发
	if !h.deduper.AcquireOnce(ctx, handlerName, id) {
		log.Info("Message already processed, skip")
		return nil
	}

	// --------------------------
	// Step 3: fetch full message
	// --------------------------
	msg, err := h.source.Fetch(ctx, id)
	if err != nil {
		h.deduper.Release(ctx, handlerName, id)
		return h.handleSourceError(ctx, log, raw, retryKey, err)
	}
	if err := h.retryCounter.Reset(ctx, retryKey); err != nil {
		log.Debug("Failed to reset retry counter", zap.Error(err))
	}

	// --------------------------
	// Step 4: run pipeline
	// --------------------------
	result := h.pipeline.Process(ctx, msg)
	if result == nil {
		log.Warn("Pipeline produced no result")
		return nil
	}

	h.publishProcessed(ctx, log, id, result)
	return nil
}

func (h *NotificationHandler) publishProcessed(ctx context.Context, log *zap.Logger, id string, result *model.ProcessingResult) {
	if h.opts.ProcessedRoutingKey == "" {
		return
	}

	event := mqcontracts.PressReleaseProcessedPayload{
		MessageID:    id,
		ResultKey:    storage.ResultKey(id),
		PressRelease: !result.LLMSummary.IsEmpty() || result.PressReleaseURL != nil || result.PressReleaseText != nil,
		Headline:     model.Deref(result.LLMSummary.Headline),
		URL:          model.Deref(result.PressReleaseURL),
		ProcessedAt:  h.now().UTC(),
	}
	// 发布失败不影响主流程
	if err := h.publisher.Publish(ctx, h.opts.ProcessedRoutingKey, event); err != nil {
		log.Warn("Failed to publish processed event", zap.Error(err))
	}
}

func (h *NotificationHandler) handleSourceError(ctx context.Context, log *zap.Logger, raw []byte, retryKey string, err error) error {
	isRetryable, errType := util.IsRetryableError(err)

	retryCount, counterErr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if counterErr != nil {
		log.Warn("Retry counter unavailable", zap.Error(counterErr))
	}

	log.Warn("Gmail fetch error",
		zap.String("error", err.Error()),
		zap.String("type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Int64("retry", retryCount),
	)

	if util.ShouldRetry(retryCount, h.opts.MaxRetries, isRetryable) {
		return fmt.Errorf("%s: %w", errType, err) // nack → 重试
	}

	if retryCount > h.opts.MaxRetries {
		log.Warn("Max retries exceeded, sending to DLQ")
	}
	_ = h.retryCounter.Reset(ctx, retryKey)
	h.reject(ctx, log, raw, errType, err)
	return nil // ack
}

// reject 把消息送进 DLQ，不触发 pipeline
func (h *NotificationHandler) reject(ctx context.Context, log *zap.Logger, raw []byte, reason string, cause error) {
	log.Error("Rejecting notification",
		zap.String("reason", reason),
		zap.String("raw", string(raw)),
		zap.Error(cause),
	)
	metrics.IncrementNotificationRejected(reason)

	if err := h.publisher.PublishToDLQ(ctx, h.opts.RoutingKey, raw, cause.Error()); err != nil {
		log.Error("Failed to publish to DLQ", zap.Error(err))
	}
}

func (h *NotificationHandler) recoverPanic() {
	if r := recover(); r != nil {
		h.logger.Error("panic recovered in handler", zap.Any("panic", r))
	}
}
