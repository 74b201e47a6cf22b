package pipeline

import (
	"context"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"prsummarizer/internal/model"
	"prsummarizer/internal/scraper"
	"prsummarizer/internal/storage"
	"prsummarizer/pkg/logger"
	"prsummarizer/pkg/metrics"
	"prsummarizer/pkg/otel"
)

type EmailParser interface {
	Parse(msg *model.RawMessage) model.ParsedEmail
}

type ContentNormalizer interface {
	Normalize(ctx context.Context, html string) model.NormalizedContent
}

type Classifier interface {
	Classify(ctx context.Context, subject, body string, urls []string) model.Classification
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) model.Summary
}

// Orchestrator runs one message through parse → normalize → classify →
// (scrape) → summarize → store.
type Orchestrator struct {
	parser     EmailParser
	normalizer ContentNormalizer
	classifier Classifier
	summarizer Summarizer
	scraper    scraper.Scraper
	sink       storage.Sink
	logger     *zap.Logger
	now        func() time.Time
}

func NewOrchestrator(
	parser EmailParser,
	normalizer ContentNormalizer,
	classifier Classifier,
	summarizer Summarizer,
	scraper scraper.Scraper,
	sink storage.Sink,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		parser:     parser,
		normalizer: normalizer,
		classifier: classifier,
		summarizer: summarizer,
		scraper:    scraper,
		sink:       sink,
		logger:     logger,
		now:        time.Now,
	}
}

// Process never panics. A nil result is the empty outcome: either msg was nil
// or a stage failed unexpectedly.
func (o *Orchestrator) Process(ctx context.Context, msg *model.RawMessage) (result *model.ProcessingResult) {
	log := logger.WithTrace(ctx, o.logger)
	if msg == nil {
		log.Warn("Nothing to process, message is nil")
		return nil
	}
	log = log.With(zap.String("message_id", msg.ID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Error processing email",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			metrics.IncrementEmailProcessed("failed")
			result = nil
		}
	}()

	ctx, span := otel.StartSpan(ctx, "pipeline.process")
	defer span.End()

	log.Info("Processing email message")
	res, status := o.run(ctx, msg, log)
	span.SetAttributes(attribute.String("pipeline.status", status))

	key := storage.ResultKey(msg.ID)
	if !o.sink.Save(ctx, res, key) {
		log.Warn("Result was not persisted", zap.String("key", key))
	}

	metrics.IncrementEmailProcessed(status)
	log.Info("Completed processing email", zap.String("status", status))
	return res
}

func (o *Orchestrator) run(ctx context.Context, msg *model.RawMessage, log *zap.Logger) (*model.ProcessingResult, string) {
	var parsed model.ParsedEmail
	stage(ctx, "parse", func(ctx context.Context) { parsed = o.parser.Parse(msg) })

	var content model.NormalizedContent
	stage(ctx, "normalize", func(ctx context.Context) { content = o.normalizer.Normalize(ctx, parsed.HTML) })

	var classification model.Classification
	stage(ctx, "classify", func(ctx context.Context) {
		classification = o.classifier.Classify(ctx, parsed.Subject, content.Body, content.URLs)
	})

	var (
		summary   model.Summary
		prText    *string
		prURL     *string
		prWebsite *string
		status    = "not_press_release"
	)

	if classification.IsPressRelease() {
		var text *string
		switch {
		case classification.TypeIs(model.TypeInline):
			body := content.Body
			text = &body
			prText = text
			prWebsite = classification.Timestamp
		case classification.TypeIs(model.TypeURL) && model.Deref(classification.URL) != "":
			prURL = classification.URL
			stage(ctx, "scrape", func(ctx context.Context) { text = o.scraper.Scrape(ctx, *classification.URL) })
			prText = text
		}

		if model.Deref(text) != "" {
			stage(ctx, "summarize", func(ctx context.Context) { summary = o.summarizer.Summarize(ctx, *text) })
			if ts := model.Deref(summary.Timestamp); ts != "" {
				prWebsite = summary.Timestamp
			}
			status = "summarized"
			log.Info("Generated summary", zap.String("headline", model.Deref(summary.Headline)))
		} else {
			status = "no_text"
			log.Info("No text content available for summarization")
		}
	}

	assembledAt := model.FormatTimestamp(o.now())
	return &model.ProcessingResult{
		PressReleaseWebsiteTimestamp: prWebsite,
		EmailTimestamp:               parsed.Timestamp,
		RetrievalTimestamp:           assembledAt,
		SummaryTimestamp:             assembledAt,
		EmailSubject:                 parsed.Subject,
		EmailSender:                  parsed.Sender,
		PressReleaseURL:              prURL,
		PressReleaseText:             prText,
		LLMSummary:                   summary,
	}, status
}

// stage 记录耗时并为每个阶段开一个子 span
func stage(ctx context.Context, name string, fn func(ctx context.Context)) {
	ctx, span := otel.StartSpan(ctx, "pipeline."+name)
	start := time.Now()
	defer func() {
		metrics.RecordStageDuration(name, time.Since(start))
		span.End()
	}()
	fn(ctx)
}
