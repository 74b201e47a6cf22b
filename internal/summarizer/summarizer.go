package summarizer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"prsummarizer/internal/llm"
	"prsummarizer/internal/model"
	"prsummarizer/pkg/logger"
)

var ErrParseFailure = errors.New("summarizer: response violates JSON contract")

const promptTemplate = `
Prompt:

You are given a press release. Summarize the content with a concise structured summary.

Return a single-line raw JSON object in the following format (do NOT include triple backticks or any formatting):

"headline": a short, informative title based on the press release

"key_result": a concise statement of the main outcome or news

"impacted_program": the specific program, initiative, or area affected

"next_step": the immediate follow-up action or implication mentioned

"timestamp": the release date in date format or timestamp format, or null if not found

TEXT:

%s

Only return a single-line raw JSON object. Do not include triple quotes, code blocks, or markdown.
`

// BuildPrompt embeds the full text; it is not truncated.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

type Summarizer struct {
	generator llm.Generator
	logger    *zap.Logger
}

func NewSummarizer(generator llm.Generator, logger *zap.Logger) *Summarizer {
	return &Summarizer{generator: generator, logger: logger}
}

// Summarize never fails; errors yield model.DefaultSummary.
func (s *Summarizer) Summarize(ctx context.Context, text string) model.Summary {
	log := logger.WithTrace(ctx, s.logger)
	log.Info("Generating summary", zap.Int("text_length", len(text)))

	resp, err := s.generator.Generate(ctx, BuildPrompt(text))
	if err != nil {
		log.Error("Summarization error", zap.Error(err))
		return model.DefaultSummary()
	}

	summary, err := ParseSummary(resp)
	if err != nil {
		log.Error("Failed to parse summary",
			zap.Error(err),
			zap.String("response", llm.Preview(resp)),
		)
		return model.DefaultSummary()
	}

	log.Info("Summary generated", zap.String("headline", model.Deref(summary.Headline)))
	return summary
}

// ParseSummary decodes a raw model response into a Summary. Every key must
// be a string or null.
func ParseSummary(resp string) (model.Summary, error) {
	var summary model.Summary
	if err := llm.DecodeObject(resp, &summary); err != nil {
		return model.Summary{}, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}
	return summary, nil
}
