package classifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"prsummarizer/internal/llm"
	"prsummarizer/internal/model"
	"prsummarizer/pkg/logger"
)

// ErrParseFailure means the model answered but not with the agreed JSON.
var ErrParseFailure = errors.New("classifier: response violates JSON contract")

type Classifier struct {
	generator llm.Generator
	logger    *zap.Logger
}

func NewClassifier(generator llm.Generator, logger *zap.Logger) *Classifier {
	return &Classifier{generator: generator, logger: logger}
}

// Classify never fails; any model or contract error yields
// model.DefaultClassification.
func (c *Classifier) Classify(ctx context.Context, subject, body string, urls []string) model.Classification {
	log := logger.WithTrace(ctx, c.logger)
	log.Debug("Classifying email", zap.String("subject", subject), zap.Strings("urls", urls))

	resp, err := c.generator.Generate(ctx, BuildPrompt(subject, body, urls))
	if err != nil {
		log.Error("Gemini API error", zap.Error(err))
		return model.DefaultClassification()
	}

	result, err := ParseClassification(resp)
	if err != nil {
		log.Error("Failed to parse classification",
			zap.Error(err),
			zap.String("response", llm.Preview(resp)),
		)
		return model.DefaultClassification()
	}

	log.Info("Classification result",
		zap.String("press_release", result.PressRelease),
		zap.String("type", model.Deref(result.Type)),
	)
	return result
}

// ParseClassification decodes a raw model response. The response must be a
// bare JSON object; code fences are rejected.
func ParseClassification(resp string) (model.Classification, error) {
	var result model.Classification
	if err := llm.DecodeObject(resp, &result); err != nil {
		return model.Classification{}, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}

	switch result.PressRelease {
	case model.PressReleaseYes, model.PressReleaseNo:
	default:
		return model.Classification{}, fmt.Errorf("%w: press_release=%q", ErrParseFailure, result.PressRelease)
	}

	if result.Type != nil {
		switch *result.Type {
		case model.TypeInline, model.TypeURL:
		default:
			return model.Classification{}, fmt.Errorf("%w: type=%q", ErrParseFailure, *result.Type)
		}
	}
	return result, nil
}
