package mime

import (
	"time"

	"go.uber.org/zap"

	"prsummarizer/internal/model"
)

// Parser produces the ParsedEmail view of a fetched message.
type Parser struct {
	extractor *Extractor
	logger    *zap.Logger
	now       func() time.Time
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{
		extractor: NewExtractor(NewDecoder(logger), logger),
		logger:    logger,
		now:       time.Now,
	}
}

func (p *Parser) Parse(msg *model.RawMessage) model.ParsedEmail {
	parsed := model.ParsedEmail{
		Subject:   Subject(msg),
		Sender:    Sender(msg),
		Timestamp: Timestamp(msg, p.now(), p.logger),
		HTML:      p.extractor.Extract(msg),
	}

	p.logger.Info("Email parsed",
		zap.String("subject", parsed.Subject),
		zap.String("email_timestamp", parsed.Timestamp),
		zap.Int("html_length", len(parsed.HTML)),
	)
	return parsed
}
