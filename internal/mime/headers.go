package mime

import (
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"prsummarizer/internal/model"
)

func headersOf(msg *model.RawMessage) []model.Header {
	if msg == nil || msg.Payload == nil {
		return nil
	}
	return msg.Payload.Headers
}

// headerValue returns the first header whose name matches one of names,
// case-insensitively.
func headerValue(headers []model.Header, names ...string) string {
	for _, h := range headers {
		for _, name := range names {
			if strings.EqualFold(h.Name, name) {
				return h.Value
			}
		}
	}
	return ""
}

func Subject(msg *model.RawMessage) string {
	return headerValue(headersOf(msg), "subject")
}

func Sender(msg *model.RawMessage) string {
	return headerValue(headersOf(msg), "from", "sender")
}

// Timestamp turns the Date header into a UTC ISO-8601 string. A missing or
// unparsable header falls back to now.
func Timestamp(msg *model.RawMessage, now time.Time, logger *zap.Logger) string {
	raw := headerValue(headersOf(msg), "date")
	if raw == "" {
		logger.Debug("Email has no Date header, using current timestamp")
		return model.FormatTimestamp(now)
	}

	t, err := mail.ParseDate(raw)
	if err != nil {
		logger.Warn("Failed to parse email date, using current timestamp",
			zap.String("date", raw),
			zap.Error(err),
		)
		return model.FormatTimestamp(now)
	}
	return model.FormatTimestamp(t)
}
