package mq

import "time"

// PressReleaseProcessedPayload 在一封邮件处理完成后发布
type PressReleaseProcessedPayload struct {
	MessageID    string    `json:"message_id"`
	ResultKey    string    `json:"result_key"`
	PressRelease bool      `json:"press_release"`
	Headline     string    `json:"headline,omitempty"`
	URL          string    `json:"url,omitempty"`
	ProcessedAt  time.Time `json:"processed_at"`
}
