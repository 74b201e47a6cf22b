package mq

// GmailNotificationPayload 是 Gmail push 通知解码后的内容
type GmailNotificationPayload struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId,omitempty"`
}
