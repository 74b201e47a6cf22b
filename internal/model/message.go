package model

// RawMessage 是已经从 Gmail 拉取下来的原始邮件（headers + payload 树 + snippet）
type RawMessage struct {
	ID      string `json:"id"`
	Snippet string `json:"snippet"`
	Payload *Part  `json:"payload"`
}

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Part is one node of the MIME tree. A leaf carries Body.Data, a multipart
// container carries Parts.
type Part struct {
	MimeType string   `json:"mimeType"`
	Headers  []Header `json:"headers,omitempty"`
	Body     Body     `json:"body"`
	Parts    []*Part  `json:"parts,omitempty"`
}

type Body struct {
	// base64 (URL-safe in Gmail) encoded content
	Data string `json:"data,omitempty"`
}

// ParsedEmail is the header and body view extracted from a RawMessage.
type ParsedEmail struct {
	Subject   string
	Sender    string
	Timestamp string
	HTML      string
}

// NormalizedContent 是清洗后的正文（最多 1000 字符）和去重后的 URL 列表
type NormalizedContent struct {
	Body string
	URLs []string
}
