package mime

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"go.uber.org/zap"

	"prsummarizer/internal/model"
)

func enc(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func leaf(mimeType, text string) *model.Part {
	return &model.Part{MimeType: mimeType, Body: model.Body{Data: enc(text)}}
}

func multipart(subtype string, parts ...*model.Part) *model.Part {
	return &model.Part{MimeType: "multipart/" + subtype, Parts: parts}
}

func newExtractor() *Extractor {
	return NewExtractor(NewDecoder(zap.NewNop()), zap.NewNop())
}

func TestExtractHTMLWinsOverEarlierPlain(t *testing.T) {
	msg := &model.RawMessage{Payload: multipart("alternative",
		leaf("text/plain", "plain body"),
		leaf("text/html", "<p>html body</p>"),
	)}
	be.Equal(t, newExtractor().Extract(msg), "<p>html body</p>")
}

func TestExtractHTMLInNestedSubtree(t *testing.T) {
	msg := &model.RawMessage{Payload: multipart("mixed",
		multipart("alternative", leaf("text/plain", "first plain")),
		multipart("related",
			leaf("image/png", "png bytes"),
			multipart("alternative", leaf("text/html", "<div>deep</div>")),
		),
	)}
	be.Equal(t, newExtractor().Extract(msg), "<div>deep</div>")
}

func TestExtractFirstHTMLInTraversalOrder(t *testing.T) {
	msg := &model.RawMessage{Payload: multipart("mixed",
		multipart("alternative", leaf("text/html", "<p>one</p>")),
		leaf("text/html", "<p>two</p>"),
	)}
	be.Equal(t, newExtractor().Extract(msg), "<p>one</p>")
}

func TestExtractPlainOnlyMultipart(t *testing.T) {
	msg := &model.RawMessage{Payload: multipart("mixed",
		leaf("text/plain", "first"),
		multipart("alternative", leaf("text/plain", "second")),
	)}
	be.Equal(t, newExtractor().Extract(msg), "<pre>first</pre>")
}

func TestExtractSkipsUndecodableHTML(t *testing.T) {
	msg := &model.RawMessage{Payload: multipart("alternative",
		&model.Part{MimeType: "text/html", Body: model.Body{Data: "!!!"}},
		leaf("text/plain", "fallback"),
	)}
	be.Equal(t, newExtractor().Extract(msg), "<pre>fallback</pre>")
}

func TestExtractTopLevelTypes(t *testing.T) {
	tests := []struct {
		name    string
		payload *model.Part
		want    string
	}{
		{"html", leaf("text/html", "<b>hi</b>"), "<b>hi</b>"},
		{"plain", leaf("text/plain", "hi"), "<pre>hi</pre>"},
		{"unknown", leaf("application/octet-stream", "raw"), "raw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &model.RawMessage{Payload: tt.payload, Snippet: "snippet"}
			be.Equal(t, newExtractor().Extract(msg), tt.want)
		})
	}
}

func TestExtractSnippetFallback(t *testing.T) {
	msg := &model.RawMessage{
		Snippet: "S",
		Payload: &model.Part{MimeType: "text/html", Body: model.Body{Data: "%%%"}},
	}
	be.Equal(t, newExtractor().Extract(msg), "<pre>S</pre>")

	msg = &model.RawMessage{Snippet: "S", Payload: multipart("mixed")}
	be.Equal(t, newExtractor().Extract(msg), "<pre>S</pre>")
}

func TestExtractPlaceholder(t *testing.T) {
	be.Equal(t, newExtractor().Extract(&model.RawMessage{}), "<pre>"+NoContentPlaceholder+"</pre>")
	be.Equal(t, newExtractor().Extract(nil), "<pre>"+NoContentPlaceholder+"</pre>")
}

func TestParserHeaders(t *testing.T) {
	payload := leaf("text/html", "<p>x</p>")
	payload.Headers = []model.Header{
		{Name: "SUBJECT", Value: "Q2 Earnings"},
		{Name: "From", Value: "ir@example.com"},
		{Name: "Date", Value: "Tue, 20 May 2025 10:03:00 -0400"},
	}

	p := NewParser(zap.NewNop())
	got := p.Parse(&model.RawMessage{Payload: payload})

	be.Equal(t, got.Subject, "Q2 Earnings")
	be.Equal(t, got.Sender, "ir@example.com")
	be.Equal(t, got.Timestamp, "2025-05-20T14:03:00+00:00")
	be.Equal(t, got.HTML, "<p>x</p>")
}

func TestParserTimestampFallback(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	p := NewParser(zap.NewNop())
	p.now = func() time.Time { return now }

	payload := leaf("text/plain", "x")
	got := p.Parse(&model.RawMessage{Payload: payload})
	be.Equal(t, got.Timestamp, "2025-06-01T08:00:00+00:00")

	payload.Headers = []model.Header{{Name: "date", Value: "not a date"}}
	got = p.Parse(&model.RawMessage{Payload: payload})
	be.Equal(t, got.Timestamp, "2025-06-01T08:00:00+00:00")
}

func TestSenderHeaderAlias(t *testing.T) {
	msg := &model.RawMessage{Payload: &model.Part{Headers: []model.Header{{Name: "sender", Value: "pr@x.com"}}}}
	be.Equal(t, Sender(msg), "pr@x.com")
	be.Equal(t, Subject(msg), "")
}
