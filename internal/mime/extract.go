package mime

import (
	"strings"

	"go.uber.org/zap"

	"prsummarizer/internal/model"
)

const (
	mimeHTML      = "text/html"
	mimePlain     = "text/plain"
	multipartType = "multipart"

	// NoContentPlaceholder is used when neither the payload nor the snippet
	// yields any text.
	NoContentPlaceholder = "No content could be extracted from this email"
)

// node is one arena slot; children index back into the same arena.
type node struct {
	mimeType string
	data     string
	children []int
}

// buildArena flattens the part tree into index-addressed nodes. Slot 0 is
// the root. A nil root yields a single empty node.
func buildArena(root *model.Part) []node {
	if root == nil {
		return []node{{}}
	}

	arena := []node{{mimeType: root.MimeType, data: root.Body.Data}}
	parts := []*model.Part{root}

	for i := 0; i < len(parts); i++ {
		for _, child := range parts[i].Parts {
			if child == nil {
				continue
			}
			arena = append(arena, node{mimeType: child.MimeType, data: child.Body.Data})
			parts = append(parts, child)
			arena[i].children = append(arena[i].children, len(arena)-1)
		}
	}
	return arena
}

func isMultipart(mimeType string) bool {
	return strings.HasPrefix(mimeType, multipartType)
}

// Extractor picks one HTML (or <pre>-wrapped plaintext) body out of a message.
type Extractor struct {
	decoder *Decoder
	logger  *zap.Logger
}

func NewExtractor(decoder *Decoder, logger *zap.Logger) *Extractor {
	return &Extractor{decoder: decoder, logger: logger}
}

// Extract never returns "": it falls back to the snippet and then to a fixed
// placeholder.
func (e *Extractor) Extract(msg *model.RawMessage) string {
	var payload *model.Part
	snippet := ""
	if msg != nil {
		payload = msg.Payload
		snippet = msg.Snippet
	}

	body := e.extractBody(buildArena(payload))
	if body != "" {
		return body
	}

	e.logger.Warn("No body was extracted from email, using fallback",
		zap.Int("snippet_length", len(snippet)),
	)
	if snippet != "" {
		return wrapPre(snippet)
	}
	return wrapPre(NoContentPlaceholder)
}

func (e *Extractor) extractBody(arena []node) string {
	root := arena[0]

	switch {
	case isMultipart(root.mimeType):
		html, plain := e.walk(arena)
		if html != "" {
			return html
		}
		if plain != "" {
			return wrapPre(plain)
		}
		return ""
	case root.mimeType == mimeHTML:
		return e.decoder.Decode(root.data)
	case root.mimeType == mimePlain:
		if text := e.decoder.Decode(root.data); text != "" {
			return wrapPre(text)
		}
		return ""
	default:
		e.logger.Debug("Unhandled MIME type, decoding body directly",
			zap.String("mime_type", root.mimeType),
		)
		return e.decoder.Decode(root.data)
	}
}

// walk does a depth-first, left-to-right traversal below the root. The first
// decodable text/html leaf ends the walk; the first decodable text/plain leaf
// is kept as the fallback.
func (e *Extractor) walk(arena []node) (html, plain string) {
	stack := pushChildren(nil, arena[0].children)

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := arena[idx]

		switch {
		case isMultipart(n.mimeType):
			stack = pushChildren(stack, n.children)
		case n.mimeType == mimeHTML:
			if text := e.decoder.Decode(n.data); text != "" {
				return text, plain
			}
		case n.mimeType == mimePlain:
			if plain != "" {
				continue
			}
			plain = e.decoder.Decode(n.data)
		}
	}
	return "", plain
}

// pushChildren pushes in reverse so the leftmost child is popped first.
func pushChildren(stack, children []int) []int {
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, children[i])
	}
	return stack
}

func wrapPre(s string) string {
	return "<pre>" + s + "</pre>"
}
