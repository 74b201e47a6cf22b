package normalize

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"prsummarizer/internal/model"
)

// MaxBodyRunes bounds NormalizedContent.Body.
const MaxBodyRunes = 1000

var textURLPattern = regexp.MustCompile(`https?://\S+`)

// 这些标签下的内容不算正文
var skippedTags = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"footer": true,
	"header": true,
}

type Resolver interface {
	Resolve(ctx context.Context, rawURL string) string
}

type Normalizer struct {
	resolver Resolver
	logger   *zap.Logger
}

// NewNormalizer builds a normalizer. A nil resolver leaves URLs as found.
func NewNormalizer(resolver Resolver, logger *zap.Logger) *Normalizer {
	return &Normalizer{resolver: resolver, logger: logger}
}

// Normalize reduces HTML to bounded visible text plus a deduplicated,
// redirect-resolved URL list. Unparsable input yields empty content.
func (n *Normalizer) Normalize(ctx context.Context, rawHTML string) model.NormalizedContent {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		n.logger.Error("Error processing HTML", zap.Error(err))
		return model.NormalizedContent{}
	}

	texts, hrefs := collect(doc)
	fullText := strings.Join(texts, " ")

	found := append(hrefs, textURLPattern.FindAllString(fullText, -1)...)
	urls := dedup(found)

	content := model.NormalizedContent{
		Body: truncateRunes(fullText, MaxBodyRunes),
		URLs: n.resolveAll(ctx, urls),
	}

	n.logger.Info("HTML content processed",
		zap.Int("body_length", len(content.Body)),
		zap.Int("url_count", len(content.URLs)),
	)
	return content
}

// collect walks the document once, returning trimmed text nodes and
// non-empty anchor hrefs outside skipped subtrees.
func collect(doc *html.Node) (texts, hrefs []string) {
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.ElementNode:
			tag := strings.ToLower(node.Data)
			if skippedTags[tag] {
				return
			}
			if tag == "a" {
				if href := attr(node, "href"); href != "" {
					hrefs = append(hrefs, href)
				}
			}
		case html.TextNode:
			if text := strings.TrimSpace(node.Data); text != "" {
				texts = append(texts, text)
			}
		}

		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return texts, hrefs
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func (n *Normalizer) resolveAll(ctx context.Context, urls []string) []string {
	if n.resolver == nil || len(urls) == 0 {
		return urls
	}

	resolved := make([]string, 0, len(urls))
	for _, u := range urls {
		resolved = append(resolved, n.resolver.Resolve(ctx, u))
	}
	return dedup(resolved)
}

// dedup keeps the first occurrence of each value.
func dedup(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
