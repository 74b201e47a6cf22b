package scraper

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var timestampPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),        // 2025-05-20
	regexp.MustCompile(`\b[A-Za-z]+ \d{1,2}, \d{4}\b`), // May 20, 2025
	regexp.MustCompile(`\b\d{1,2} [A-Za-z]+ \d{4}\b`),  // 20 May 2025
}

// 整个子树都丢弃
var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"aside":    true,
	"form":     true,
}

// 这些块如果字数太少且不含日期则删掉
var blockTags = map[string]bool{
	"p":          true,
	"li":         true,
	"div":        true,
	"section":    true,
	"td":         true,
	"blockquote": true,
	"article":    true,
}

var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func hasTimestamp(text string) bool {
	for _, re := range timestampPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func containsHeading(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && headingTags[c.Data] {
			return true
		}
		if containsHeading(c) {
			return true
		}
	}
	return false
}

// shouldRetain keeps a block that mentions a date, holds a heading, or has
// at least minWords words.
func shouldRetain(n *html.Node, minWords int) bool {
	text := textContent(n)
	if hasTimestamp(text) {
		return true
	}
	if containsHeading(n) {
		return true
	}
	return len(strings.Fields(text)) >= minWords
}

// prune removes non-content subtrees and thin blocks in place.
func prune(doc *html.Node, minWords int) {
	var doomed []*html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			doomed = append(doomed, n)
			return
		}
		if n.Type == html.ElementNode {
			if droppedTags[n.Data] {
				doomed = append(doomed, n)
				return
			}
			if blockTags[n.Data] && !shouldRetain(n, minWords) {
				doomed = append(doomed, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

// findBody returns the <body> element, or doc when there is none.
func findBody(doc *html.Node) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if found == nil {
		return doc
	}
	return found
}
