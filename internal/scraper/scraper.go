package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"prsummarizer/pkg/config"
	"prsummarizer/pkg/logger"
	"prsummarizer/pkg/metrics"
)

const maxPageBytes = 5 << 20

// Scraper fetches a press-release page and returns its main content as
// markdown, or nil when nothing usable was retrieved.
type Scraper interface {
	Scrape(ctx context.Context, url string) *string
}

type HTTPScraper struct {
	client    *http.Client
	userAgent string
	minWords  int
	logger    *zap.Logger
}

func NewHTTPScraper(cfg config.ScraperConfig, logger *zap.Logger) *HTTPScraper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	minWords := cfg.MinWords
	if minWords <= 0 {
		minWords = 5
	}
	return &HTTPScraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		minWords:  minWords,
		logger:    logger,
	}
}

func (s *HTTPScraper) Scrape(ctx context.Context, url string) *string {
	log := logger.WithTrace(ctx, s.logger).With(zap.String("url", url))
	log.Info("Starting URL scrape")

	page, err := s.fetch(ctx, url)
	if err != nil {
		log.Error("Scraping error", zap.Error(err))
		metrics.IncrementScrape("fetch_error")
		return nil
	}

	md, err := s.toMarkdown(page)
	if err != nil {
		log.Error("Scraping error", zap.Error(err))
		metrics.IncrementScrape("convert_error")
		return nil
	}
	if md == "" {
		log.Warn("Scraped page has no content left after pruning")
		metrics.IncrementScrape("empty")
		return nil
	}

	log.Info("Successfully scraped URL", zap.Int("content_length", len(md)))
	metrics.IncrementScrape("success")
	return &md
}

func (s *HTTPScraper) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// toMarkdown prunes the page and converts what remains of <body>.
func (s *HTTPScraper) toMarkdown(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	prune(doc, s.minWords)

	var buf bytes.Buffer
	if err := html.Render(&buf, findBody(doc)); err != nil {
		return "", fmt.Errorf("render pruned page: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
