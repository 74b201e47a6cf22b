package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"prsummarizer/pkg/config"
)

const pressPage = `<html><head><title>PR</title><script>track()</script></head><body>
<header><a href="/">Home</a></header>
<nav><ul><li>Products</li><li>About</li></ul></nav>
<article>
  <h1>XYZ Launches Widget</h1>
  <p>May 20, 2025</p>
  <p>Share</p>
  <p>Company XYZ today announced the general availability of Widget for all customers.</p>
</article>
<footer>Copyright XYZ</footer>
</body></html>`

func newTestScraper() *HTTPScraper {
	return NewHTTPScraper(config.ScraperConfig{Timeout: time.Second, UserAgent: "prsummarizer-test"}, zap.NewNop())
}

func TestScrapeKeepsContentAndDates(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(pressPage))
	}))
	defer srv.Close()

	got := newTestScraper().Scrape(context.Background(), srv.URL)
	be.True(t, got != nil)

	md := *got
	be.Equal(t, gotUA, "prsummarizer-test")
	be.True(t, strings.Contains(md, "XYZ Launches Widget"))
	be.True(t, strings.Contains(md, "May 20, 2025"))
	be.True(t, strings.Contains(md, "general availability of Widget"))
	be.Equal(t, strings.Contains(md, "Share"), false)
	be.Equal(t, strings.Contains(md, "Products"), false)
	be.Equal(t, strings.Contains(md, "Copyright"), false)
	be.Equal(t, strings.Contains(md, "track()"), false)
}

func TestScrapeNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	be.True(t, newTestScraper().Scrape(context.Background(), srv.URL) == nil)
}

func TestScrapeUnreachable(t *testing.T) {
	be.True(t, newTestScraper().Scrape(context.Background(), "http://127.0.0.1:1/pr") == nil)
}

func TestScrapeEmptyAfterPruning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><nav>Menu</nav><p>Hi</p></body></html>`))
	}))
	defer srv.Close()

	be.True(t, newTestScraper().Scrape(context.Background(), srv.URL) == nil)
}

func TestShouldRetain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"iso date", "<p>2025-05-20</p>", true},
		{"long date", "<p>May 20, 2025</p>", true},
		{"day first", "<p>20 May 2025</p>", true},
		{"short", "<p>Read more</p>", false},
		{"enough words", "<p>one two three four five</p>", true},
		{"heading", "<div><h2>News</h2></div>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := html.Parse(strings.NewReader(tt.in))
			be.Err(t, err, nil)
			block := findBody(doc).FirstChild
			be.Equal(t, shouldRetain(block, 5), tt.want)
		})
	}
}
