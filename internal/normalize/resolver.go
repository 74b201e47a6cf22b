package normalize

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrorPrefix marks a URL that could not be resolved.
const ErrorPrefix = "Error: "

// HTTPResolver follows redirects with a GET and reports the final URL.
type HTTPResolver struct {
	client *http.Client
	logger *zap.Logger
}

func NewHTTPResolver(timeout time.Duration, logger *zap.Logger) *HTTPResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPResolver{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Resolve never fails; errors come back as "Error: <cause>".
func (r *HTTPResolver) Resolve(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ErrorPrefix + err.Error()
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("URL resolution failed", zap.String("url", rawURL), zap.Error(err))
		return fmt.Sprintf("%s%v", ErrorPrefix, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.Request.URL.String()
}
