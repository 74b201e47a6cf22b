package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// IsRetryableError determines if an error is retryable
// Returns: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	// JSON decode errors - 不可重试（数据格式错误）
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false, "json_decode_error"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	// Context - 超时可重试，取消不可重试
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	// OAuth token 刷新失败 - 凭据问题，重试无意义
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return false, "oauth_token_error"
	}

	// Google API errors - 根据状态码判断
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return true, "google_api_rate_limited"
		case apiErr.Code >= 500:
			return true, "google_api_5xx"
		case apiErr.Code == http.StatusNotFound:
			return false, "message_not_found"
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return false, "google_api_auth_error"
		default:
			return false, "google_api_error"
		}
	}

	// Network errors - 可重试
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	if strings.Contains(err.Error(), "connection refused") || strings.Contains(err.Error(), "connection reset") {
		return true, "connection_error"
	}

	// 默认：未知错误，保守处理 - 不重试
	return false, "unknown_error"
}

// ShouldRetry checks if an error should be retried based on retry count
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
