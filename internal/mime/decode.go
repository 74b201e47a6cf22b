package mime

import (
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
)

var (
	// ErrDecodeFailure is logged when a body is not valid base64 text under
	// any supported variant. It never leaves this package.
	ErrDecodeFailure = errors.New("mime: body decode failure")

	errInvalidUTF8 = errors.New("decoded body is not valid UTF-8")
)

var (
	urlSafeEncodings  = []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding}
	standardEncodings = []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding}
)

// Decoder turns Gmail body data into text. Failures yield "".
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Decode tries URL-safe base64 first and standard base64 second, each with
// and without padding, and requires the result to be UTF-8.
func (d *Decoder) Decode(data string) string {
	if data == "" {
		return ""
	}

	text, err := decodeWith(data, urlSafeEncodings)
	if err == nil {
		return text
	}
	d.logger.Debug("URL-safe decode failed, trying standard base64", zap.Error(err))

	text, err = decodeWith(data, standardEncodings)
	if err == nil {
		return text
	}

	d.logger.Warn("Failed to decode email body",
		zap.Int("data_length", len(data)),
		zap.Error(fmt.Errorf("%w: %v", ErrDecodeFailure, err)),
	)
	return ""
}

func decodeWith(data string, encodings []*base64.Encoding) (string, error) {
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(data)
		if err != nil {
			lastErr = err
			continue
		}
		if !utf8.Valid(b) {
			lastErr = errInvalidUTF8
			continue
		}
		return string(b), nil
	}
	return "", lastErr
}
