// Package safety bounds what tool HTTP adapters read from external services.
package safety

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseBytes caps any single tool-backend response.
const MaxResponseBytes int64 = 1 << 20

// ReadBodyLimited reads at most limit bytes and fails if the body is larger.
func ReadBodyLimited(resp *http.Response, limit int64) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("response body is empty")
	}
	if limit <= 0 {
		limit = MaxResponseBytes
	}
	lr := &io.LimitedReader{R: resp.Body, N: limit + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("response exceeds maximum size %d bytes", limit)
	}
	return b, nil
}

// DecodeJSONLimited decodes a bounded response body into out.
func DecodeJSONLimited(resp *http.Response, limit int64, out any) error {
	b, err := ReadBodyLimited(resp, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
