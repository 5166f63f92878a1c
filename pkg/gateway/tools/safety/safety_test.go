package safety

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func bodyResponse(s string) *http.Response {
	return &http.Response{Body: io.NopCloser(strings.NewReader(s))}
}

func TestReadBodyLimited_WithinLimit(t *testing.T) {
	b, err := ReadBodyLimited(bodyResponse("hello"), 16)
	if err != nil {
		t.Fatalf("ReadBodyLimited: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("body=%q", b)
	}
}

func TestReadBodyLimited_OverLimit(t *testing.T) {
	if _, err := ReadBodyLimited(bodyResponse(strings.Repeat("x", 17)), 16); err == nil {
		t.Fatalf("expected error for oversized body")
	}
}

func TestDecodeJSONLimited(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	if err := DecodeJSONLimited(bodyResponse(`{"name":"ok"}`), 64, &out); err != nil {
		t.Fatalf("DecodeJSONLimited: %v", err)
	}
	if out.Name != "ok" {
		t.Fatalf("name=%q", out.Name)
	}
	if err := DecodeJSONLimited(bodyResponse(`{bad`), 64, &out); err == nil {
		t.Fatalf("expected decode error")
	}
}
