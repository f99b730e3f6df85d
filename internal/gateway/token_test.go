package gateway

import (
	"net/http/httptest"
	"testing"
)

func TestExtractTokenFromQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/console?token=abc123", nil)

	if got := ExtractToken(r); got != "abc123" {
		t.Errorf("Expected token abc123, got %q", got)
	}
}

func TestExtractTokenFromCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/console", nil)
	r.Header.Set("Cookie", "lang=en; token=cookie-token; theme=dark")

	if got := ExtractToken(r); got != "cookie-token" {
		t.Errorf("Expected token cookie-token, got %q", got)
	}
}

func TestExtractTokenQueryWinsOverCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/console?token=from-query", nil)
	r.Header.Set("Cookie", "token=from-cookie")

	if got := ExtractToken(r); got != "from-query" {
		t.Errorf("Expected query token to win, got %q", got)
	}
}

func TestExtractTokenMissing(t *testing.T) {
	r := httptest.NewRequest("GET", "/console", nil)

	if got := ExtractToken(r); got != "" {
		t.Errorf("Expected empty token, got %q", got)
	}

	r = httptest.NewRequest("GET", "/console", nil)
	r.Header.Set("Cookie", "session=foo")
	if got := ExtractToken(r); got != "" {
		t.Errorf("Expected empty token with unrelated cookie, got %q", got)
	}
}
