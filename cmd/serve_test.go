package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vibast-solutions/ms-go-apikeys/app/metrics"
	"github.com/vibast-solutions/ms-go-apikeys/config"
)

func TestNewHTTPServerRejectsInvalidTrustedProxy(t *testing.T) {
	if _, err := newHTTPServer(config.ServerConfig{TrustedProxies: []string{"not-a-cidr"}}, &application{}); err == nil {
		t.Fatalf("expected error for invalid trusted proxy")
	}
}

func TestNewHTTPServerIgnoresForwardedForByDefault(t *testing.T) {
	e, err := newHTTPServer(config.ServerConfig{}, &application{metrics: metrics.New("test")})
	if err != nil {
		t.Fatalf("newHTTPServer failed: %v", err)
	}
	if e.IPExtractor == nil {
		t.Fatalf("expected an IP extractor to be configured")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	if got := e.IPExtractor(req); got != "203.0.113.9" {
		t.Fatalf("expected socket address, got %q", got)
	}
}
