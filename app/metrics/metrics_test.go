package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vibast-solutions/ms-go-apikeys/app/metrics"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.RecordValidation(metrics.OutcomeValid, time.Millisecond)
	m.RecordScan(3, 2)
	m.RecordIssued("live")
	m.RecordRevoked()
}

func TestMetrics_RecordValidation(t *testing.T) {
	m := metrics.New("test")

	m.RecordValidation(metrics.OutcomeValid, 10*time.Millisecond)
	m.RecordValidation(metrics.OutcomeInvalid, 5*time.Millisecond)
	m.RecordValidation(metrics.OutcomeInvalid, 5*time.Millisecond)

	expected := `
# HELP test_validation_total Total number of API key validation attempts
# TYPE test_validation_total counter
test_validation_total{outcome="error"} 0
test_validation_total{outcome="invalid"} 2
test_validation_total{outcome="missing"} 0
test_validation_total{outcome="valid"} 1
`
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	if err := testutil.ScrapeAndCompare(srv.URL, strings.NewReader(expected), "test_validation_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := metrics.New("test")
	m.RecordIssued("test")
	m.RecordRevoked()
	m.RecordScan(4, 4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`test_keys_issued_total{environment="test"} 1`,
		`test_keys_revoked_total 1`,
		`test_validation_hash_comparisons_total 4`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}
