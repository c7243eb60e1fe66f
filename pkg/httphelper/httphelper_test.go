package httphelper

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWriteHeader(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
	}{
		{name: "ok", statusCode: http.StatusOK},
		{name: "not found", statusCode: http.StatusNotFound},
		{name: "internal error", statusCode: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			trw := &TraceResponseWriter{ResponseWriter: rr, statusCode: http.StatusOK}
			trw.WriteHeader(tc.statusCode)
			if rr.Code != tc.statusCode {
				t.Errorf("expected recorded status %d, got %d", tc.statusCode, rr.Code)
			}
			if trw.statusCode != tc.statusCode {
				t.Errorf("expected traced status %d, got %d", tc.statusCode, trw.statusCode)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	rr := httptest.NewRecorder()
	trw := &TraceResponseWriter{ResponseWriter: rr, statusCode: http.StatusOK}
	body := []byte("report body")
	if _, err := trw.Write(body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rr.Body.String() != string(body) {
		t.Errorf("expected body %q, got %q", body, rr.Body.String())
	}
	if trw.size != len(body) {
		t.Errorf("expected traced size %d, got %d", len(body), trw.size)
	}
}

var metrics = NewMetrics("testnamespace")

func TestRecordError(t *testing.T) {
	metrics.RecordError("build-matrix")
	expected := `# HELP testnamespace_error_rate number of errors, sorted by label/type
# TYPE testnamespace_error_rate counter
testnamespace_error_rate{error="build-matrix"} 1
`
	if err := testutil.CollectAndCompare(metrics.ErrorRate, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics for ErrorRate:\n%s", err)
	}
}

func TestHandleWithMetricsCustomTimer(t *testing.T) {
	handler := metrics.HandleWithMetricsCustomTimer(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{'1'})
	}, func(time.Time) time.Duration { return 500 * time.Millisecond })
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	handler(rr, req)

	expectedDuration := `# HELP testnamespace_http_request_duration_seconds http request duration in seconds
# TYPE testnamespace_http_request_duration_seconds histogram
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="0.01"} 0
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="0.05"} 0
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="0.1"} 0
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="0.5"} 1
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="1"} 1
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="2"} 1
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="5"} 1
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="10"} 1
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="30"} 1
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="60"} 1
testnamespace_http_request_duration_seconds_bucket{path="",status="200",le="+Inf"} 1
testnamespace_http_request_duration_seconds_sum{path="",status="200"} 0.5
testnamespace_http_request_duration_seconds_count{path="",status="200"} 1
`
	if err := testutil.CollectAndCompare(metrics.HTTPRequestDuration, strings.NewReader(expectedDuration)); err != nil {
		t.Errorf("unexpected metrics for HTTPRequestDuration:\n%s", err)
	}

	expectedSize := `# HELP testnamespace_http_response_size_bytes http response size in bytes
# TYPE testnamespace_http_response_size_bytes histogram
testnamespace_http_response_size_bytes_bucket{path="",status="200",le="256"} 1
testnamespace_http_response_size_bytes_bucket{path="",status="200",le="1024"} 1
testnamespace_http_response_size_bytes_bucket{path="",status="200",le="4096"} 1
testnamespace_http_response_size_bytes_bucket{path="",status="200",le="16384"} 1
testnamespace_http_response_size_bytes_bucket{path="",status="200",le="65536"} 1
testnamespace_http_response_size_bytes_bucket{path="",status="200",le="262144"} 1
testnamespace_http_response_size_bytes_bucket{path="",status="200",le="1.048576e+06"} 1
testnamespace_http_response_size_bytes_bucket{path="",status="200",le="+Inf"} 1
testnamespace_http_response_size_bytes_sum{path="",status="200"} 1
testnamespace_http_response_size_bytes_count{path="",status="200"} 1
`
	if err := testutil.CollectAndCompare(metrics.HTTPResponseSize, strings.NewReader(expectedSize)); err != nil {
		t.Errorf("unexpected metrics for HTTPResponseSize:\n%s", err)
	}
}
