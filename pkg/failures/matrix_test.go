package failures

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/eslutsky/microshift-misc/pkg/api"
	"github.com/eslutsky/microshift-misc/pkg/jobhistory"
)

func TestFullJobName(t *testing.T) {
	expected := "periodic-ci-openshift-microshift-release-4.21-periodics-e2e-aws-tests"
	if actual := FullJobName("e2e-aws-tests", "4.21"); actual != expected {
		t.Errorf("expected %q, got %q", expected, actual)
	}
}

// newTestBuilder serves a one-failure history for every job except those
// whose short name contains "broken", which get a 500.
func newTestBuilder(t *testing.T) *MatrixBuilder {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `<script>var allBuilds = [{"ID":"1995","Result":"FAILURE","Started":"2025-10-21T10:31:08Z"}];</script>`)
	}))
	t.Cleanup(server.Close)

	cache := jobhistory.NewCache(afero.NewMemMapFs(), "/cache", time.Hour)
	client := jobhistory.NewClient(cache).WithEndpoints(server.URL+"/job-history/", server.URL)
	aggregator := NewAggregator(client)
	aggregator.now = func() time.Time { return time.Date(2025, 10, 21, 12, 0, 0, 0, time.UTC) }
	return NewMatrixBuilder(aggregator).WithMaxConcurrency(2)
}

func TestBuildMatrix(t *testing.T) {
	builder := newTestBuilder(t)
	jobNames := []string{"e2e-aws-tests", "broken-nightly", "e2e-aws-ovn"}
	releases := []string{"4.20", "4.21"}

	matrix := builder.BuildMatrix(jobNames, releases, 12, false)

	if diff := cmp.Diff(jobNames, matrix.JobNames); diff != "" {
		t.Errorf("job names differ from expected: %s", diff)
	}
	if diff := cmp.Diff(releases, matrix.Releases); diff != "" {
		t.Errorf("releases differ from expected: %s", diff)
	}
	expectedStats := api.BatchStats{Processed: 6, Succeeded: 4, Failed: 2}
	if diff := cmp.Diff(expectedStats, matrix.Stats); diff != "" {
		t.Errorf("stats differ from expected: %s", diff)
	}

	// Every cell must be present, failed ones as zero summaries.
	for _, release := range releases {
		for _, jobName := range jobNames {
			cell, ok := matrix.Matrix[release][jobName]
			if !ok {
				t.Fatalf("missing cell for job %s release %s", jobName, release)
			}
			expectedFailures := 1
			if strings.Contains(jobName, "broken") {
				expectedFailures = 0
			}
			if cell.TotalFailures != expectedFailures {
				t.Errorf("job %s release %s: expected %d failures, got %d", jobName, release, expectedFailures, cell.TotalFailures)
			}
		}
	}
}

func TestSummarizeAll(t *testing.T) {
	builder := newTestBuilder(t)
	jobNames := []string{"e2e-aws-tests", "broken-nightly", "e2e-aws-ovn"}

	summaries, stats := builder.SummarizeAll(jobNames, "4.21", 12, false)

	if len(summaries) != len(jobNames) {
		t.Fatalf("expected %d summaries, got %d", len(jobNames), len(summaries))
	}
	// Input order survives the concurrent fan-out.
	for i, jobName := range jobNames {
		if expected := FullJobName(jobName, "4.21"); summaries[i].JobName != expected {
			t.Errorf("summary %d: expected job %q, got %q", i, expected, summaries[i].JobName)
		}
	}
	expectedStats := api.BatchStats{Processed: 3, Succeeded: 2, Failed: 1}
	if diff := cmp.Diff(expectedStats, stats); diff != "" {
		t.Errorf("stats differ from expected: %s", diff)
	}
	if summaries[1].TotalFailures != 0 {
		t.Errorf("expected a zero summary for the failed job, got %d failures", summaries[1].TotalFailures)
	}
}
