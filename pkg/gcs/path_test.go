package gcs

import "testing"

func TestFromArtifactsURL(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "gateway url with trailing slash",
			url:      "https://gcsweb-ci.apps.ci.l2s4.p1.openshiftapps.com/gcs/test-platform-results/logs/some-job/1995/",
			expected: "gs://test-platform-results/logs/some-job/1995",
		},
		{
			name:     "gateway url without trailing slash",
			url:      "https://gcsweb-ci.apps.ci.l2s4.p1.openshiftapps.com/gcs/test-platform-results/logs/some-job/1995",
			expected: "gs://test-platform-results/logs/some-job/1995",
		},
		{
			name:     "non-gateway url",
			url:      "https://storage.googleapis.com/test-platform-results/logs/some-job/1995/",
			expected: "",
		},
		{
			name:     "gateway url without a gcs segment",
			url:      "https://gcsweb-ci.apps.ci.l2s4.p1.openshiftapps.com/browse/",
			expected: "",
		},
		{
			name:     "gateway url with an empty object path",
			url:      "https://gcsweb-ci.apps.ci.l2s4.p1.openshiftapps.com/gcs/",
			expected: "",
		},
		{
			name:     "empty url",
			url:      "",
			expected: "",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if actual := FromArtifactsURL(tc.url); actual != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, actual)
			}
		})
	}
}

func TestGSUtilCommand(t *testing.T) {
	expected := "gsutil -m cp -r gs://test-platform-results/logs/some-job/1995 /tmp/artifacts/"
	if actual := GSUtilCommand("gs://test-platform-results/logs/some-job/1995", "/tmp/artifacts"); actual != expected {
		t.Errorf("expected %q, got %q", expected, actual)
	}
}
