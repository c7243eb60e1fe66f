package pullrequests

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHasIssues(t *testing.T) {
	testCases := []struct {
		name     string
		pr       PullRequest
		expected bool
	}{
		{
			name: "all checks green",
			pr: PullRequest{StatusCheckRollup: []StatusCheck{
				{Context: "ci/prow/e2e-aws-tests", State: "SUCCESS"},
				{Context: "ci/prow/verify", State: "SUCCESS"},
			}},
			expected: false,
		},
		{
			name: "one failed check",
			pr: PullRequest{StatusCheckRollup: []StatusCheck{
				{Context: "ci/prow/e2e-aws-tests", State: "FAILURE"},
				{Context: "ci/prow/verify", State: "SUCCESS"},
			}},
			expected: true,
		},
		{
			name: "one running check",
			pr: PullRequest{StatusCheckRollup: []StatusCheck{
				{Context: "ci/prow/e2e-aws-tests", State: "PENDING"},
			}},
			expected: true,
		},
		{
			name: "check-run entries without a state are ignored",
			pr: PullRequest{StatusCheckRollup: []StatusCheck{
				{Name: "lint", Status: "COMPLETED", Conclusion: "FAILURE"},
			}},
			expected: false,
		},
		{
			name:     "no checks at all",
			pr:       PullRequest{},
			expected: false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if actual := tc.pr.HasIssues(); actual != tc.expected {
				t.Errorf("expected %t, got %t", tc.expected, actual)
			}
		})
	}
}

func TestChecksByState(t *testing.T) {
	pr := PullRequest{StatusCheckRollup: []StatusCheck{
		{Context: "ci/prow/e2e-aws-tests", State: "FAILURE", TargetURL: "https://prow.ci.openshift.org/view/gs/bucket/1"},
		{Context: "ci/prow/verify", State: "SUCCESS"},
		{Context: "ci/prow/images", State: "PENDING"},
		{Context: "ci/prow/unit", State: "FAILURE"},
	}}

	expectedFailed := []StatusCheck{
		{Context: "ci/prow/e2e-aws-tests", State: "FAILURE", TargetURL: "https://prow.ci.openshift.org/view/gs/bucket/1"},
		{Context: "ci/prow/unit", State: "FAILURE"},
	}
	if diff := cmp.Diff(expectedFailed, pr.FailedChecks()); diff != "" {
		t.Errorf("failed checks differ from expected: %s", diff)
	}

	expectedRunning := []StatusCheck{{Context: "ci/prow/images", State: "PENDING"}}
	if diff := cmp.Diff(expectedRunning, pr.RunningChecks()); diff != "" {
		t.Errorf("running checks differ from expected: %s", diff)
	}
}

func TestWithIssues(t *testing.T) {
	prs := []PullRequest{
		{Number: 1, StatusCheckRollup: []StatusCheck{{State: "SUCCESS"}}},
		{Number: 2, StatusCheckRollup: []StatusCheck{{State: "FAILURE"}}},
		{Number: 3},
		{Number: 4, StatusCheckRollup: []StatusCheck{{State: "PENDING"}}},
	}
	flagged := WithIssues(prs)
	var numbers []int
	for _, pr := range flagged {
		numbers = append(numbers, pr.Number)
	}
	if diff := cmp.Diff([]int{2, 4}, numbers); diff != "" {
		t.Errorf("flagged PRs differ from expected: %s", diff)
	}
}
