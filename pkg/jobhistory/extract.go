package jobhistory

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/eslutsky/microshift-misc/pkg/api"
)

// The job-history page embeds its build list as a single JSON array literal
// assigned to a well-known variable inside a script block. The assignment sits
// on one line, so a line-oriented match is enough; the data is not nested in
// markup and a full HTML parse buys nothing here.
var allBuildsPattern = regexp.MustCompile(`var allBuilds = (.+);`)

// ExtractBuilds pulls the allBuilds array out of a job-history page. A page
// without the assignment, or with an array that does not decode, is an error:
// silently returning an empty history would hide dashboard changes from the
// operator.
func ExtractBuilds(page string) ([]api.Build, error) {
	match := allBuildsPattern.FindStringSubmatch(page)
	if match == nil {
		return nil, fmt.Errorf("page does not contain an allBuilds assignment")
	}
	var builds []api.Build
	if err := json.Unmarshal([]byte(match[1]), &builds); err != nil {
		return nil, fmt.Errorf("could not decode allBuilds JSON: %w", err)
	}
	return builds, nil
}
