// Package jobsource resolves the list of periodic jobs to monitor from the
// prowgen configuration that the CI slack reporter already maintains.
package jobsource

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/yaml"
)

// DefaultConfigURL is the prowgen config document carrying the periodic job
// list under slack_reporter[].job_names.
const DefaultConfigURL = "https://raw.githubusercontent.com/openshift/release/refs/heads/master/ci-operator/config/openshift/microshift/.config.prowgen"

type prowgenConfig struct {
	SlackReporter []slackReporter `json:"slack_reporter,omitempty"`
}

type slackReporter struct {
	ChannelName       string   `json:"channel_name,omitempty"`
	JobStatesToReport []string `json:"job_states_to_report,omitempty"`
	JobNames          []string `json:"job_names,omitempty"`
}

type adapter struct{}

func (a adapter) format(s string, i ...interface{}) string {
	builder := strings.Builder{}
	builder.WriteString(s)
	for _, x := range i {
		builder.WriteString(" ")
		builder.WriteString(fmt.Sprintf("%v", x))
	}
	return builder.String()
}

func (a adapter) Error(s string, i ...interface{}) { logrus.Error(a.format(s, i...)) }
func (a adapter) Info(s string, i ...interface{})  { logrus.Info(a.format(s, i...)) }
func (a adapter) Debug(s string, i ...interface{}) { logrus.Debug(a.format(s, i...)) }
func (a adapter) Warn(s string, i ...interface{})  { logrus.Warn(a.format(s, i...)) }

var _ retryablehttp.LeveledLogger = adapter{}

// JobNames fetches the prowgen config and returns the job short-names the
// slack reporter watches. The whole batch depends on this list, so unlike the
// scraping paths the fetch retries transient errors, and an unreachable or
// empty config is reported as an error for the caller to treat as fatal.
func JobNames(configURL string) ([]string, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 5
	retryClient.Logger = adapter{}
	client := retryClient.StandardClient()

	resp, err := client.Get(configURL)
	if err != nil {
		return nil, fmt.Errorf("could not fetch job config from %s: %w", configURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got unexpected http %d status code from %s", resp.StatusCode, configURL)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read job config: %w", err)
	}
	return parseJobNames(data, configURL)
}

func parseJobNames(data []byte, source string) ([]string, error) {
	var config prowgenConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("could not parse job config from %s: %w", source, err)
	}
	for _, reporter := range config.SlackReporter {
		if len(reporter.JobNames) == 0 {
			continue
		}
		// The config occasionally repeats a job; keep the first occurrence.
		seen := sets.New[string]()
		var jobNames []string
		for _, jobName := range reporter.JobNames {
			if seen.Has(jobName) {
				continue
			}
			seen.Insert(jobName)
			jobNames = append(jobNames, jobName)
		}
		return jobNames, nil
	}
	return nil, fmt.Errorf("no job names found in %s", source)
}
