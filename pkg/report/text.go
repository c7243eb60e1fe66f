// Package report renders failure summaries and release matrices for the
// terminal, as standalone HTML, and as JSON documents for other consumers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eslutsky/microshift-misc/pkg/api"
	"github.com/eslutsky/microshift-misc/pkg/gcs"
)

// Hyperlink renders an OSC-8 terminal hyperlink with custom display text.
// When hyperlinks are disabled the URL is appended in parentheses instead.
func Hyperlink(url, text string, useHyperlinks bool) string {
	if url == "" {
		return text
	}
	if !useHyperlinks {
		return fmt.Sprintf("%s (%s)", text, url)
	}
	return fmt.Sprintf("\033]8;;%s\033\\%s\033]8;;\033\\", url, text)
}

// WriteSummaries renders per-job failure counts as a terminal table, most
// recent failure first where one exists.
func WriteSummaries(w io.Writer, summaries []api.FailureSummary, hoursBack int, useHyperlinks bool) {
	fmt.Fprintf(w, "Failure counts over the last %dh:\n\n", hoursBack)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tFAILURES\tLATEST")
	total := 0
	for _, summary := range summaries {
		total += summary.TotalFailures
		latest := "-"
		if summary.LatestFailure != nil {
			label := fmt.Sprintf("build %s (%s)", summary.LatestFailure.ID, summary.LatestFailure.Started)
			latest = Hyperlink(summary.LatestFailure.DetailLink, label, useHyperlinks)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", summary.JobName, summary.TotalFailures, latest)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d total failures across %d jobs\n", total, len(summaries))
}

// WriteLatestFailure renders one enriched failure in detail, including the
// gsutil command to mirror its artifacts when the location resolved.
func WriteLatestFailure(w io.Writer, failure *api.LatestFailure, useHyperlinks bool) {
	if failure == nil {
		fmt.Fprintln(w, "No failures in the time window.")
		return
	}
	fmt.Fprintf(w, "Build:    %s\n", failure.ID)
	fmt.Fprintf(w, "Job:      %s\n", failure.JobName)
	fmt.Fprintf(w, "Started:  %s\n", failure.Started)
	fmt.Fprintf(w, "Duration: %s\n", failure.Duration)
	if failure.DetailLink != "" {
		fmt.Fprintf(w, "Spyglass: %s\n", Hyperlink(failure.DetailLink, failure.DetailLink, useHyperlinks))
	}
	if failure.ArtifactsURL != "" {
		fmt.Fprintf(w, "Artifacts: %s\n", failure.ArtifactsURL)
		if gsPath := gcs.FromArtifactsURL(failure.ArtifactsURL); gsPath != "" {
			fmt.Fprintf(w, "Download:  %s\n", gcs.GSUtilCommand(gsPath, "artifacts/job_"+failure.ID))
		}
	}
	if len(failure.RelatedPullRequests) > 0 {
		prs := make([]string, 0, len(failure.RelatedPullRequests))
		for _, number := range failure.RelatedPullRequests {
			prs = append(prs, fmt.Sprintf("#%d", number))
		}
		fmt.Fprintf(w, "PRs:      %s\n", strings.Join(prs, ", "))
	}
}

// WriteMatrix renders the job x release table with one failure count per
// cell.
func WriteMatrix(w io.Writer, matrix api.ReleaseMatrix, hoursBack int) {
	fmt.Fprintf(w, "Failure matrix over the last %dh:\n\n", hoursBack)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := append([]string{"JOB"}, matrix.Releases...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, jobName := range matrix.JobNames {
		row := []string{jobName}
		for _, release := range matrix.Releases {
			row = append(row, fmt.Sprintf("%d", matrix.Matrix[release][jobName].TotalFailures))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(w, "\nprocessed=%d succeeded=%d failed=%d\n",
		matrix.Stats.Processed, matrix.Stats.Succeeded, matrix.Stats.Failed)
}

// WriteJSON emits any report payload as an indented JSON document. Field
// names on the payload types are the contract with external consumers.
func WriteJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
