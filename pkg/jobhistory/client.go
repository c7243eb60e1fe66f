package jobhistory

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anaskhan96/soup"
	"github.com/sirupsen/logrus"

	"github.com/eslutsky/microshift-misc/pkg/api"
)

const (
	// DefaultHistoryURL is the per-job build-history page prefix on the Prow
	// instance; the fully-qualified job name is appended to it.
	DefaultHistoryURL = "https://prow.ci.openshift.org/job-history/gs/test-platform-results/logs/"
	// DefaultProwURL is the dashboard origin that spyglass links resolve
	// against.
	DefaultProwURL = "https://prow.ci.openshift.org"

	requestTimeout = 30 * time.Second
)

// Client fetches job histories from the Prow dashboard and resolves spyglass
// pages to their artifact locations. It owns the decision of when to trust
// the cache versus hitting the network.
type Client struct {
	historyURL string
	prowURL    string
	client     *http.Client
	cache      *Cache
	log        *logrus.Entry
}

func NewClient(cache *Cache) *Client {
	return &Client{
		historyURL: DefaultHistoryURL,
		prowURL:    DefaultProwURL,
		client:     &http.Client{Timeout: requestTimeout},
		cache:      cache,
		log:        logrus.WithField("component", "job-history"),
	}
}

// WithEndpoints points the client at a different Prow instance. Tests use it
// to target an httptest server.
func (c *Client) WithEndpoints(historyURL, prowURL string) *Client {
	c.historyURL = historyURL
	c.prowURL = prowURL
	return c
}

// JobHistory returns a job's build history, served from cache when allowed
// and fresh enough, otherwise fetched from the dashboard and, when caching is
// on, written back. Errors are fatal for this one job only; callers iterating
// over many jobs catch and continue.
func (c *Client) JobHistory(jobName string, useCache bool) ([]api.Build, error) {
	if useCache {
		if builds := c.cache.Get(jobName); builds != nil {
			c.log.WithField("job", jobName).Debug("Using cached job history.")
			return builds, nil
		}
	}
	page, err := c.fetchHistoryPage(jobName)
	if err != nil {
		return nil, err
	}
	builds, err := ExtractBuilds(page)
	if err != nil {
		return nil, fmt.Errorf("could not extract builds for %s: %w", jobName, err)
	}
	if useCache {
		if err := c.cache.Put(jobName, builds); err != nil {
			// A failed cache write only costs a refetch next time.
			c.log.WithError(err).WithField("job", jobName).Warn("Could not populate job cache.")
		}
	}
	return builds, nil
}

func (c *Client) fetchHistoryPage(jobName string) (string, error) {
	pageURL := strings.TrimSuffix(c.historyURL, "/") + "/" + jobName
	resp, err := c.client.Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("could not fetch job history for %s: %w", jobName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("got unexpected http %d status code from %s", resp.StatusCode, pageURL)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read job history for %s: %w", jobName, err)
	}
	return string(data), nil
}

// AbsoluteURL resolves a dashboard-relative link against the Prow origin.
func (c *Client) AbsoluteURL(link string) string {
	if link == "" {
		return ""
	}
	base, err := url.Parse(c.prowURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// ResolveArtifactsURL fetches the spyglass page behind a build's detail link
// and extracts where its artifacts are stored. Artifact links are
// supplementary, so every failure here degrades to an empty string instead of
// surfacing an error.
func (c *Client) ResolveArtifactsURL(spyglassLink string) string {
	if spyglassLink == "" {
		return ""
	}
	pageURL := c.AbsoluteURL(spyglassLink)
	resp, err := c.client.Get(pageURL)
	if err != nil {
		c.log.WithError(err).WithField("url", pageURL).Warn("Could not fetch spyglass page.")
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.WithField("url", pageURL).Warnf("Got unexpected http %d status code from spyglass page.", resp.StatusCode)
		return ""
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.WithError(err).WithField("url", pageURL).Warn("Could not read spyglass page.")
		return ""
	}
	return extractArtifactsURL(string(data))
}

// extractArtifactsURL scrapes a spyglass page for the artifacts link: first
// the anchor labeled exactly "Artifacts", then any anchor pointing at the
// gcsweb gateway or mentioning artifacts in its visible text.
func extractArtifactsURL(page string) string {
	doc := soup.HTMLParse(page)
	if doc.Error != nil {
		return ""
	}
	anchors := doc.FindAll("a")
	for _, anchor := range anchors {
		href, text, err := extractAnchor(anchor)
		if err != nil {
			continue
		}
		if text == "Artifacts" && href != "" {
			return href
		}
	}
	for _, anchor := range anchors {
		href, text, err := extractAnchor(anchor)
		if err != nil || href == "" {
			continue
		}
		if strings.Contains(href, "gcsweb-ci") || strings.Contains(text, "Artifacts") {
			return href
		}
	}
	return ""
}

func extractAnchor(anchor soup.Root) (href, text string, err error) {
	if anchor.Error != nil {
		err = anchor.Error
		return
	}
	if link, ok := anchor.Attrs()["href"]; ok {
		href = link
	}
	text = anchor.Text()
	return
}
