// Package gcs converts human-facing gcsweb gateway URLs into the canonical
// gs:// paths that storage tooling understands. It is a pure string
// transform; nothing here talks to Google Cloud.
package gcs

import (
	"fmt"
	"strings"
)

// gatewayMarker identifies URLs that go through the CI gcsweb gateway.
const gatewayMarker = "gcsweb-ci"

// FromArtifactsURL rewrites a gcsweb artifacts URL into a gs:// path.
// Everything after the /gcs/ segment names the bucket and object prefix; a
// trailing slash is stripped so the result addresses the prefix itself. URLs
// that do not go through the gateway resolve to an empty string.
func FromArtifactsURL(artifactsURL string) string {
	if !strings.Contains(artifactsURL, gatewayMarker) {
		return ""
	}
	_, rest, found := strings.Cut(artifactsURL, "/gcs/")
	if !found {
		return ""
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" {
		return ""
	}
	return "gs://" + rest
}

// GSUtilCommand renders the gsutil invocation that mirrors a build's
// artifacts into destDir. The command is printed for the operator to run;
// authenticating to GCS is out of scope here.
func GSUtilCommand(gsPath, destDir string) string {
	return fmt.Sprintf("gsutil -m cp -r %s %s/", gsPath, destDir)
}
