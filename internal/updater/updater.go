// Package updater checks GitHub for a newer specsync release. It only
// reports; installing the new binary is left to the user's package
// manager.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/specsync/internal/logging"
)

const (
	githubRepo = "HendryAvila/specsync"

	// ReleaseURL is the GitHub API endpoint for the latest release.
	ReleaseURL = "https://api.github.com/repos/" + githubRepo + "/releases/latest"

	checkTimeout = 10 * time.Second
)

// Release holds the fields read from the GitHub release payload.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Result is the outcome of a version check.
type Result struct {
	Current         string `json:"current"`
	Latest          string `json:"latest,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url,omitempty"`
}

// Checker queries a release endpoint.
type Checker struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewChecker returns a Checker for the public GitHub endpoint.
func NewChecker(logger *zap.Logger) *Checker {
	return &Checker{
		endpoint: ReleaseURL,
		client:   &http.Client{Timeout: checkTimeout},
		logger:   logging.OrNop(logger),
	}
}

// Check fetches the latest release and compares it with current.
func (c *Checker) Check(ctx context.Context, current string) (*Result, error) {
	res := &Result{Current: normalizeVersion(current)}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return res, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "specsync/"+res.Current)

	resp, err := c.client.Do(req)
	if err != nil {
		return res, fmt.Errorf("checking latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("release endpoint returned %d", resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return res, fmt.Errorf("parsing release info: %w", err)
	}

	res.Latest = normalizeVersion(rel.TagName)
	res.ReleaseURL = rel.HTMLURL
	res.UpdateAvailable = IsNewer(res.Current, res.Latest)
	c.logger.Debug("version check",
		zap.String("current", res.Current),
		zap.String("latest", res.Latest),
		zap.Bool("update_available", res.UpdateAvailable))
	return res, nil
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// IsNewer reports whether latest is a higher major.minor.patch than
// current. Development builds never report updates.
func IsNewer(current, latest string) bool {
	current, latest = normalizeVersion(current), normalizeVersion(latest)
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	cur, lat := semverParts(current), semverParts(latest)
	for i := range cur {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

// semverParts parses the leading digits of up to three dot-separated
// fields. Missing fields are zero; "1.4.0-rc1" reads as 1.4.0.
func semverParts(v string) [3]int {
	var out [3]int
	for i, field := range strings.SplitN(v, ".", 3) {
		n := 0
		for _, ch := range field {
			if ch < '0' || ch > '9' {
				break
			}
			n = n*10 + int(ch-'0')
		}
		out[i] = n
	}
	return out
}
