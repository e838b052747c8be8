// Package update checks the remote release manifest for newer versions.
package update

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"sessionlamp/internal/paths"
	"sessionlamp/internal/remote"
)

var (
	manifestURL     string
	manifestURLOnce sync.Once

	clientOnce sync.Once
	client     *retryablehttp.Client
)

func getManifestURL() string {
	manifestURLOnce.Do(func() { manifestURL = remote.RawURL(paths.ReleaseManifest) })
	return manifestURL
}

func manifestClient() *retryablehttp.Client {
	clientOnce.Do(func() {
		client = retryablehttp.NewClient()
		client.RetryMax = 1
		client.HTTPClient.Timeout = 5 * time.Second
		client.Logger = nil
	})
	return client
}

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Check fetches the remote release manifest and returns the latest version
// when it is newer than current, or the empty string otherwise. Failures are
// reported as errors and never fatal.
func Check(current string) (string, error) {
	if getManifestURL() == "" {
		return "", fmt.Errorf("no remote URL configured")
	}
	latest, err := fetchLatest()
	if err != nil {
		return "", err
	}
	if latest == "" || latest == current || !semverLess(current, latest) {
		return "", nil
	}
	return latest, nil
}

// ///////////////////////////////////////////////
// Internal helpers
// ///////////////////////////////////////////////

// fetchLatest downloads the release manifest and returns the version stored
// under the "." key, which represents the latest stable release.
func fetchLatest() (string, error) {
	url := getManifestURL()
	resp, err := manifestClient().Get(url)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	var manifest map[string]string
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&manifest); err != nil {
		return "", fmt.Errorf("decode manifest: %w", err)
	}
	return manifest["."], nil
}

// semverLess returns true if a < b. Versions that do not parse as semver are
// never ordered. At equal numerics a pre-release version sorts below the
// release ("0.1.0-dev" < "0.1.0").
func semverLess(a, b string) bool {
	va, vb := parseSemver(a), parseSemver(b)
	if va == nil || vb == nil {
		return false
	}
	for i := 0; i < 3; i++ {
		if va[i] != vb[i] {
			return va[i] < vb[i]
		}
	}
	return hasPreRelease(a) && !hasPreRelease(b)
}

// hasPreRelease reports whether a version string carries a pre-release suffix
// (e.g., "0.1.0-dev" or "v1.0.0-beta+build").
func hasPreRelease(s string) bool {
	return strings.ContainsAny(strings.TrimPrefix(s, "v"), "-")
}

// parseSemver splits a version string like "v1.2.3" or "0.1.0-dev" into
// [major, minor, patch], dropping any suffix after "-" or "+". Returns nil if
// the string is not valid semver.
func parseSemver(s string) []int {
	fields := strings.SplitN(strings.TrimPrefix(s, "v"), ".", 3)
	if len(fields) != 3 {
		return nil
	}
	out := make([]int, 3)
	for i, f := range fields {
		if j := strings.IndexAny(f, "-+"); j >= 0 {
			f = f[:j]
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil
		}
		out[i] = n
	}
	return out
}
