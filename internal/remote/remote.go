// Package remote resolves the project's GitHub raw content URLs.
//
// Owner and repo are resolved lazily on first use. Release builds inject them
// via ldflags; development builds fall back to parsing the local git remote
// origin.
package remote

import (
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"sync"
	"time"
)

// Set at build time via:
//
//	-X sessionlamp/internal/remote.ldOwner=...
//	-X sessionlamp/internal/remote.ldRepo=...
var (
	ldOwner string
	ldRepo  string
)

var (
	resolveOnce sync.Once
	owner       string
	repo        string
)

// githubRemoteRe extracts owner and repo from both HTTPS (github.com/) and
// SSH (github.com:) remote URL forms.
var githubRemoteRe = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.]+)`)

// resolve fills owner and repo on first call. ldflags win; otherwise the
// values come from the local git remote origin, if any.
func resolve() {
	resolveOnce.Do(func() {
		if ldOwner != "" && ldRepo != "" {
			owner, repo = ldOwner, ldRepo
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		out, err := exec.CommandContext(ctx, "git", "remote", "get-url", "origin").Output()
		if err != nil {
			slog.Debug("remote: ldflags not set and git remote unavailable", "error", err)
			return
		}
		if m := githubRemoteRe.FindStringSubmatch(string(out)); len(m) == 3 {
			owner, repo = m[1], m[2]
		}
	})
}

// RawURL returns the raw GitHub URL for a file on the main branch, or the
// empty string when owner and repo could not be resolved.
func RawURL(path string) string {
	resolve()
	if owner == "" || repo == "" {
		return ""
	}
	return "https://raw.githubusercontent.com/" + owner + "/" + repo + "/main/" + path
}
