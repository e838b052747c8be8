// Package scan discovers candidate session logs, resolves which sessions are
// live per project, and assembles the bounded active-sessions view published
// on each pass.
package scan

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sessionlamp/internal/paths"
	"sessionlamp/internal/session"
)

// ///////////////////////////////////////////////
// Scanner
// ///////////////////////////////////////////////

// Candidate is one log file considered for extraction.
type Candidate struct {
	Path    string
	ModTime time.Time
}

// Scanner enumerates candidate session logs per logical project. Every
// decision here is a static predicate over file metadata — no log content is
// read at this layer.
type Scanner struct {
	// Root is the log root containing one directory per logical project.
	Root string
	// RecencyWindow is the idle timeout: files last modified further back
	// than this from "now" are not candidates.
	RecencyWindow time.Duration
	// ExcludeProject, when non-nil, reports whether an entire project
	// directory is non-interactive agent storage and must be skipped.
	ExcludeProject func(name string) bool
}

// Projects lists the logical project directories under the root, applying
// the exclusion predicate. An unlistable root degrades to no projects for
// this pass; the next pass is the retry.
func (s *Scanner) Projects() []string {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		slog.Debug("log root not listable", "root", s.Root, "error", err)
		return nil
	}

	var projects []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if s.ExcludeProject != nil && s.ExcludeProject(e.Name()) {
			continue
		}
		projects = append(projects, e.Name())
	}
	return projects
}

// Candidates lists the candidate (file, modTime) pairs for one project.
// Filters, in order: session-log naming convention, subagent artifacts,
// recency window. An unlistable project directory yields no candidates.
func (s *Scanner) Candidates(project string, now time.Time) []Candidate {
	dir := filepath.Join(s.Root, project)
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Debug("project directory not listable", "dir", dir, "error", err)
		return nil
	}

	cutoff := now.Add(-s.RecencyWindow)

	var candidates []Candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, paths.LogNameSuffix) {
			continue
		}
		if strings.HasPrefix(name, paths.SubagentPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			continue
		}
		candidates = append(candidates, Candidate{
			Path:    filepath.Join(dir, name),
			ModTime: info.ModTime(),
		})
	}
	return candidates
}

// Snapshots extracts a snapshot from each candidate log of one project,
// dropping sessions that report no usage.
func (s *Scanner) Snapshots(project string, now time.Time) []session.Snapshot {
	var snaps []session.Snapshot
	for _, c := range s.Candidates(project, now) {
		snap := session.ExtractFile(c.Path, c.ModTime)
		if !snap.Active() {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps
}
