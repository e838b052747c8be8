// Tests for log discovery in the scan package.
// Covers [Scanner.Projects], [Scanner.Candidates], and [Scanner.Snapshots].
package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ///////////////////////////////////////////////
// Fixtures
// ///////////////////////////////////////////////

// writeLog creates a log file under root/project with the given content and
// mtime.
func writeLog(t *testing.T, root, project, name, content string, mtime time.Time) string {
	t.Helper()
	dir := filepath.Join(root, project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

const activeLog = `{"type":"user","timestamp":"2026-03-01T10:00:00Z","message":{"content":"hello"}}
{"type":"assistant","timestamp":"2026-03-01T10:01:00Z","message":{"model":"claude-opus-4-6","usage":{"input_tokens":100}}}
`

// ///////////////////////////////////////////////
// Projects Tests
// ///////////////////////////////////////////////

func TestScannerProjects(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeLog(t, root, "alpha", "a.jsonl", activeLog, now)
	writeLog(t, root, "my-vibe-kanban-worktrees", "b.jsonl", activeLog, now)
	os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644)

	s := &Scanner{
		Root:          root,
		RecencyWindow: time.Hour,
		ExcludeProject: func(name string) bool {
			return strings.Contains(name, "vibe-kanban")
		},
	}

	projects := s.Projects()
	if len(projects) != 1 || projects[0] != "alpha" {
		t.Errorf("Projects = %v, want [alpha]", projects)
	}
}

func TestScannerProjects_MissingRoot(t *testing.T) {
	s := &Scanner{Root: filepath.Join(t.TempDir(), "nope"), RecencyWindow: time.Hour}
	if got := s.Projects(); got != nil {
		t.Errorf("Projects = %v, want nil for missing root", got)
	}
}

// ///////////////////////////////////////////////
// Candidates Tests
// ///////////////////////////////////////////////

func TestScannerCandidates(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	recent := writeLog(t, root, "alpha", "recent.jsonl", activeLog, now.Add(-time.Minute))
	writeLog(t, root, "alpha", "stale.jsonl", activeLog, now.Add(-2*time.Hour))
	writeLog(t, root, "alpha", "agent-background.jsonl", activeLog, now)
	writeLog(t, root, "alpha", "notes.txt", "not a log", now)

	s := &Scanner{Root: root, RecencyWindow: time.Hour}
	candidates := s.Candidates("alpha", now)

	if len(candidates) != 1 {
		t.Fatalf("Candidates = %d entries, want 1", len(candidates))
	}
	if candidates[0].Path != recent {
		t.Errorf("Path = %q, want %q", candidates[0].Path, recent)
	}
}

// ///////////////////////////////////////////////
// Snapshots Tests
// ///////////////////////////////////////////////

func TestScannerSnapshots_DropsZeroTokenLogs(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	writeLog(t, root, "alpha", "active.jsonl", activeLog, now)
	// Opened but never produced usage counters.
	writeLog(t, root, "alpha", "empty.jsonl",
		`{"type":"user","timestamp":"2026-03-01T10:00:00Z","message":{"content":"hi"}}`+"\n", now)

	s := &Scanner{Root: root, RecencyWindow: time.Hour}
	snaps := s.Snapshots("alpha", now)

	if len(snaps) != 1 {
		t.Fatalf("Snapshots = %d entries, want 1", len(snaps))
	}
	if !strings.HasSuffix(snaps[0].SourcePath, "active.jsonl") {
		t.Errorf("SourcePath = %q, want active.jsonl", snaps[0].SourcePath)
	}
	if snaps[0].TotalTokens != 100 {
		t.Errorf("TotalTokens = %d, want 100", snaps[0].TotalTokens)
	}
}
