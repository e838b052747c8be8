// Tests for the daemon entrypoint: version resolution, PID file lifecycle,
// pricing source mapping, and view publishing.
package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"sessionlamp/internal/config"
	"sessionlamp/internal/control"
	"sessionlamp/internal/scan"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	old := version
	defer func() { version = old }()

	version = "1.2.3"
	if got := resolveVersion(); got != "1.2.3" {
		t.Errorf("resolveVersion = %q, want 1.2.3", got)
	}
}

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

func TestPidToken(t *testing.T) {
	a := pidToken()
	b := pidToken()
	if len(a) != 16 {
		t.Errorf("token length = %d, want 16", len(a))
	}
	if a == b {
		t.Error("tokens should be unique")
	}
}

func TestWritePID(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	token := pidToken()

	f, err := writePID(dp, token)
	if err != nil {
		t.Fatalf("writePID: %v", err)
	}
	defer removePID(dp, token, f)

	data, err := os.ReadFile(dp.PID())
	if err != nil {
		t.Fatalf("read PID file: %v", err)
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) != 2 {
		t.Fatalf("PID file content = %q, want pid:token", data)
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid != os.Getpid() {
		t.Errorf("pid = %q, want %d", parts[0], os.Getpid())
	}
	if parts[1] != token {
		t.Errorf("token = %q, want %q", parts[1], token)
	}
}

func TestCheckStalePID_LiveInstance(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	token := pidToken()

	f, err := writePID(dp, token)
	if err != nil {
		t.Fatalf("writePID: %v", err)
	}
	defer removePID(dp, token, f)

	alive, pid := checkStalePID(dp)
	if !alive {
		t.Fatal("running instance not detected")
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestCheckStalePID_StaleFileCleaned(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	// A PID file without a living lock holder is stale.
	os.WriteFile(dp.PID(), []byte("12345:deadbeef"), 0o600)

	alive, _ := checkStalePID(dp)
	if alive {
		t.Fatal("stale PID file reported as alive")
	}
	if _, err := os.Stat(dp.PID()); !os.IsNotExist(err) {
		t.Error("stale PID file not removed")
	}
}

func TestCheckStalePID_NoFile(t *testing.T) {
	if alive, _ := checkStalePID(DataPaths{Root: t.TempDir()}); alive {
		t.Error("missing PID file reported as alive")
	}
}

func TestRemovePID_MismatchedTokenKeepsFile(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	os.WriteFile(dp.PID(), []byte("999:othertoken"), 0o600)

	removePID(dp, "mytoken", nil)
	if _, err := os.Stat(dp.PID()); err != nil {
		t.Error("PID file owned by another instance was removed")
	}
}

// ///////////////////////////////////////////////
// Pricing Source
// ///////////////////////////////////////////////

func TestBuildPricingSource(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pricing.Source = "static"
	cfg.Pricing.Models = map[string]config.ModelPricingConfig{
		"claude-opus-4-6": {
			InputPerToken:         0.000005,
			CacheReadPerToken:     0.0000005,
			CacheCreationPerToken: 0.00000625,
		},
	}

	src := buildPricingSource(cfg)
	if src.Source != "static" {
		t.Errorf("Source = %q, want static", src.Source)
	}
	mp, ok := src.Models["claude-opus-4-6"]
	if !ok {
		t.Fatal("model prices not mapped")
	}
	if mp.CacheCreationPerToken != 0.00000625 {
		t.Errorf("CacheCreationPerToken = %v", mp.CacheCreationPerToken)
	}
}

// ///////////////////////////////////////////////
// Publishing
// ///////////////////////////////////////////////

const testLog = `{"type":"user","timestamp":"2026-03-01T10:00:00Z","message":{"content":"hello there"}}
{"type":"assistant","timestamp":"2026-03-01T10:01:00Z","message":{"model":"claude-opus-4-6","usage":{"input_tokens":1500}}}
`

func testBuilder(t *testing.T) *scan.Builder {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "alpha")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "s.jsonl"), []byte(testLog), 0o644); err != nil {
		t.Fatal(err)
	}
	return &scan.Builder{
		Scanner:     &scan.Scanner{Root: root, RecencyWindow: 24 * time.Hour},
		MaxSessions: 10,
	}
}

func TestPass_PublishesSessions(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	cfg := config.DefaultConfig()
	builder := testBuilder(t)

	var ls loopState
	pass(builder, cfg, dp, &ls)

	data, err := os.ReadFile(dp.Sessions())
	if err != nil {
		t.Fatalf("sessions.json not written: %v", err)
	}

	var doc sessionsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("sessions.json not valid JSON: %v", err)
	}
	if len(doc.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(doc.Sessions))
	}
	s := doc.Sessions[0]
	if s.Project != "alpha" || s.DisplayName != "alpha" {
		t.Errorf("identity = (%s, %s), want (alpha, alpha)", s.Project, s.DisplayName)
	}
	if s.TotalTokens != 1500 {
		t.Errorf("TotalTokens = %d, want 1500", s.TotalTokens)
	}
	if s.TokensDisplay != "1.5K" {
		t.Errorf("TokensDisplay = %q, want 1.5K", s.TokensDisplay)
	}
	if s.ModelDisplay != "Opus 4.6" {
		t.Errorf("ModelDisplay = %q, want Opus 4.6", s.ModelDisplay)
	}
}

func TestPass_UnchangedViewSkipsRewrite(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	cfg := config.DefaultConfig()
	builder := testBuilder(t)

	var ls loopState
	pass(builder, cfg, dp, &ls)

	info1, err := os.Stat(dp.Sessions())
	if err != nil {
		t.Fatal(err)
	}

	pass(builder, cfg, dp, &ls)
	info2, err := os.Stat(dp.Sessions())
	if err != nil {
		t.Fatal(err)
	}
	if !info2.ModTime().Equal(info1.ModTime()) {
		t.Error("unchanged view should not rewrite sessions.json")
	}
}

// ///////////////////////////////////////////////
// Control Commands
// ///////////////////////////////////////////////

func TestApplyCommand(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "s.jsonl")
	os.WriteFile(logPath, []byte(testLog), 0o644)
	info, _ := os.Stat(logPath)

	hidden := scan.NewHideSet()
	applyCommand(hidden, control.Command{Op: control.OpHide, Path: logPath})
	if !hidden.Hidden(logPath, info.ModTime()) {
		t.Error("hide command did not hide the session")
	}

	applyCommand(hidden, control.Command{Op: control.OpUnhide, Path: logPath})
	if hidden.Hidden(logPath, info.ModTime()) {
		t.Error("unhide command did not surface the session")
	}
}
