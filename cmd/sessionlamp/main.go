// Package main implements the sessionlamp daemon, which watches Claude Code
// conversation logs and publishes a de-duplicated active sessions view to
// sessions.json in the data directory.
package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	rootpkg "sessionlamp"
	"sessionlamp/internal/atomicfile"
	"sessionlamp/internal/config"
	"sessionlamp/internal/control"
	"sessionlamp/internal/logger"
	"sessionlamp/internal/paths"
	"sessionlamp/internal/pricing"
	"sessionlamp/internal/scan"
	"sessionlamp/internal/update"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is injected at release time via -X main.version. Left at "dev",
// resolveVersion derives a tag from the VCS metadata the Go toolchain embeds.
var version = "dev"

// resolveVersion prefers the ldflags-injected version; for plain go build it
// falls back to "dev+<hash>" built from the embedded VCS revision, so dev
// builds carry a useful version without git at runtime.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	vcs := map[string]string{}
	for _, s := range info.Settings {
		vcs[s.Key] = s.Value
	}
	rev := vcs["vcs.revision"]
	if rev == "" {
		return version
	}
	v := "dev+" + rev[:min(7, len(rev))]
	if vcs["vcs.modified"] == "true" {
		v += ".dirty"
	}
	return v
}

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

// The PID file holds "PID:TOKEN". The token proves which instance wrote the
// file; removePID deletes it only on a token match so a newer instance's
// file is never clobbered by a shutting-down predecessor.

func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// writePID opens the PID file, takes the advisory lock, and records this
// process. The returned handle must stay open for the daemon's lifetime to
// hold the lock; hand it to [removePID] on shutdown.
func writePID(dp DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(dp.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	fail := func(step string, err error) (*os.File, error) {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("%s PID file: %w", step, err)
	}
	if err := f.Truncate(0); err != nil {
		return fail("truncate", err)
	}
	if _, err := fmt.Fprintf(f, "%d:%s", os.Getpid(), token); err != nil {
		return fail("write", err)
	}
	return f, nil
}

// removePID drops the lock, closes the handle, and removes the PID file when
// the stored token matches this instance.
func removePID(dp DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(dp.PID())
	if err != nil {
		return
	}
	if _, tok, ok := strings.Cut(string(data), ":"); ok && tok == token {
		os.Remove(dp.PID())
	}
}

// checkStalePID probes the PID file lock. A failed lock means another
// instance is alive; a successful lock means the previous instance died
// without cleanup, so the stale file is removed.
func checkStalePID(dp DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(dp.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(dp.PID())
		f.Close()
		pidPart, _, _ := strings.Cut(string(data), ":")
		if p, convErr := strconv.Atoi(pidPart); convErr == nil {
			return true, p
		}
		return true, 0
	}

	_ = unlockFile(f)
	f.Close()
	os.Remove(dp.PID())
	return false, 0
}

// ///////////////////////////////////////////////
// Config Builders
// ///////////////////////////////////////////////

// buildPricingSource creates a [pricing.SourceConfig] from the loaded
// [config.Config], including any user-defined per-model static prices.
func buildPricingSource(cfg *config.Config) pricing.SourceConfig {
	src := pricing.SourceConfig{
		Source: cfg.Pricing.Source,
		URL:    cfg.Pricing.URL,
		File:   cfg.Pricing.File,
	}
	if len(cfg.Pricing.Models) > 0 {
		src.Models = make(map[string]pricing.ModelPricing, len(cfg.Pricing.Models))
		for k, v := range cfg.Pricing.Models {
			src.Models[k] = pricing.ModelPricing{
				InputPerToken:         v.InputPerToken,
				CacheReadPerToken:     v.CacheReadPerToken,
				CacheCreationPerToken: v.CacheCreationPerToken,
			}
		}
	}
	return src
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns the platform default directory for sessionlamp data,
// typically ~/.sessionlamp. Falls back to ./.sessionlamp if the home directory
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory for config, sessions view, and logs")
	hidePath := flag.String("hide", "", "Hide the session with this source log path in a running daemon, then exit")
	unhidePath := flag.String("unhide", "", "Unhide the session with this source log path in a running daemon, then exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(resolveVersion())
		return
	}

	dp := DataPaths{Root: *dataDir}

	// Client mode: forward a hide/unhide command to the running daemon.
	if *hidePath != "" || *unhidePath != "" {
		if err := sendControl(dp, *hidePath, *unhidePath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := os.MkdirAll(dp.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		os.Exit(1)
	}

	if alive, pid := checkStalePID(dp); alive {
		fmt.Fprintf(os.Stderr, "daemon already running (pid %d)\n", pid)
		os.Exit(1)
	}

	if _, err := os.Stat(dp.Config()); os.IsNotExist(err) {
		if writeErr := os.WriteFile(dp.Config(), rootpkg.DefaultConfigTOML, 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", writeErr)
		}
	}

	cfg, err := config.Load(dp.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := logger.ParseLevel(cfg.Log.Level)
	log, logCloser, err := logger.NewLogger(dp.Log(), logLevel, cfg.Log.MaxSizeMB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	slog.Info("sessionlamp starting", "version", ver, "data_dir", dp.Root, "log_root", cfg.ResolvedLogRoot())

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("update check panic", "error", r)
			}
		}()
		latest, checkErr := update.Check(ver)
		if checkErr != nil {
			slog.Debug("version check failed", "error", checkErr)
			return
		}
		if latest != "" {
			slog.Info("new version available", "current", ver, "latest", latest)
		}
	}()

	token := pidToken()
	pidFile, err := writePID(dp, token)
	if err != nil {
		slog.Error("failed to write PID file", "error", err)
		os.Exit(1)
	}
	defer removePID(dp, token, pidFile)

	var cost scan.CostFn
	if cfg.Pricing.Enabled {
		pricingData, pricingErr := pricing.Fetch(buildPricingSource(cfg), dp.Root)
		if pricingErr != nil && pricingData != nil {
			slog.Warn("pricing fetch used fallback", "error", pricingErr)
		}
		if pricingData == nil {
			slog.Warn("no pricing data available, costs disabled", "error", pricingErr)
		} else {
			cost = pricingData.Estimate
		}
	}

	builder := &scan.Builder{
		Scanner: &scan.Scanner{
			Root:           cfg.ResolvedLogRoot(),
			RecencyWindow:  time.Duration(cfg.Scan.IdleTimeoutSeconds) * time.Second,
			ExcludeProject: cfg.IsExcludedProject,
		},
		MaxSessions: cfg.Scan.MaxSessions,
		Hidden:      scan.NewHideSet(),
		Cost:        cost,
	}

	watcher, err := scan.NewWatcher(cfg.ResolvedLogRoot())
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	defer watcher.Close()

	if watcher.Polling() {
		slog.Info("using polling mode for file watching")
	}

	ctl, err := control.NewServer(dp.Socket())
	if err != nil {
		slog.Error("failed to start control endpoint", "error", err)
		os.Exit(1)
	}
	defer ctl.Close()

	run(builder, watcher, ctl, cfg, dp)
}

// sendControl issues one hide or unhide command to the running daemon's
// control endpoint.
func sendControl(dp DataPaths, hidePath, unhidePath string) error {
	if hidePath != "" && unhidePath != "" {
		return fmt.Errorf("-hide and -unhide are mutually exclusive")
	}
	if hidePath != "" {
		return control.Send(dp.Socket(), control.OpHide, hidePath)
	}
	return control.Send(dp.Socket(), control.OpUnhide, unhidePath)
}

// ///////////////////////////////////////////////
// Event Loop
// ///////////////////////////////////////////////

// loopState holds mutable state carried across iterations of the main event loop.
type loopState struct {
	// lastHash caches the hash of the last published view so unchanged passes
	// skip the sessions.json rewrite.
	lastHash string
}

// run is the main event loop. It serializes every source of change -- watcher
// events, the periodic ticker, and control commands -- onto one goroutine, so
// hide-set mutations never race a scan pass. The loop runs until an OS
// interrupt/terminate signal is received.
func run(
	builder *scan.Builder,
	watcher *scan.Watcher,
	ctl *control.Server,
	cfg *config.Config,
	dp DataPaths,
) {
	ticker := time.NewTicker(time.Duration(cfg.Scan.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	sigCh := signalChannel()

	var ls loopState
	pass(builder, cfg, dp, &ls)

	for {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal")
			return

		case <-watcher.Events():
			pass(builder, cfg, dp, &ls)

		case <-ticker.C:
			pass(builder, cfg, dp, &ls)

		case cmd := <-ctl.Commands():
			applyCommand(builder.Hidden, cmd)
			pass(builder, cfg, dp, &ls)
		}
	}
}

// applyCommand mutates the hide set for one control command. Hide records the
// log's current modification time so a later write to the same log surfaces
// the session again.
func applyCommand(hidden *scan.HideSet, cmd control.Command) {
	switch cmd.Op {
	case control.OpHide:
		modTime := time.Now()
		if info, err := os.Stat(cmd.Path); err == nil {
			modTime = info.ModTime()
		}
		hidden.Hide(cmd.Path, modTime)
		slog.Info("session hidden", "path", cmd.Path)
	case control.OpUnhide:
		hidden.Unhide(cmd.Path)
		slog.Info("session unhidden", "path", cmd.Path)
	}
}

// ///////////////////////////////////////////////
// Publishing
// ///////////////////////////////////////////////

// sessionsDocument is the on-disk shape of sessions.json.
type sessionsDocument struct {
	UpdatedAt time.Time   `json:"updatedAt"`
	Sessions  []viewEntry `json:"sessions"`
}

// viewEntry is one published session plus display-formatted strings derived
// from the display config.
type viewEntry struct {
	scan.ActiveSession
	ModelDisplay  string `json:"modelDisplay,omitempty"`
	TokensDisplay string `json:"tokensDisplay"`
}

// pass runs one full scan pass and atomically rewrites sessions.json when the
// view changed. The UpdatedAt field is excluded from change detection so an
// unchanged view never touches the file.
func pass(builder *scan.Builder, cfg *config.Config, dp DataPaths, ls *loopState) {
	sessions := builder.Run(time.Now())

	entries := make([]viewEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, viewEntry{
			ActiveSession: s,
			ModelDisplay:  config.FormatModelName(s.Model, cfg.Display.ModelName),
			TokensDisplay: config.FormatTokens(s.TotalTokens, cfg.Display.TokenFormat),
		})
	}

	body, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		slog.Error("failed to marshal sessions view", "error", err)
		return
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	if hash == ls.lastHash {
		return
	}

	doc, err := json.MarshalIndent(sessionsDocument{
		UpdatedAt: time.Now().UTC(),
		Sessions:  entries,
	}, "", "  ")
	if err != nil {
		slog.Error("failed to marshal sessions document", "error", err)
		return
	}

	if err := atomicfile.Write(dp.Sessions(), doc, 0o644); err != nil {
		slog.Error("failed to write sessions view", "error", err)
		return
	}
	ls.lastHash = hash
	slog.Debug("sessions view published", "sessions", len(entries))
}
