// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile          = "daemon.pid"
	ConfigFile       = "config.toml"
	LogFile          = "daemon.log"
	SessionsFile     = "sessions.json"
	PricingCacheFile = "pricing-cache.json"
	ControlSocket    = "control.sock"
)

// BinaryName is the installed binary name, shared with packaging scripts.
const BinaryName = "sessionlamp"

// DataDirRel is the data directory location relative to $HOME.
const DataDirRel = ".sessionlamp"

// ReleaseManifest is the remote-fetched release manifest path (relative to
// the repo root on the main branch).
const ReleaseManifest = ".release-manifest.json"

// LogNameSuffix is the session log naming convention under the log root.
const LogNameSuffix = ".jsonl"

// SubagentPrefix marks background subagent log files that are never
// interactive sessions.
const SubagentPrefix = "agent-"

// ///////////////////////////////////////////////
// Log Root
// ///////////////////////////////////////////////

// DefaultLogRoot returns the Claude Code log root, ~/.claude/projects.
// Falls back to a relative path if the home directory cannot be determined.
func DefaultLogRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".claude", "projects")
	}
	return filepath.Join(home, ".claude", "projects")
}

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Sessions returns the full path to the published sessions file.
func (d DataDir) Sessions() string { return filepath.Join(d.Root, SessionsFile) }

// PricingCache returns the full path to the pricing cache file.
func (d DataDir) PricingCache() string { return filepath.Join(d.Root, PricingCacheFile) }

// Socket returns the full path to the control socket (unix platforms).
func (d DataDir) Socket() string { return filepath.Join(d.Root, ControlSocket) }
