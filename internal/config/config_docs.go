package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "scan.max_sessions")
// to their [FieldDoc] entries. The genconfig tool uses this map to annotate
// the generated config.default.toml with inline comments and alternative
// examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version — do not edit.",
	},

	// ── Scan ─────────────────────────────────────────────────────
	"scan.log_root": {
		Comment: "Directory holding per-project session log directories.\nLeave empty to use ~/.claude/projects.",
		Alternatives: []string{
			`log_root = "/home/me/.claude/projects"`,
		},
	},
	"scan.interval_seconds": {
		Comment: "How often to rescan even without file-system events.",
	},
	"scan.idle_timeout_seconds": {
		Comment: "A session log untouched for longer than this is no longer active.",
	},
	"scan.max_sessions": {
		Comment: "Cap on the published view across all projects, most recent first.",
	},
	"scan.exclude_projects": {
		Comment: "Glob patterns matched against project directory names.\nMatching directories are skipped entirely. The default excludes\nnon-interactive agent worktree storage.",
	},

	// ── Display ──────────────────────────────────────────────────
	"display.model_name": {
		Comment: "Model name rendering. Options: \"short\", \"full\", \"raw\"\n  short: \"Opus 4.6\"\n  full:  \"Claude Opus 4.6\"\n  raw:   \"claude-opus-4-6\"  (the model ID as logged)",
		Alternatives: []string{
			`model_name = "full"`,
			`model_name = "raw"`,
		},
	},
	"display.token_format": {
		Comment: "How to format token counts. Options: \"short\", \"full\"\n  short: \"1.2M\"\n  full:  \"1,234,567\"",
		Alternatives: []string{
			`token_format = "full"`,
		},
	},

	// ── Pricing ──────────────────────────────────────────────────
	"pricing.enabled": {
		Comment: "Estimate per-session cost from token counters. Disabled by default;\nenabling fetches the pricing source on startup.",
	},
	"pricing.source": {
		Comment: "Where pricing data comes from. Options: \"url\", \"file\", \"static\"\n  url:    fetch the LiteLLM pricing map (cached on disk for offline use)\n  file:   read a local file in the same format\n  static: use [pricing.models] entries defined below",
		Alternatives: []string{
			`source = "file"`,
			`source = "static"`,
		},
	},
	"pricing.url": {
		Comment: "Custom pricing endpoint. Leave unset for the default LiteLLM URL.",
		Alternatives: []string{
			`url = "https://example.com/prices.json"`,
		},
	},
	"pricing.file": {
		Comment: "Local pricing file path for source = \"file\".",
		Alternatives: []string{
			`file = "/etc/sessionlamp/prices.json"`,
		},
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Lowest log level written to the log file.\nOptions: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate the log file when it exceeds this size.",
	},
}
