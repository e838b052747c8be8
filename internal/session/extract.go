package session

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ///////////////////////////////////////////////
// Snapshot Type
// ///////////////////////////////////////////////

// clearMarker is the literal Claude Code writes into a user record when the
// /clear command runs. Its presence marks a clear point.
const clearMarker = "<command-name>/clear</command-name>"

// previewMaxRunes bounds the first-message preview length.
const previewMaxRunes = 60

// Snapshot is the derived state of one log file at scan time. It is
// recomputed from scratch on every pass — a clear event anywhere in the file
// shifts the effective start for every downstream field, so incremental
// updates cannot be correct.
type Snapshot struct {
	// SourcePath is the log file this snapshot was derived from. It is the
	// stable key the presentation layer uses across passes.
	SourcePath string
	// LastModified is the file's filesystem modification time.
	LastModified time.Time
	// CreatedAt is the first event timestamp at or after the effective
	// start; zero when no timestamp was seen.
	CreatedAt time.Time
	// WasCleared is true when the session ended exactly on a clear command,
	// with no user turn after it.
	WasCleared bool
	// Model is the last non-empty model identifier in the effective window.
	Model string
	// FirstMessage is a bounded preview of the first real user message in
	// the effective window, or empty.
	FirstMessage string

	// Token counters from the last usage record in the effective window.
	InputTokens         int64
	CacheReadTokens     int64
	CacheCreationTokens int64
	// TotalTokens is always the sum of the three counters above.
	TotalTokens int64
}

// Active reports whether the snapshot represents a live session. A session
// that reports no usage at all is not active and is dropped before grouping.
func (s *Snapshot) Active() bool {
	return s.TotalTokens > 0
}

// ///////////////////////////////////////////////
// Extraction
// ///////////////////////////////////////////////

// Extract folds an ordered event sequence into a Snapshot. It is a pure
// function of (events, path, modTime).
//
// Two passes are inherent to the semantics: the last clear point must be
// located (backward) before the effective start — and therefore every
// derived field — is known (forward).
func Extract(events []Event, path string, modTime time.Time) Snapshot {
	snap := Snapshot{SourcePath: path, LastModified: modTime}

	clearIdx, usersAfter := findLastClear(events)
	snap.WasCleared = clearIdx >= 0 && usersAfter == 0

	// The window starts right after the clear point regardless of trailing
	// activity: content before a clear is never part of the current view.
	start := clearIdx + 1

	acc := foldWindow(events[start:])
	snap.CreatedAt = acc.createdAt
	snap.Model = acc.model
	snap.FirstMessage = acc.firstMessage
	if acc.usage != nil {
		snap.InputTokens = acc.usage.InputTokens
		snap.CacheReadTokens = acc.usage.CacheReadTokens
		snap.CacheCreationTokens = acc.usage.CacheCreationTokens
	}
	snap.TotalTokens = snap.InputTokens + snap.CacheReadTokens + snap.CacheCreationTokens

	return snap
}

// findLastClear scans backward for the most recent clear point. It returns
// the clear point's index (-1 when none) and how many user events were seen
// after it. Scanning stops at the first clear found — only the last one
// matters.
func findLastClear(events []Event) (clearIdx, usersAfter int) {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Kind != KindUser {
			continue
		}
		if strings.Contains(ev.Content, clearMarker) {
			return i, usersAfter
		}
		usersAfter++
	}
	return -1, usersAfter
}

// accumulator carries the forward-pass fold state over the effective window.
type accumulator struct {
	createdAt    time.Time
	firstMessage string
	model        string
	usage        *Usage
}

// foldWindow walks the effective window accumulating the first timestamp,
// the first real user message, and the latest model and usage values.
// Model and usage are last-write-wins: counters are cumulative snapshots,
// so the final observed value is the authoritative total.
func foldWindow(events []Event) accumulator {
	var acc accumulator
	for i := range events {
		ev := &events[i]
		if acc.createdAt.IsZero() && !ev.Timestamp.IsZero() {
			acc.createdAt = ev.Timestamp
		}
		if acc.firstMessage == "" && ev.Kind == KindUser && ev.Content != "" && !isSystemContent(ev.Content) {
			acc.firstMessage = preview(ev.Content)
		}
		if ev.Model != "" {
			acc.model = ev.Model
		}
		if ev.Usage != nil {
			acc.usage = ev.Usage
		}
	}
	return acc
}

// isSystemContent reports whether user content is a command, caveat, or
// other machine-generated body that should never become the preview.
func isSystemContent(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "<command-") ||
		strings.HasPrefix(trimmed, "<local-command-") ||
		strings.HasPrefix(trimmed, "Caveat:") ||
		strings.Contains(trimmed, "<system-reminder>")
}

// preview flattens content to a single line and truncates it to
// previewMaxRunes runes with an ellipsis suffix.
func preview(text string) string {
	flat := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(flat)
	if len(runes) <= previewMaxRunes {
		return flat
	}
	return string(runes[:previewMaxRunes]) + "…"
}

// ///////////////////////////////////////////////
// File Extraction
// ///////////////////////////////////////////////

// ExtractFile reads a log file and extracts its Snapshot. Read failures and
// empty files yield a zero-usage snapshot, which the zero-token rule drops
// downstream — the right outcome for a vanished or unreadable file.
func ExtractFile(path string, modTime time.Time) Snapshot {
	f, err := os.Open(path)
	if err != nil {
		slog.Debug("log file not readable", "path", path, "error", err)
		return Snapshot{SourcePath: path, LastModified: modTime}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var events []Event
	for scanner.Scan() {
		if ev, ok := DecodeLine(scanner.Bytes()); ok {
			events = append(events, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		// A torn tail is expected with concurrent appends; extract what we have.
		slog.Debug("log scan stopped early", "path", path, "error", err)
	}

	return Extract(events, path, modTime)
}
