package scan

import (
	"log/slog"
	"sort"
	"time"
)

// ///////////////////////////////////////////////
// Hide Set
// ///////////////////////////////////////////////

// HideSet tracks sessions the user has hidden, keyed by log file path with
// the LastModified observed at hide time. A hidden session reappears once
// its modification time advances past the recorded value. The set is read
// and mutated only on the daemon's event-loop timeline, so it needs no lock.
type HideSet struct {
	hiddenAt map[string]time.Time
}

// NewHideSet returns an empty hide set.
func NewHideSet() *HideSet {
	return &HideSet{hiddenAt: make(map[string]time.Time)}
}

// Hide records path as hidden as of modTime.
func (h *HideSet) Hide(path string, modTime time.Time) {
	h.hiddenAt[path] = modTime
}

// Unhide removes path from the set.
func (h *HideSet) Unhide(path string) {
	delete(h.hiddenAt, path)
}

// Hidden reports whether path is still hidden given its current modTime.
// New activity since hide time unhides the session as a side effect.
func (h *HideSet) Hidden(path string, modTime time.Time) bool {
	at, ok := h.hiddenAt[path]
	if !ok {
		return false
	}
	if modTime.After(at) {
		delete(h.hiddenAt, path)
		return false
	}
	return true
}

// Len returns the number of hidden entries.
func (h *HideSet) Len() int { return len(h.hiddenAt) }

// ///////////////////////////////////////////////
// Session Set Builder
// ///////////////////////////////////////////////

// CostFn estimates USD cost from a model identifier and token counters.
// A nil CostFn disables cost estimation.
type CostFn func(model string, input, cacheRead, cacheCreation int64) float64

// ActiveSession is one entry of the published view.
type ActiveSession struct {
	Project      string    `json:"project"`
	DisplayName  string    `json:"displayName"`
	Ordinal      int       `json:"ordinal"`
	SourcePath   string    `json:"sourcePath"`
	Model        string    `json:"model,omitempty"`
	FirstMessage string    `json:"firstMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`

	InputTokens         int64 `json:"inputTokens"`
	CacheReadTokens     int64 `json:"cacheReadTokens"`
	CacheCreationTokens int64 `json:"cacheCreationTokens"`
	TotalTokens         int64 `json:"totalTokens"`

	EstimatedCost float64 `json:"estimatedCost,omitempty"`
}

// Builder orchestrates one full pass: scan every project, resolve each
// project's group, merge, rank globally, and truncate to the display cap.
type Builder struct {
	// Scanner supplies candidate logs per project.
	Scanner *Scanner
	// MaxSessions bounds the published view across all projects.
	MaxSessions int
	// Hidden is the user's hide set; nil means nothing is hidden.
	Hidden *HideSet
	// Cost estimates per-session cost; nil disables estimation.
	Cost CostFn
}

// Run executes one pass and returns the ranked, de-duplicated view.
// A pass has no partial results: any unexpected failure degrades the whole
// pass to an empty set rather than propagating.
func (b *Builder) Run(now time.Time) (result []ActiveSession) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scan pass failed", "panic", r)
			result = nil
		}
	}()

	for _, project := range b.Scanner.Projects() {
		snaps := b.Scanner.Snapshots(project, now)

		if b.Hidden != nil {
			kept := snaps[:0]
			for _, snap := range snaps {
				if !b.Hidden.Hidden(snap.SourcePath, snap.LastModified) {
					kept = append(kept, snap)
				}
			}
			snaps = kept
		}

		for _, r := range Resolve(project, snaps) {
			result = append(result, b.toActive(r))
		}
	}

	// Global rank: most recently touched first, bounded display set.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastModified.After(result[j].LastModified)
	})
	if b.MaxSessions > 0 && len(result) > b.MaxSessions {
		result = result[:b.MaxSessions]
	}
	return result
}

// toActive converts a resolved snapshot into a published view entry.
func (b *Builder) toActive(r Resolved) ActiveSession {
	a := ActiveSession{
		Project:             r.Project,
		DisplayName:         r.DisplayName,
		Ordinal:             r.Ordinal,
		SourcePath:          r.SourcePath,
		Model:               r.Model,
		FirstMessage:        r.FirstMessage,
		CreatedAt:           r.CreatedAt,
		LastModified:        r.LastModified,
		InputTokens:         r.InputTokens,
		CacheReadTokens:     r.CacheReadTokens,
		CacheCreationTokens: r.CacheCreationTokens,
		TotalTokens:         r.TotalTokens,
	}
	if b.Cost != nil && r.Model != "" {
		a.EstimatedCost = b.Cost(r.Model, r.InputTokens, r.CacheReadTokens, r.CacheCreationTokens)
	}
	return a
}
