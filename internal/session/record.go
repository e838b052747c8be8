// Package session turns Claude Code JSONL conversation logs into per-file
// session snapshots.
//
// The package has two layers:
//
//   - Record decoding: [DecodeLine] parses one raw log line into a typed
//     [Event]. Decoding never fails loudly; a corrupt or partially-written
//     line simply yields no event, because logs are appended to concurrently
//     by another process.
//   - Extraction: [Extract] folds one file's ordered event sequence into a
//     [Snapshot] of token usage, model, first message, creation time, and
//     the cleared flag.
package session

import (
	"encoding/json"
	"strings"
	"time"
)

// ///////////////////////////////////////////////
// Event Types
// ///////////////////////////////////////////////

// Event kinds. Records whose type discriminator is anything else (summary
// lines, file-history snapshots, hook output) decode as KindOther.
const (
	KindUser      = "user"
	KindAssistant = "assistant"
	KindOther     = "other"
)

// Usage holds the token counters carried by a record. Counts in this log
// format are cumulative snapshots, not per-turn deltas.
type Usage struct {
	InputTokens         int64
	CacheReadTokens     int64
	CacheCreationTokens int64
}

// Event is one decoded log record. Immutable once decoded.
type Event struct {
	// Kind is KindUser, KindAssistant, or KindOther.
	Kind string
	// Timestamp is the record's instant; zero when absent or unparseable.
	Timestamp time.Time
	// Content is the effective string content of the message body.
	Content string
	// Model is the model identifier, set on assistant records.
	Model string
	// Usage is nil when the record carried no token counters.
	Usage *Usage
}

// ///////////////////////////////////////////////
// Raw JSONL Shapes
// ///////////////////////////////////////////////

// rawRecord mirrors one line of the log. Only the fields this system needs
// are decoded; usage may appear at the top level or nested in the message.
type rawRecord struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Message   *rawMessage `json:"message"`
	Usage     *rawUsage   `json:"usage"`
}

// rawMessage holds the nested message object of a record.
type rawMessage struct {
	Content json.RawMessage `json:"content"`
	Model   string          `json:"model"`
	Usage   *rawUsage       `json:"usage"`
}

// rawUsage holds the token counters of a record.
type rawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

// ///////////////////////////////////////////////
// Decoding
// ///////////////////////////////////////////////

// DecodeLine parses one raw log line into an Event. Blank lines and lines
// that fail to parse yield ok = false; decoding never returns an error.
func DecodeLine(line []byte) (Event, bool) {
	if len(strings.TrimSpace(string(line))) == 0 {
		return Event{}, false
	}

	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, false
	}

	ev := Event{Kind: KindOther}
	switch raw.Type {
	case KindUser, KindAssistant:
		ev.Kind = raw.Type
	}

	if raw.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, raw.Timestamp); err == nil {
			ev.Timestamp = ts
		}
	}

	if raw.Message != nil {
		ev.Content = decodeContent(raw.Message.Content)
		ev.Model = raw.Message.Model
	}

	// Usage nested in the message wins over the top-level variant.
	u := raw.Usage
	if raw.Message != nil && raw.Message.Usage != nil {
		u = raw.Message.Usage
	}
	if u != nil {
		ev.Usage = &Usage{
			InputTokens:         u.InputTokens,
			CacheReadTokens:     u.CacheReadInputTokens,
			CacheCreationTokens: u.CacheCreationInputTokens,
		}
	}

	return ev, true
}

// decodeContent extracts the effective string content from a message body,
// which is either a bare string or an ordered list of content blocks. For
// block lists the first block's text is the effective content.
func decodeContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}

	var blocks []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil && len(blocks) > 0 {
		return blocks[0].Text
	}

	return ""
}
