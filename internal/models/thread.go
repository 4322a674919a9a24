package models

import (
	"fmt"
	"strings"
	"time"
)

// ThreadRecord is one conversation session as reported by the thread
// search endpoint. Timestamps are kept in their raw ISO-8601 string form
// because the API does not guarantee they are present or well formed.
type ThreadRecord struct {
	ThreadID  string         `json:"thread_id"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Metadata  map[string]any `json:"metadata"`
}

// UserID returns the user id carried in the thread metadata, or "" when
// it is missing or not a string.
func (t ThreadRecord) UserID() string {
	return metaString(t.Metadata, "user_id")
}

// HistoryItem is one recorded execution step of a thread. Values carries
// the step payload, which may be a single mapping or a list of mappings
// with no fixed schema.
type HistoryItem struct {
	CreatedAt string         `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
	Values    any            `json:"values"`
}

// MetaString returns the named metadata field when it is a string.
func (h HistoryItem) MetaString(key string) string {
	return metaString(h.Metadata, key)
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp strings the threads API emits:
// RFC 3339 with varying sub-second precision, occasionally without a
// zone, occasionally date-only.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// DateOf returns the YYYY-MM-DD portion of a timestamp. The second
// return value is false when the timestamp cannot be parsed.
func DateOf(s string) (string, bool) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
