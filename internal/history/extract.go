// Package history reconstructs conversations and tool invocations from
// the loosely typed execution-history payloads of the threads API.
package history

import (
	"sort"
	"strings"

	"github.com/xaenox/thread-analytics/internal/models"
)

// messageKeyHints are the key-name substrings scanned when a values
// record has no literal "messages" list. Upstream does not fix the key
// the embedded message list lives under.
var messageKeyHints = []string{"message", "chat", "conversation", "dialog"}

// ExtractMessages pulls normalized chat messages out of one history
// item. Candidates with an unrecognized role or empty content are
// dropped; that filtering is deliberate, not an error path.
func ExtractMessages(item models.HistoryItem) []models.Message {
	var out []models.Message
	for _, record := range normalizeValues(item.Values) {
		for _, candidate := range messageCandidates(record) {
			if msg, ok := normalizeMessage(candidate, item.CreatedAt); ok {
				out = append(out, msg)
			}
		}
	}
	return out
}

// messageCandidates returns the raw message mappings found in one
// values record. A non-empty literal "messages" key wins; otherwise
// every key containing one of the hint substrings is scanned, in sorted
// key order so extraction is deterministic.
func messageCandidates(record map[string]any) []map[string]any {
	if raw, ok := record["messages"]; ok {
		if direct := candidateList(raw); len(direct) > 0 {
			return direct
		}
	}

	var hinted []string
	for key := range record {
		lower := strings.ToLower(key)
		for _, hint := range messageKeyHints {
			if strings.Contains(lower, hint) {
				hinted = append(hinted, key)
				break
			}
		}
	}
	sort.Strings(hinted)

	var out []map[string]any
	for _, key := range hinted {
		out = append(out, candidateList(record[key])...)
	}
	return out
}

// candidateList coerces a raw value into a list of message mappings: a
// list keeps its mapping elements, a single mapping becomes a
// one-element list.
func candidateList(raw any) []map[string]any {
	switch v := raw.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{v}
	default:
		return nil
	}
}

// normalizeMessage converts one raw candidate into a Message. The role
// comes from "type" falling back to "role"; content from "content"
// falling back to "text" falling back to "message".
func normalizeMessage(candidate map[string]any, timestamp string) (models.Message, bool) {
	rawRole, _ := firstPresent(candidate, "type", "role")
	roleString, _ := rawRole.(string)
	role, ok := models.ParseRole(roleString)
	if !ok {
		return models.Message{}, false
	}

	rawContent, _ := firstPresent(candidate, "content", "text", "message")
	content := strings.TrimSpace(flattenContent(rawContent))
	if content == "" {
		return models.Message{}, false
	}

	return models.Message{
		Timestamp: timestamp,
		Role:      role,
		Content:   content,
	}, true
}
