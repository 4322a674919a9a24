package history

import (
	"sort"
	"strings"

	"github.com/xaenox/thread-analytics/internal/models"
)

// BuildConversation folds the history items of one thread into a single
// deduplicated, chronologically ordered conversation. Items are visited
// in their given order and the first occurrence of a duplicated message
// wins; the final sort is stable, so equal timestamps keep discovery
// order.
func BuildConversation(items []models.HistoryItem) models.Conversation {
	var conversation models.Conversation
	seen := make(map[string]struct{})

	for _, item := range items {
		for _, msg := range ExtractMessages(item) {
			key := dedupKey(msg)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			conversation = append(conversation, msg)
		}
	}

	// Lexicographic comparison is sufficient: all timestamps share the
	// same ISO-8601 format.
	sort.SliceStable(conversation, func(i, j int) bool {
		return conversation[i].Timestamp < conversation[j].Timestamp
	})
	return conversation
}

// dedupKey identifies a message across overlapping history pages: same
// role, same content head (plus tail for long content), same timestamp
// at whole-second precision. Sub-second differences between repeats of
// the same event must not defeat the dedup.
func dedupKey(msg models.Message) string {
	content := []rune(msg.Content)
	head := string(content[:min(50, len(content))])
	tail := ""
	if len(content) > 100 {
		tail = string(content[len(content)-50:])
	}
	return strings.Join([]string{string(msg.Role), head, tail, secondPrecision(msg.Timestamp)}, "\x1f")
}

// secondPrecision truncates a timestamp to whole seconds, falling back
// to the raw string when it cannot be parsed.
func secondPrecision(ts string) string {
	t, err := models.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return t.UTC().Format("2006-01-02T15:04:05")
}
