package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/thread-analytics/internal/models"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	histories map[string][]models.HistoryItem
}

func (f *fakeFetcher) GetThreadHistory(ctx context.Context, threadID string) []models.HistoryItem {
	return f.histories[threadID]
}

func thread(id, userID, createdAt, updatedAt string) models.ThreadRecord {
	return models.ThreadRecord{
		ThreadID:  id,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Metadata:  map[string]any{"user_id": userID},
	}
}

func chatHistory(ts string, profile map[string]any, msgs ...map[string]any) models.HistoryItem {
	raw := make([]any, len(msgs))
	for i, m := range msgs {
		raw[i] = m
	}
	return models.HistoryItem{
		CreatedAt: ts,
		Metadata:  profile,
		Values:    map[string]any{"messages": raw},
	}
}

func newTestEngine(t *testing.T, fetcher HistoryFetcher, workers int) *Engine {
	t.Helper()
	engine, err := NewEngine(fetcher, zap.NewNop(), 10, workers)
	require.NoError(t, err)
	return engine
}

func fixtureThreads() ([]models.ThreadRecord, *fakeFetcher) {
	threads := []models.ThreadRecord{
		thread("t1", "user_a", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z"),
		thread("t2", "user_a", "2024-01-02T09:00:00Z", "2024-01-02T10:00:00Z"),
		thread("t3", "user_b", "2024-01-02T11:00:00Z", "2024-01-02T12:00:00Z"),
	}
	fetcher := &fakeFetcher{histories: map[string][]models.HistoryItem{
		"t1": {chatHistory("2024-01-01T09:00:00Z",
			map[string]any{"username": "alice", "email": "alice@example.com"},
			map[string]any{"type": "human", "content": "Hi"},
			map[string]any{"type": "ai", "content": "Hello"},
		)},
		"t2": {chatHistory("2024-01-02T09:00:00Z",
			map[string]any{"username": "alice-renamed"},
			map[string]any{"type": "human", "content": "Question"},
			map[string]any{"type": "ai", "content": "Answer"},
			map[string]any{"type": "ai", "content": "Followup"},
		)},
		"t3": {chatHistory("2024-01-02T11:00:00Z",
			map[string]any{"username": "bob"},
			map[string]any{"type": "human", "content": "Hey"},
		)},
	}}
	return threads, fetcher
}

func TestGenerateReportSummary(t *testing.T) {
	threads, fetcher := fixtureThreads()
	engine := newTestEngine(t, fetcher, 1)

	report := engine.GenerateReport(context.Background(), threads, false)

	s := report.Summary
	assert.Equal(t, 3, s.TotalThreads)
	assert.Equal(t, 2, s.TotalUsers)
	assert.Equal(t, 1.5, s.AvgThreadsPerUser)
	assert.Equal(t, 6, s.TotalMessages)
	assert.Equal(t, 3, s.UserMessages)
	assert.Equal(t, 3, s.AIMessages)
	assert.Equal(t, 2.0, s.AvgMessagesPerThread)
	assert.Equal(t, "2024-01-02", s.PeakDay)
	assert.Equal(t, 2, s.PeakThreads)
	assert.NotEmpty(t, s.AnalysisDate)

	assert.Equal(t, map[string]int{"2024-01-01": 1, "2024-01-02": 2}, report.ThreadsByDate)
	assert.Nil(t, report.ToolCallingStats)
	assert.Zero(t, s.TotalToolCalls)
}

func TestGenerateReportUserStats(t *testing.T) {
	threads, fetcher := fixtureThreads()
	engine := newTestEngine(t, fetcher, 1)

	report := engine.GenerateReport(context.Background(), threads, false)
	users := report.UserStats

	assert.Equal(t, 2, users.TotalUsers)

	alice := users.ThreadsPerUser["user_a"]
	require.NotNil(t, alice)
	assert.Equal(t, 2, alice.ThreadCount)
	assert.Equal(t, []string{"t1", "t2"}, alice.ThreadIDs)
	assert.Equal(t, 5, alice.TotalMessages)
	assert.Equal(t, 2, alice.TotalUserMessages)
	assert.Equal(t, 2.5, alice.AvgMessagesPerThread)

	// The profile freezes at the first thread seen for the user; the
	// rename in t2 never lands.
	assert.Equal(t, "alice", users.UserDetails["user_a"].Username)
	assert.Equal(t, "alice@example.com", users.UserDetails["user_a"].Email)

	assert.Equal(t, map[int]int{1: 1, 2: 1}, users.UserThreadCount)

	conv := users.ThreadConversations["t2"]
	require.NotNil(t, conv)
	assert.Equal(t, 3, conv.TotalMessages)
	assert.Equal(t, 1, conv.UserMessages)
	assert.Equal(t, 2, conv.AIMessages)
	assert.Equal(t, "Question...", conv.FirstMessage)
	assert.Equal(t, "Followup...", conv.LastMessage)
	assert.Equal(t, "user_a", conv.UserID)
}

func TestGenerateReportTopUsers(t *testing.T) {
	threads, fetcher := fixtureThreads()
	engine := newTestEngine(t, fetcher, 1)

	report := engine.GenerateReport(context.Background(), threads, false)
	require.Len(t, report.TopUsers, 2)
	assert.Equal(t, "user_a", report.TopUsers[0].UserID)
	assert.Equal(t, 2, report.TopUsers[0].ThreadCount)
	assert.Equal(t, "user_b", report.TopUsers[1].UserID)
}

func TestGenerateReportTopUsersBounded(t *testing.T) {
	threads, fetcher := fixtureThreads()
	engine, err := NewEngine(fetcher, zap.NewNop(), 1, 1)
	require.NoError(t, err)

	report := engine.GenerateReport(context.Background(), threads, false)
	require.Len(t, report.TopUsers, 1)
	assert.Equal(t, "user_a", report.TopUsers[0].UserID)
}

func TestGenerateReportEmptyHistory(t *testing.T) {
	threads := []models.ThreadRecord{thread("t1", "user_a", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z")}
	engine := newTestEngine(t, &fakeFetcher{histories: map[string][]models.HistoryItem{}}, 1)

	report := engine.GenerateReport(context.Background(), threads, false)

	// A thread with no usable history still counts toward its user.
	assert.Equal(t, 1, report.Summary.TotalThreads)
	assert.Equal(t, 1, report.Summary.TotalUsers)
	assert.Zero(t, report.Summary.TotalMessages)

	conv := report.UserStats.ThreadConversations["t1"]
	require.NotNil(t, conv)
	assert.Equal(t, "No conversation found", conv.FirstMessage)
	assert.Equal(t, "No conversation found", conv.LastMessage)
	assert.Zero(t, conv.TotalMessages)

	// No profile in history: the fallback carries only the user id.
	assert.Equal(t, models.UserInfo{UserID: "user_a"}, report.UserStats.UserDetails["user_a"])
}

func TestGenerateReportSkipsAnonymousThreads(t *testing.T) {
	threads := []models.ThreadRecord{
		{ThreadID: "t1", UpdatedAt: "2024-01-01T10:00:00Z"}, // no metadata
		thread("", "user_a", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z"),
		thread("t2", "user_a", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z"),
	}
	engine := newTestEngine(t, &fakeFetcher{histories: map[string][]models.HistoryItem{}}, 1)

	report := engine.GenerateReport(context.Background(), threads, false)

	// Threads without a user id or thread id are excluded from user
	// stats but still count in the totals.
	assert.Equal(t, 3, report.Summary.TotalThreads)
	assert.Equal(t, 1, report.Summary.TotalUsers)
	assert.Len(t, report.UserStats.ThreadConversations, 1)
}

func TestGenerateReportToolStats(t *testing.T) {
	threads := []models.ThreadRecord{
		thread("t1", "user_a", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z"),
		thread("t2", "user_b", "2024-01-01T11:00:00Z", "2024-01-01T12:00:00Z"),
	}
	toolMessage := map[string]any{
		"type": "ai",
		"id":   "m1",
		"additional_kwargs": map[string]any{
			"tool_calls": []any{
				map[string]any{
					"id":       "c1",
					"function": map[string]any{"name": "create_lead", "arguments": "{}"},
				},
				map[string]any{
					"id":       "c2",
					"function": map[string]any{"name": "send_html_email", "arguments": "{}"},
				},
			},
		},
	}
	fetcher := &fakeFetcher{histories: map[string][]models.HistoryItem{
		"t1": {chatHistory("2024-01-01T09:00:00Z", nil, toolMessage)},
		"t2": {chatHistory("2024-01-01T11:00:00Z", nil)},
	}}
	engine := newTestEngine(t, fetcher, 1)

	report := engine.GenerateReport(context.Background(), threads, true)
	tools := report.ToolCallingStats
	require.NotNil(t, tools)

	assert.Equal(t, 1, tools.CreateLead)
	assert.Equal(t, 1, tools.SendHTMLEmail)
	assert.Equal(t, 2, tools.TotalToolCalls)
	assert.Equal(t, 1, tools.ThreadsWithCreateLead)
	assert.Equal(t, 1, tools.ThreadsWithSendHTMLEmail)
	assert.Equal(t, 1, tools.ThreadsWithAnyTool)

	require.Len(t, tools.DetailedCalls, 2)
	assert.Equal(t, "t1", tools.DetailedCalls[0].ThreadID)

	byDate := tools.ToolCallsByDate["2024-01-01"]
	require.NotNil(t, byDate)
	assert.Equal(t, 2, byDate.Total)

	// Summary mirrors the global counters.
	assert.Equal(t, 2, report.Summary.TotalToolCalls)
	assert.Equal(t, 1, report.Summary.CreateLeadCalls)
	assert.Equal(t, 1, report.Summary.SendHTMLEmailCalls)
}

func TestGenerateReportParallelMatchesSequential(t *testing.T) {
	threads, fetcher := fixtureThreads()

	sequential := newTestEngine(t, fetcher, 1).GenerateReport(context.Background(), threads, true)
	parallel := newTestEngine(t, fetcher, 4).GenerateReport(context.Background(), threads, true)

	// AnalysisDate is wall-clock; everything else must match exactly.
	sequential.Summary.AnalysisDate = ""
	parallel.Summary.AnalysisDate = ""
	assert.Equal(t, sequential, parallel)
}

func TestNewEngineRequiresFetcher(t *testing.T) {
	_, err := NewEngine(nil, zap.NewNop(), 10, 1)
	assert.Error(t, err)
}

func TestThreadsByDate(t *testing.T) {
	threads := []models.ThreadRecord{
		thread("t1", "u", "", "2024-01-01T10:00:00Z"),
		thread("t2", "u", "", "2024-01-01T23:59:59Z"),
		thread("t3", "u", "", "not a timestamp"),
		thread("t4", "u", "", ""),
	}
	assert.Equal(t, map[string]int{"2024-01-01": 2}, ThreadsByDate(threads))
}
