// Package analytics folds fetched threads into the report structure
// consumed by the CLI and the HTTP API.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/xaenox/thread-analytics/internal/history"
	"github.com/xaenox/thread-analytics/internal/models"
	"go.uber.org/zap"
)

const (
	defaultTopUsers = 10
	defaultWorkers  = 1
)

// HistoryFetcher supplies per-thread execution history. Satisfied by
// *api.Client; tests substitute a fake.
type HistoryFetcher interface {
	GetThreadHistory(ctx context.Context, threadID string) []models.HistoryItem
}

// Engine is the aggregation root. One GenerateReport call is one
// aggregation run; no state survives between runs.
type Engine struct {
	fetcher HistoryFetcher
	logger  *zap.Logger
	topN    int
	workers int
}

// NewEngine builds an engine. topN bounds the top-users ranking
// (default 10); workers > 1 enables the bounded worker pool for the
// per-thread history pipeline (default sequential).
func NewEngine(fetcher HistoryFetcher, logger *zap.Logger, topN, workers int) (*Engine, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("history fetcher is required")
	}
	if topN <= 0 {
		topN = defaultTopUsers
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Engine{
		fetcher: fetcher,
		logger:  logger,
		topN:    topN,
		workers: workers,
	}, nil
}

// GenerateReport runs one aggregation pass over the given threads. A
// thread whose history fetch fails contributes an all-zero conversation
// entry and still counts toward its user's thread_count; the run never
// aborts because of one bad thread.
func (e *Engine) GenerateReport(ctx context.Context, threads []models.ThreadRecord, includeTools bool) *models.Report {
	e.logger.Info("generating report",
		zap.Int("threads", len(threads)),
		zap.Bool("tool_analysis", includeTools),
		zap.Int("workers", e.workers))

	threadsByDate := ThreadsByDate(threads)
	results := e.collect(ctx, threads, includeTools)
	userStats, userOrder := buildUserStats(results)

	report := &models.Report{
		Summary:       buildSummary(len(threads), threadsByDate, userStats),
		ThreadsByDate: threadsByDate,
		UserStats:     userStats,
		TopUsers:      topUsers(userStats.ThreadsPerUser, userOrder, e.topN),
	}

	if includeTools {
		tools := foldToolStats(results)
		report.ToolCallingStats = tools
		report.Summary.TotalToolCalls = tools.TotalToolCalls
		report.Summary.CreateLeadCalls = tools.CreateLead
		report.Summary.SendHTMLEmailCalls = tools.SendHTMLEmail
		report.Summary.ThreadsWithCreateLead = tools.ThreadsWithCreateLead
		report.Summary.ThreadsWithSendHTMLEmail = tools.ThreadsWithSendHTMLEmail
	}

	e.logger.Info("report generated",
		zap.Int("total_threads", report.Summary.TotalThreads),
		zap.Int("total_users", report.Summary.TotalUsers),
		zap.Int("total_messages", report.Summary.TotalMessages))
	return report
}

// ThreadsByDate groups the thread count by the date portion of
// updated_at. Records with an unparsable timestamp are skipped.
func ThreadsByDate(threads []models.ThreadRecord) map[string]int {
	byDate := make(map[string]int)
	for _, thread := range threads {
		if date, ok := models.DateOf(thread.UpdatedAt); ok {
			byDate[date]++
		}
	}
	return byDate
}

// threadResult is the independent per-thread outcome of the history
// pipeline. Workers fill these in isolation; all folding happens
// sequentially after collection.
type threadResult struct {
	thread       models.ThreadRecord
	conversation models.ThreadConversation
	profile      models.UserInfo
	hasProfile   bool
	toolStats    models.ToolCallStats
}

// collect runs the history-fetch + extraction pipeline for every
// thread, either sequentially or on a bounded worker pool. Each worker
// writes only its own slot, so results need no locking; the slice index
// preserves the input order the fold depends on.
func (e *Engine) collect(ctx context.Context, threads []models.ThreadRecord, includeTools bool) []threadResult {
	results := make([]threadResult, len(threads))

	if e.workers <= 1 || len(threads) < 2 {
		for i := range threads {
			results[i] = e.processThread(ctx, threads[i], includeTools)
		}
		return results
	}

	jobs := make(chan int)
	done := make(chan struct{})
	for w := 0; w < e.workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := range jobs {
				results[i] = e.processThread(ctx, threads[i], includeTools)
			}
		}()
	}
	for i := range threads {
		jobs <- i
	}
	close(jobs)
	for w := 0; w < e.workers; w++ {
		<-done
	}
	return results
}

// processThread fetches one thread's history and derives everything the
// fold needs: conversation stats, a profile candidate, tool stats.
func (e *Engine) processThread(ctx context.Context, thread models.ThreadRecord, includeTools bool) threadResult {
	res := threadResult{thread: thread}
	if thread.ThreadID == "" {
		return res
	}

	items := e.fetcher.GetThreadHistory(ctx, thread.ThreadID)
	conversation := history.BuildConversation(items)
	res.conversation = conversationData(thread, conversation)
	res.profile, res.hasProfile = profileFromHistory(items)
	if includeTools {
		res.toolStats = history.AnalyzeToolCalls(items)
	}
	return res
}

// conversationData summarizes one thread's conversation for the report.
func conversationData(thread models.ThreadRecord, conversation models.Conversation) models.ThreadConversation {
	data := models.ThreadConversation{
		CreatedAt:    thread.CreatedAt,
		UpdatedAt:    thread.UpdatedAt,
		UserID:       thread.UserID(),
		Conversation: models.Conversation{},
	}
	if len(conversation) == 0 {
		data.FirstMessage = "No conversation found"
		data.LastMessage = "No conversation found"
		return data
	}

	data.Conversation = conversation
	data.TotalMessages = len(conversation)
	for _, msg := range conversation {
		if msg.Role == models.RoleUser {
			data.UserMessages++
		}
	}
	data.AIMessages = data.TotalMessages - data.UserMessages
	data.FirstMessage = preview(conversation[0].Content)
	data.LastMessage = preview(conversation[len(conversation)-1].Content)
	return data
}

// preview truncates message content for the first/last report fields.
func preview(content string) string {
	const limit = 100
	runes := []rune(content)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + "..."
}

// profileFromHistory scans the history items for the first metadata
// that carries a username or email and builds the user profile from it.
func profileFromHistory(items []models.HistoryItem) (models.UserInfo, bool) {
	for _, item := range items {
		username := item.MetaString("username")
		email := item.MetaString("email")
		if username == "" && email == "" {
			continue
		}
		return models.UserInfo{
			Username:    username,
			Email:       email,
			Name:        item.MetaString("name"),
			PhoneNumber: item.MetaString("phoneNumber"),
			UserID:      item.MetaString("user_id"),
		}, true
	}
	return models.UserInfo{}, false
}

// buildUserStats folds the per-thread results into the user_stats
// section. The profile for a user is frozen at the first thread
// encountered for that user in input order, even when that thread's
// history yields an empty profile; later threads never refresh it.
// Returns the section plus the user encounter order for the top-N sort.
func buildUserStats(results []threadResult) (models.UserStatsSection, []string) {
	section := models.UserStatsSection{
		ThreadsPerUser:      make(map[string]*models.UserStats),
		UserThreadCount:     make(map[int]int),
		UserDetails:         make(map[string]models.UserInfo),
		ThreadConversations: make(map[string]*models.ThreadConversation),
	}
	userThreads := make(map[string][]string)
	var order []string

	for i := range results {
		res := &results[i]
		userID := res.thread.UserID()
		threadID := res.thread.ThreadID
		if userID == "" || threadID == "" {
			continue
		}

		if _, seen := section.UserDetails[userID]; !seen {
			order = append(order, userID)
			profile := res.profile
			if !res.hasProfile {
				profile = models.UserInfo{UserID: userID}
			}
			section.UserDetails[userID] = profile
		}

		userThreads[userID] = append(userThreads[userID], threadID)
		conversation := res.conversation
		section.ThreadConversations[threadID] = &conversation
	}

	section.TotalUsers = len(userThreads)
	for _, userID := range order {
		threadIDs := userThreads[userID]
		stats := &models.UserStats{
			ThreadCount: len(threadIDs),
			ThreadIDs:   threadIDs,
			UserInfo:    section.UserDetails[userID],
		}
		for _, threadID := range threadIDs {
			if conv, ok := section.ThreadConversations[threadID]; ok {
				stats.TotalMessages += conv.TotalMessages
				stats.TotalUserMessages += conv.UserMessages
			}
		}
		if stats.ThreadCount > 0 {
			stats.AvgMessagesPerThread = round2(float64(stats.TotalMessages) / float64(stats.ThreadCount))
		}
		section.ThreadsPerUser[userID] = stats
		section.UserThreadCount[stats.ThreadCount]++
	}
	return section, order
}

// buildSummary computes the global counters and derived averages.
func buildSummary(totalThreads int, threadsByDate map[string]int, users models.UserStatsSection) models.Summary {
	summary := models.Summary{
		TotalThreads: totalThreads,
		TotalUsers:   users.TotalUsers,
		AnalysisDate: time.Now().Format(time.RFC3339),
	}
	for _, stats := range users.ThreadsPerUser {
		summary.TotalMessages += stats.TotalMessages
		summary.UserMessages += stats.TotalUserMessages
	}
	summary.AIMessages = summary.TotalMessages - summary.UserMessages

	if users.TotalUsers > 0 {
		summary.AvgThreadsPerUser = round2(float64(totalThreads) / float64(users.TotalUsers))
		summary.AvgMessagesPerUser = round2(float64(summary.TotalMessages) / float64(users.TotalUsers))
	}
	if totalThreads > 0 {
		summary.AvgMessagesPerThread = round2(float64(summary.TotalMessages) / float64(totalThreads))
	}

	// Peak day: first maximum in ascending date order.
	for _, date := range sortedDates(threadsByDate) {
		if count := threadsByDate[date]; count > summary.PeakThreads {
			summary.PeakDay = date
			summary.PeakThreads = count
		}
	}
	return summary
}

// topUsers ranks users by thread_count descending. The sort is stable
// over the encounter order, so ties keep their original position.
func topUsers(perUser map[string]*models.UserStats, order []string, n int) []models.TopUser {
	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return perUser[ranked[i]].ThreadCount > perUser[ranked[j]].ThreadCount
	})
	if n > len(ranked) {
		n = len(ranked)
	}

	top := make([]models.TopUser, 0, n)
	for _, userID := range ranked[:n] {
		stats := perUser[userID]
		top = append(top, models.TopUser{
			UserID:      userID,
			ThreadCount: stats.ThreadCount,
			ThreadIDs:   stats.ThreadIDs,
			UserInfo:    stats.UserInfo,
		})
	}
	return top
}

// foldToolStats merges the per-thread tool stats into the global
// section, bucketing counts by the date each thread was created.
func foldToolStats(results []threadResult) *models.ToolCallingStats {
	stats := &models.ToolCallingStats{
		ToolCallsByThread: make(map[string]*models.ThreadToolCalls),
		ToolCallsByDate:   make(map[string]*models.DateToolCalls),
		DetailedCalls:     []models.ToolCall{},
	}

	for i := range results {
		res := &results[i]
		threadID := res.thread.ThreadID
		if threadID == "" {
			continue
		}
		threadStats := res.toolStats

		stats.CreateLead += threadStats.CreateLead
		stats.SendHTMLEmail += threadStats.SendHTMLEmail
		stats.TotalToolCalls += threadStats.TotalToolCalls
		if threadStats.CreateLead > 0 {
			stats.ThreadsWithCreateLead++
		}
		if threadStats.SendHTMLEmail > 0 {
			stats.ThreadsWithSendHTMLEmail++
		}
		if threadStats.HasAny() {
			stats.ThreadsWithAnyTool++
		}

		stats.ToolCallsByThread[threadID] = &models.ThreadToolCalls{
			ThreadMetadata: res.thread.Metadata,
			CreatedAt:      res.thread.CreatedAt,
			UpdatedAt:      res.thread.UpdatedAt,
			ToolStats:      threadStats,
		}

		if date, ok := models.DateOf(res.thread.CreatedAt); ok {
			bucket := stats.ToolCallsByDate[date]
			if bucket == nil {
				bucket = &models.DateToolCalls{}
				stats.ToolCallsByDate[date] = bucket
			}
			bucket.CreateLead += threadStats.CreateLead
			bucket.SendHTMLEmail += threadStats.SendHTMLEmail
			bucket.Total += threadStats.TotalToolCalls
		}

		for _, call := range threadStats.Detail {
			call.ThreadID = threadID
			stats.DetailedCalls = append(stats.DetailedCalls, call)
		}
	}
	return stats
}

func sortedDates(byDate map[string]int) []string {
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
