package command

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xaenox/thread-analytics/internal/analytics"
	"github.com/xaenox/thread-analytics/internal/api"
	"github.com/xaenox/thread-analytics/internal/models"
	"github.com/xaenox/thread-analytics/pkg/config"
	"go.uber.org/zap"
)

var (
	reportDateFrom   string
	reportDateTo     string
	reportMaxThreads int
	reportTop        int
	reportNoTools    bool
	reportParallel   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch threads and generate an aggregation report",
	Long: `Paginates the thread-search endpoint, reconstructs every thread's
conversation, folds the results into per-user and per-date statistics,
persists the report and prints a text summary.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDateFrom, "date-from", "", "only include threads updated on or after this date (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportDateTo, "date-to", "", "only include threads updated on or before this date (YYYY-MM-DD)")
	reportCmd.Flags().IntVar(&reportMaxThreads, "max-threads", 0, "cap the number of threads analyzed (0 = unlimited)")
	reportCmd.Flags().IntVar(&reportTop, "top", 0, "number of top users to rank (default from config)")
	reportCmd.Flags().BoolVar(&reportNoTools, "no-tools", false, "skip tool-call analysis")
	reportCmd.Flags().BoolVar(&reportParallel, "parallel", false, "process threads with the configured worker pool")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	topN := cfg.Report.TopUsers
	if reportTop > 0 {
		topN = reportTop
	}
	workers := 1
	if reportParallel {
		workers = cfg.Report.MaxWorkers
	}
	engine, err := analytics.NewEngine(client, logger, topN, workers)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	threads := client.FetchAllThreads(ctx, api.FetchOptions{
		DateFrom:   reportDateFrom,
		DateTo:     reportDateTo,
		MaxThreads: reportMaxThreads,
	})
	if len(threads) == 0 {
		logger.Warn("no threads to analyze")
		fmt.Fprintln(cmd.OutOrStdout(), "No thread data found for the requested window.")
		return nil
	}

	includeTools := cfg.Report.IncludeToolAnalysis && !reportNoTools
	report := engine.GenerateReport(ctx, threads, includeTools)

	store, err := newStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize report store: %w", err)
	}
	defer store.Close()

	id, err := store.SaveReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	logger.Info("report saved", zap.String("report_id", id))

	printSummary(cmd.OutOrStdout(), report)
	return nil
}

func newClient(cfg *config.Config, logger *zap.Logger) (*api.Client, error) {
	return api.NewClient(api.ClientConfig{
		BaseURL:        cfg.API.BaseURL,
		PageSize:       cfg.API.PageSize,
		PageDelay:      cfg.API.PageDelay,
		RequestTimeout: cfg.API.RequestTimeout,
	}, nil, logger)
}

// printSummary writes the plain-text digest of a report: global
// counters, the most recent days, and the top-user ranking.
func printSummary(w io.Writer, report *models.Report) {
	s := report.Summary
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "THREAD ANALYTICS REPORT")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Analysis date:        %s\n", s.AnalysisDate)
	fmt.Fprintf(w, "Total threads:        %d\n", s.TotalThreads)
	fmt.Fprintf(w, "Total users:          %d\n", s.TotalUsers)
	fmt.Fprintf(w, "Avg threads/user:     %.2f\n", s.AvgThreadsPerUser)
	fmt.Fprintf(w, "Total messages:       %d (%d user, %d AI)\n", s.TotalMessages, s.UserMessages, s.AIMessages)
	fmt.Fprintf(w, "Avg messages/thread:  %.2f\n", s.AvgMessagesPerThread)
	if s.PeakDay != "" {
		fmt.Fprintf(w, "Peak day:             %s (%d threads)\n", s.PeakDay, s.PeakThreads)
	}

	fmt.Fprintln(w, "\nTHREADS BY DATE (last 10 days):")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	dates := sortedDates(report.ThreadsByDate)
	if len(dates) > 10 {
		dates = dates[len(dates)-10:]
	}
	for _, date := range dates {
		fmt.Fprintf(w, "%s: %d threads\n", date, report.ThreadsByDate[date])
	}

	fmt.Fprintf(w, "\nTOP %d USERS BY THREAD COUNT:\n", len(report.TopUsers))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for i, user := range report.TopUsers {
		name := user.UserInfo.Username
		if name == "" {
			name = user.UserID
		}
		stats := report.UserStats.ThreadsPerUser[user.UserID]
		fmt.Fprintf(w, "%2d. [%d threads, %d messages] %s\n", i+1, user.ThreadCount, stats.TotalMessages, name)
		if user.UserInfo.Email != "" {
			fmt.Fprintf(w, "    email: %s\n", user.UserInfo.Email)
		}
	}

	if tools := report.ToolCallingStats; tools != nil {
		fmt.Fprintln(w, "\nTOOL CALLS:")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "total:            %d\n", tools.TotalToolCalls)
		fmt.Fprintf(w, "create_lead:      %d (%d threads)\n", tools.CreateLead, tools.ThreadsWithCreateLead)
		fmt.Fprintf(w, "send_html_email:  %d (%d threads)\n", tools.SendHTMLEmail, tools.ThreadsWithSendHTMLEmail)
	}
}

func sortedDates(byDate map[string]int) []string {
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
