package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/thread-analytics/internal/models"
)

// ErrNotFound is returned when a report run does not exist.
var ErrNotFound = errors.New("report not found")

// RunInfo describes one persisted aggregation run.
type RunInfo struct {
	ID           string    `json:"id"`
	GeneratedAt  time.Time `json:"generated_at"`
	TotalThreads int       `json:"total_threads"`
	TotalUsers   int       `json:"total_users"`
}

// ReportStore persists aggregation runs so consumers can read a report
// without re-fetching the remote API.
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.Report) (string, error)
	GetReport(ctx context.Context, id string) (*models.Report, error)
	LatestReport(ctx context.Context) (*models.Report, error)
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)
	Close() error
}
