package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/thread-analytics/internal/models"
)

// MemoryStore keeps report runs in memory. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*models.Report
	runs    []RunInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]*models.Report),
	}
}

func (s *MemoryStore) SaveReport(ctx context.Context, report *models.Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.reports[id] = report
	s.runs = append(s.runs, RunInfo{
		ID:           id,
		GeneratedAt:  time.Now(),
		TotalThreads: report.Summary.TotalThreads,
		TotalUsers:   report.Summary.TotalUsers,
	})
	return id, nil
}

func (s *MemoryStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, exists := s.reports[id]
	if !exists {
		return nil, ErrNotFound
	}
	return report, nil
}

func (s *MemoryStore) LatestReport(ctx context.Context) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return nil, ErrNotFound
	}
	return s.reports[s.runs[len(s.runs)-1].ID], nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first.
	runs := make([]RunInfo, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		runs = append(runs, s.runs[i])
		if limit > 0 && len(runs) == limit {
			break
		}
	}
	return runs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
