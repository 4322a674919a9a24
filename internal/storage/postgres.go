package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/xaenox/thread-analytics/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

// PostgresStore persists report runs as JSONB payloads.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(config DatabaseConfig, logger *zap.Logger) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}
	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, report *models.Report) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("error encoding report: %v", err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO report_runs (id, total_threads, total_users, payload)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, id,
		report.Summary.TotalThreads, report.Summary.TotalUsers, payload); err != nil {
		return "", fmt.Errorf("error saving report: %v", err)
	}

	s.logger.Info("report persisted",
		zap.String("report_id", id),
		zap.Int("total_threads", report.Summary.TotalThreads))
	return id, nil
}

func (s *PostgresStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT payload FROM report_runs WHERE id = $1`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying report: %v", err)
	}
	return decodeReport(payload)
}

func (s *PostgresStore) LatestReport(ctx context.Context) (*models.Report, error) {
	query := `SELECT payload FROM report_runs ORDER BY generated_at DESC LIMIT 1`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying latest report: %v", err)
	}
	return decodeReport(payload)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `
		SELECT id, generated_at, total_threads, total_users
		FROM report_runs
		ORDER BY generated_at DESC
		LIMIT $1`
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying report runs: %v", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var run RunInfo
		if err := rows.Scan(&run.ID, &run.GeneratedAt, &run.TotalThreads, &run.TotalUsers); err != nil {
			return nil, fmt.Errorf("error scanning report run: %v", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func decodeReport(payload []byte) (*models.Report, error) {
	var report models.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("error decoding report payload: %v", err)
	}
	return &report, nil
}
