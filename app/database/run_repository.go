package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLRunRepository handles database operations for runs and briefs
type SQLRunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

// CreateRun records a completed scout run and returns its ID
func (r *SQLRunRepository) CreateRun(topic, profile string, lookbackHours int, pulledAt time.Time, sourceCounts map[string]int, postCount int) (string, error) {
	counts, err := json.Marshal(sourceCounts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal source counts: %w", err)
	}

	id := uuid.New().String()
	_, err = r.db.Exec(`
		INSERT INTO runs (id, topic, profile, lookback_hours, post_count, source_counts, pulled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, topic, profile, lookbackHours, postCount, string(counts), pulledAt.UTC())

	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	return id, nil
}

// GetRun retrieves a run by its ID, or nil when it does not exist
func (r *SQLRunRepository) GetRun(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, topic, profile, lookback_hours, post_count, source_counts, pulled_at, created_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// GetRuns returns the most recent runs, newest first
func (r *SQLRunRepository) GetRuns(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, topic, profile, lookback_hours, post_count, source_counts, pulled_at, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// GetRunCount returns the total number of archived runs
func (r *SQLRunRepository) GetRunCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get run count: %w", err)
	}
	return count, nil
}

// SaveBrief stores the generated brief for a run and returns its ID
func (r *SQLRunRepository) SaveBrief(runID, model, content string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.Exec(`
		INSERT INTO briefs (id, run_id, model, content)
		VALUES (?, ?, ?, ?)
	`, id, runID, model, content)

	if err != nil {
		return "", fmt.Errorf("failed to save brief: %w", err)
	}

	return id, nil
}

// GetBrief retrieves the brief for a run, or nil when none was saved
func (r *SQLRunRepository) GetBrief(runID string) (*Brief, error) {
	var brief Brief
	err := r.db.QueryRow(`
		SELECT id, run_id, model, content, created_at
		FROM briefs
		WHERE run_id = ?
	`, runID).Scan(&brief.ID, &brief.RunID, &brief.Model, &brief.Content, &brief.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get brief: %w", err)
	}

	return &brief, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var counts string
	err := row.Scan(
		&run.ID, &run.Topic, &run.Profile, &run.LookbackHours, &run.PostCount,
		&counts, &run.PulledAt, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(counts), &run.SourceCounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source counts: %w", err)
	}

	return &run, nil
}
