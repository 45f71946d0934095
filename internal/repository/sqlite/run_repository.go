package sqlite

import (
	"fmt"
	"time"

	"ripeness/internal/model"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert adds a ledger row. A zero CreatedAt is stamped with the current time.
func (r *RunRepository) Insert(run *model.Run) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO runs (model_id, status, outcome, predictions, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ModelID, run.Status, run.Outcome, run.Predictions, run.Error, run.DurationMS, run.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	run.ID = id
	return id, nil
}

// GetRecent returns up to limit runs, newest first.
func (r *RunRepository) GetRecent(limit int) ([]model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, model_id, status, outcome, predictions, error, duration_ms, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]model.Run, 0)
	for rows.Next() {
		var run model.Run
		if err := rows.Scan(&run.ID, &run.ModelID, &run.Status, &run.Outcome, &run.Predictions, &run.Error, &run.DurationMS, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetTotalCount returns the number of recorded runs.
func (r *RunRepository) GetTotalCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// CountByOutcome groups the ledger by outcome.
func (r *RunRepository) CountByOutcome() (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT outcome, COUNT(*) FROM runs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		counts[outcome] = count
	}

	return counts, rows.Err()
}

// DeleteAll clears the ledger.
func (r *RunRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM runs`); err != nil {
		return fmt.Errorf("failed to delete runs: %w", err)
	}
	return nil
}
