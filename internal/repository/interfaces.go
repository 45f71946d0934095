package repository

import "ripeness/internal/model"

// RunRepository stores the ledger of proxy forwards.
type RunRepository interface {
	// Create operations
	Insert(run *model.Run) (int64, error)

	// Read operations
	GetRecent(limit int) ([]model.Run, error)
	GetTotalCount() (int, error)
	CountByOutcome() (map[string]int, error)

	// Delete operations
	DeleteAll() error
}
