package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripeness/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "runs.db")

	db, err := New(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRunRepository_InsertAndGetRecent(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i, outcome := range []string{model.OutcomeOK, model.OutcomeUpstreamError, model.OutcomeOK} {
		run := &model.Run{
			ModelID:     "ripeness-detection_1/1",
			Status:      200,
			Outcome:     outcome,
			Predictions: i,
			DurationMS:  int64(100 + i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		id, err := repo.Insert(run)
		require.NoError(t, err)
		assert.Equal(t, id, run.ID)
	}

	runs, err := repo.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].Predictions)
	assert.Equal(t, 1, runs[1].Predictions)
	assert.Equal(t, model.OutcomeUpstreamError, runs[1].Outcome)
	assert.True(t, runs[0].CreatedAt.Equal(base.Add(2*time.Minute)))
}

func TestRunRepository_Counts(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	for _, outcome := range []string{model.OutcomeOK, model.OutcomeOK, model.OutcomeInvalidJSON} {
		_, err := repo.Insert(&model.Run{ModelID: "m/1", Status: 200, Outcome: outcome})
		require.NoError(t, err)
	}

	total, err := repo.GetTotalCount()
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	counts, err := repo.CountByOutcome()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{model.OutcomeOK: 2, model.OutcomeInvalidJSON: 1}, counts)
}

func TestRunRepository_DeleteAll(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	_, err := repo.Insert(&model.Run{ModelID: "m/1", Status: 500, Outcome: model.OutcomeTransportError, Error: "dial tcp"})
	require.NoError(t, err)
	require.NoError(t, repo.DeleteAll())

	runs, err := repo.GetRecent(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunRepository_InsertStampsTime(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	run := &model.Run{ModelID: "m/1", Status: 200, Outcome: model.OutcomeOK}
	_, err := repo.Insert(run)
	require.NoError(t, err)
	assert.False(t, run.CreatedAt.IsZero())
}
