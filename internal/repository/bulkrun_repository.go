package repository

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/enricharr/enricharr/internal/models"
)

type BulkRunRepository struct {
	db *sql.DB
}

func NewBulkRunRepository(db *sql.DB) *BulkRunRepository {
	return &BulkRunRepository{db: db}
}

// Claim inserts a new running run if and only if no run is currently
// running. The NOT EXISTS check rejects the common case cheaply, but under
// READ COMMITTED two concurrent claims can both pass it; the partial unique
// index on status = 'running' is the real guard, and its violation maps to
// ErrRunAlreadyActive like any other lost race. processed carries the
// checkpoint when resuming a rate-limited run.
func (r *BulkRunRepository) Claim(run *models.BulkRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.Status = models.BulkRunning
	query := `INSERT INTO bulk_runs (id, status, total, processed, skipped, failed, rate_limited_providers, started_at)
		SELECT $1, 'running', $2, $3, $4, $5, $6, CURRENT_TIMESTAMP
		WHERE NOT EXISTS (SELECT 1 FROM bulk_runs WHERE status = 'running')
		RETURNING started_at`
	err := r.db.QueryRow(query, run.ID, run.Total, run.Processed, run.Skipped, run.Failed,
		pq.Array(run.RateLimitedProviders)).Scan(&run.StartedAt)
	if err == sql.ErrNoRows || isUniqueViolation(err) {
		return models.ErrRunAlreadyActive
	}
	return err
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, raised by the single-running index when a claim loses the race.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Update persists the run's progress. Called after every target so a crash
// loses at most the one in-flight target.
func (r *BulkRunRepository) Update(run *models.BulkRun) error {
	query := `UPDATE bulk_runs
		SET status = $2, total = $3, processed = $4, skipped = $5, failed = $6,
		    current_target = $7, rate_limited_providers = $8, finished_at = $9
		WHERE id = $1`
	_, err := r.db.Exec(query, run.ID, run.Status, run.Total, run.Processed, run.Skipped,
		run.Failed, run.CurrentTarget, pq.Array(run.RateLimitedProviders), run.FinishedAt)
	return err
}

// Latest returns the most recent run, or nil when none exists yet.
func (r *BulkRunRepository) Latest() (*models.BulkRun, error) {
	run := &models.BulkRun{}
	query := `SELECT id, status, total, processed, skipped, failed, current_target,
		rate_limited_providers, started_at, finished_at
		FROM bulk_runs ORDER BY started_at DESC LIMIT 1`
	err := r.db.QueryRow(query).Scan(&run.ID, &run.Status, &run.Total, &run.Processed,
		&run.Skipped, &run.Failed, &run.CurrentTarget,
		pq.Array(&run.RateLimitedProviders), &run.StartedAt, &run.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ReleaseStale marks any running run as failed. Called at startup so a
// crashed process cannot leave the single-run slot held forever.
func (r *BulkRunRepository) ReleaseStale() (int64, error) {
	res, err := r.db.Exec(`UPDATE bulk_runs
		SET status = 'failed', finished_at = CURRENT_TIMESTAMP
		WHERE status = 'running'`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
