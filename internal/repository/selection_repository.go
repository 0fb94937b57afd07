package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/models"
)

type SelectionRepository struct {
	db *sql.DB
}

func NewSelectionRepository(db *sql.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Commit writes the selection. The lock check and the write are one
// statement, so a concurrent lock toggle cannot slip between them; a locked
// row without override affects no rows and returns ErrLockedConflict.
func (r *SelectionRepository) Commit(ctx context.Context, sel *models.SelectionState, override bool) (*models.SelectionState, error) {
	query := `INSERT INTO selection_states (target_id, capability, provider, url, value, locked, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, CURRENT_TIMESTAMP)
		ON CONFLICT (target_id, capability) DO UPDATE
		SET provider = $3, url = $4, value = $5, updated_at = CURRENT_TIMESTAMP
		WHERE selection_states.locked = FALSE OR $6
		RETURNING target_id, capability, provider, url, value, locked, updated_at`
	out := &models.SelectionState{}
	err := r.db.QueryRowContext(ctx, query, sel.TargetID, sel.Capability, sel.Provider, sel.URL, sel.Value, override).
		Scan(&out.TargetID, &out.Capability, &out.Provider, &out.URL, &out.Value, &out.Locked, &out.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrLockedConflict
	}
	return out, err
}

// SetLock flips the sticky lock flag, creating an empty selection row if
// none exists yet so a lock can precede the first commit.
func (r *SelectionRepository) SetLock(ctx context.Context, targetID uuid.UUID, capability models.Capability, locked bool) (*models.SelectionState, error) {
	query := `INSERT INTO selection_states (target_id, capability, provider, url, value, locked, updated_at)
		VALUES ($1, $2, '', '', '', $3, CURRENT_TIMESTAMP)
		ON CONFLICT (target_id, capability) DO UPDATE
		SET locked = $3, updated_at = CURRENT_TIMESTAMP
		RETURNING target_id, capability, provider, url, value, locked, updated_at`
	out := &models.SelectionState{}
	err := r.db.QueryRowContext(ctx, query, targetID, capability, locked).
		Scan(&out.TargetID, &out.Capability, &out.Provider, &out.URL, &out.Value, &out.Locked, &out.UpdatedAt)
	return out, err
}

// ListForTarget returns all committed selections for a target.
func (r *SelectionRepository) ListForTarget(ctx context.Context, targetID uuid.UUID) ([]*models.SelectionState, error) {
	query := `SELECT target_id, capability, provider, url, value, locked, updated_at
		FROM selection_states WHERE target_id = $1 ORDER BY capability`
	rows, err := r.db.QueryContext(ctx, query, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sels []*models.SelectionState
	for rows.Next() {
		sel := &models.SelectionState{}
		if err := rows.Scan(&sel.TargetID, &sel.Capability, &sel.Provider, &sel.URL, &sel.Value, &sel.Locked, &sel.UpdatedAt); err != nil {
			return nil, err
		}
		sels = append(sels, sel)
	}
	return sels, rows.Err()
}
