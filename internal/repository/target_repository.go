package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/models"
)

type TargetRepository struct {
	db *sql.DB
}

func NewTargetRepository(db *sql.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

func (r *TargetRepository) Create(t *models.Target) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query := `INSERT INTO targets (id, title, year, tmdb_id, imdb_id, tvdb_id)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING added_at`
	return r.db.QueryRow(query, t.ID, t.Title, t.Year, t.TMDBID, t.IMDBId, t.TVDBID).
		Scan(&t.AddedAt)
}

func (r *TargetRepository) GetByID(id uuid.UUID) (*models.Target, error) {
	t := &models.Target{}
	query := `SELECT id, title, year, tmdb_id, imdb_id, tvdb_id, added_at
		FROM targets WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(&t.ID, &t.Title, &t.Year, &t.TMDBID, &t.IMDBId, &t.TVDBID, &t.AddedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("target %s: %w", id, models.ErrNotFound)
	}
	return t, err
}

func (r *TargetRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM targets`).Scan(&n)
	return n, err
}

// ListBatch returns targets in the library's stable walk order (added_at,
// then id), skipping the first offset rows. The bulk scheduler resumes from
// its checkpoint by passing processed as offset.
func (r *TargetRepository) ListBatch(offset, limit int) ([]*models.Target, error) {
	query := `SELECT id, title, year, tmdb_id, imdb_id, tvdb_id, added_at
		FROM targets ORDER BY added_at, id OFFSET $1 LIMIT $2`
	rows, err := r.db.Query(query, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*models.Target
	for rows.Next() {
		t := &models.Target{}
		if err := rows.Scan(&t.ID, &t.Title, &t.Year, &t.TMDBID, &t.IMDBId, &t.TVDBID, &t.AddedAt); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}
