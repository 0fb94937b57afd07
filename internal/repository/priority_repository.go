package repository

import (
	"database/sql"
	"fmt"

	"github.com/enricharr/enricharr/internal/aggregator"
	"github.com/enricharr/enricharr/internal/models"
)

type PriorityRepository struct {
	db *sql.DB
}

func NewPriorityRepository(db *sql.DB) *PriorityRepository {
	return &PriorityRepository{db: db}
}

// Orders loads the full priority-order snapshot, one ordered provider list
// per capability. Satisfies aggregator.OrderSource.
func (r *PriorityRepository) Orders() (aggregator.PriorityOrders, error) {
	rows, err := r.db.Query(`SELECT capability, provider
		FROM priority_orders ORDER BY capability, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make(aggregator.PriorityOrders)
	for rows.Next() {
		var capability models.Capability
		var provider string
		if err := rows.Scan(&capability, &provider); err != nil {
			return nil, err
		}
		orders[capability] = append(orders[capability], provider)
	}
	return orders, rows.Err()
}

// GetOrder returns one capability's ordered provider list.
func (r *PriorityRepository) GetOrder(capability models.Capability) ([]string, error) {
	rows, err := r.db.Query(`SELECT provider FROM priority_orders
		WHERE capability = $1 ORDER BY position`, capability)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var order []string
	for rows.Next() {
		var provider string
		if err := rows.Scan(&provider); err != nil {
			return nil, err
		}
		order = append(order, provider)
	}
	return order, rows.Err()
}

// Reorder replaces one capability's list in a single transaction: either
// the whole new order lands or nothing changes. Validation against the
// enabled supplier set happens before any write.
func (r *PriorityRepository) Reorder(capability models.Capability, newOrder, enabled []string) error {
	if err := aggregator.ValidateOrder(newOrder, enabled); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM priority_orders WHERE capability = $1`, capability); err != nil {
		return fmt.Errorf("clear order: %w", err)
	}
	for i, provider := range newOrder {
		if _, err := tx.Exec(`INSERT INTO priority_orders (capability, provider, position)
			VALUES ($1, $2, $3)`, capability, provider, i); err != nil {
			return fmt.Errorf("insert order row: %w", err)
		}
	}
	return tx.Commit()
}
