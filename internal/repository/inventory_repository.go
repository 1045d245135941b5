package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/printfleet/printfleet-api/internal/models"
)

// InventoryRepository reads the material ledger snapshot.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository constructs repository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// ListStocks returns per-color grams and physical spool counts.
func (r *InventoryRepository) ListStocks(ctx context.Context) ([]models.ColorStock, error) {
	const query = `SELECT color, available_grams, reserved_grams, spool_count, updated_at
FROM color_stocks ORDER BY color`
	var stocks []models.ColorStock
	if err := r.db.SelectContext(ctx, &stocks, query); err != nil {
		return nil, fmt.Errorf("list color stocks: %w", err)
	}
	return stocks, nil
}
