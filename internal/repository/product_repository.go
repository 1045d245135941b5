package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/printfleet/printfleet-api/internal/models"
)

// ProductRepository reads products and their plate presets.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository constructs repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListWithPresets loads every product keyed by id, presets attached in their
// configured order.
func (r *ProductRepository) ListWithPresets(ctx context.Context) (map[string]models.Product, error) {
	const productQuery = `SELECT id, name, is_default, created_at, updated_at FROM products ORDER BY id`
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, productQuery); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	const presetQuery = `SELECT id, product_id, name, units_per_plate, cycle_hours, grams_per_unit,
risk_level, is_recommended, allowed_for_night_cycle, position
FROM plate_presets ORDER BY product_id, position, id`
	var presets []models.PlatePreset
	if err := r.db.SelectContext(ctx, &presets, presetQuery); err != nil {
		return nil, fmt.Errorf("list plate presets: %w", err)
	}

	byProduct := make(map[string][]models.PlatePreset, len(products))
	for _, preset := range presets {
		byProduct[preset.ProductID] = append(byProduct[preset.ProductID], preset)
	}

	result := make(map[string]models.Product, len(products))
	for _, product := range products {
		product.Presets = byProduct[product.ID]
		result[product.ID] = product
	}
	return result, nil
}
