package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/printfleet/printfleet-api/internal/models"
)

// PrinterRepository reads the printer park.
type PrinterRepository struct {
	db *sqlx.DB
}

// NewPrinterRepository constructs repository.
func NewPrinterRepository(db *sqlx.DB) *PrinterRepository {
	return &PrinterRepository{db: db}
}

// List returns every printer in stable id order. The planner decides itself
// which ones participate.
func (r *PrinterRepository) List(ctx context.Context) ([]models.Printer, error) {
	const query = `SELECT id, name, has_ams, can_start_after_hours, physical_plate_capacity,
mounted_color, confirmed_spool_color, active, created_at, updated_at
FROM printers ORDER BY id`
	var printers []models.Printer
	if err := r.db.SelectContext(ctx, &printers, query); err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}
	return printers, nil
}
