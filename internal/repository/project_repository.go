package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/printfleet/printfleet-api/internal/models"
)

// ProjectRepository reads production orders.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// ListForPlanning returns the projects flagged for planning, earliest due
// date first.
func (r *ProjectRepository) ListForPlanning(ctx context.Context) ([]models.Project, error) {
	const query = `SELECT id, name, product_id, color, due_date, quantity_target, quantity_good,
preferred_preset_id, custom_cycle_hours, urgency, include_in_planning, created_at, updated_at
FROM projects WHERE include_in_planning = TRUE ORDER BY due_date, id`
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("list plannable projects: %w", err)
	}
	return projects, nil
}
