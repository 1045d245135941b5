package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/printfleet/printfleet-api/internal/models"
)

const cycleColumns = `id, plan_id, project_id, printer_id, preset_id, units_planned, grams_planned,
start_time, end_time, plate_type, shift, readiness, required_color, required_grams,
plate_index, plate_release_time, status`

// CycleRepository persists planned print cycles.
type CycleRepository struct {
	db *sqlx.DB
}

// NewCycleRepository constructs repository.
func NewCycleRepository(db *sqlx.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// ListCommitted returns the cycles the planner must schedule around: cycles
// that already started, are locked, or belong to the currently published plan,
// and that still overlap the window starting at from.
func (r *CycleRepository) ListCommitted(ctx context.Context, from time.Time) ([]models.PlannedCycle, error) {
	query := fmt.Sprintf(`SELECT %s FROM planned_cycles
WHERE end_time >= $1
  AND (status IN ('in_progress', 'completed', 'locked')
       OR plan_id IN (SELECT id FROM plans WHERE status = 'PUBLISHED'))
ORDER BY start_time, printer_id, id`, cycleColumns)

	var cycles []models.PlannedCycle
	if err := r.db.SelectContext(ctx, &cycles, query, from); err != nil {
		return nil, fmt.Errorf("list committed cycles: %w", err)
	}
	return cycles, nil
}

// ListByPlan returns every cycle of a stored plan in schedule order.
func (r *CycleRepository) ListByPlan(ctx context.Context, planID string) ([]models.PlannedCycle, error) {
	query := fmt.Sprintf(`SELECT %s FROM planned_cycles WHERE plan_id = $1 ORDER BY start_time, printer_id, id`, cycleColumns)
	var cycles []models.PlannedCycle
	if err := r.db.SelectContext(ctx, &cycles, query, planID); err != nil {
		return nil, fmt.Errorf("list plan cycles: %w", err)
	}
	return cycles, nil
}

// BulkCreateWithTx inserts the generated cycles under a plan inside the
// caller's transaction.
func (r *CycleRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, planID string, cycles []models.PlannedCycle) error {
	if len(cycles) == 0 {
		return nil
	}
	const query = `
INSERT INTO planned_cycles (id, plan_id, project_id, printer_id, preset_id, units_planned, grams_planned,
	start_time, end_time, plate_type, shift, readiness, required_color, required_grams,
	plate_index, plate_release_time, status)
VALUES (:id, :plan_id, :project_id, :printer_id, :preset_id, :units_planned, :grams_planned,
	:start_time, :end_time, :plate_type, :shift, :readiness, :required_color, :required_grams,
	:plate_index, :plate_release_time, :status)`

	rows := make([]models.PlannedCycle, len(cycles))
	copy(rows, cycles)
	for i := range rows {
		rows[i].PlanID = planID
		if rows[i].Status == "" {
			rows[i].Status = models.CycleStatusPlanned
		}
	}
	if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("bulk insert planned cycles: %w", err)
	}
	return nil
}

// DeleteByPlan removes all cycles belonging to a plan inside the caller's
// transaction.
func (r *CycleRepository) DeleteByPlan(ctx context.Context, tx *sqlx.Tx, planID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM planned_cycles WHERE plan_id = $1`, planID); err != nil {
		return fmt.Errorf("delete plan cycles: %w", err)
	}
	return nil
}
