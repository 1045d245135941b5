package models

import "time"

// PlateType classifies how full a scheduled plate is.
type PlateType string

const (
	PlateFull     PlateType = "full"
	PlateReduced  PlateType = "reduced"
	PlateCloseout PlateType = "closeout"
)

// Shift marks whether a cycle starts inside or at the edge of work hours.
type Shift string

const (
	ShiftDay      Shift = "day"
	ShiftEndOfDay Shift = "end_of_day"
)

// ReadinessState describes whether a planned cycle can start as scheduled.
type ReadinessState string

const (
	ReadinessReady            ReadinessState = "ready"
	ReadinessWaitingForSpool  ReadinessState = "waiting_for_spool"
	ReadinessBlockedInventory ReadinessState = "blocked_inventory"
	ReadinessWaitingForPlate  ReadinessState = "waiting_for_plate_reload"
)

// CycleStatus tracks a cycle through its lifecycle. Cycles whose status is
// in_progress, completed or locked are immovable facts the planner schedules
// around.
type CycleStatus string

const (
	CycleStatusPlanned    CycleStatus = "planned"
	CycleStatusInProgress CycleStatus = "in_progress"
	CycleStatusCompleted  CycleStatus = "completed"
	CycleStatusLocked     CycleStatus = "locked"
)

// PlannedCycle is one print run of one project on one printer.
type PlannedCycle struct {
	ID               string         `db:"id" json:"id"`
	PlanID           string         `db:"plan_id" json:"plan_id,omitempty"`
	ProjectID        string         `db:"project_id" json:"project_id"`
	PrinterID        string         `db:"printer_id" json:"printer_id"`
	PresetID         string         `db:"preset_id" json:"preset_id"`
	UnitsPlanned     int            `db:"units_planned" json:"units_planned"`
	GramsPlanned     float64        `db:"grams_planned" json:"grams_planned"`
	StartTime        time.Time      `db:"start_time" json:"start_time"`
	EndTime          time.Time      `db:"end_time" json:"end_time"`
	PlateType        PlateType      `db:"plate_type" json:"plate_type"`
	Shift            Shift          `db:"shift" json:"shift"`
	Readiness        ReadinessState `db:"readiness" json:"readiness"`
	RequiredColor    string         `db:"required_color" json:"required_color"`
	RequiredGrams    float64        `db:"required_grams" json:"required_grams"`
	PlateIndex       int            `db:"plate_index" json:"plate_index"`
	PlateReleaseTime time.Time      `db:"plate_release_time" json:"plate_release_time"`
	Status           CycleStatus    `db:"status" json:"status"`
}

// Immovable reports whether the cycle must be planned around rather than
// rescheduled.
func (c PlannedCycle) Immovable() bool {
	switch c.Status {
	case CycleStatusInProgress, CycleStatusCompleted, CycleStatusLocked:
		return true
	}
	return false
}
