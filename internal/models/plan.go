package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// PlanStatus tracks a stored plan version.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "DRAFT"
	PlanStatusPublished PlanStatus = "PUBLISHED"
)

// Plan is a persisted, versioned planning run. Meta carries the run summary
// (warnings, blocking issues, horizon) as stored JSON.
type Plan struct {
	ID          string         `db:"id" json:"id"`
	Version     int            `db:"version" json:"version"`
	Status      PlanStatus     `db:"status" json:"status"`
	Meta        types.JSONText `db:"meta" json:"meta,omitempty"`
	GeneratedAt time.Time      `db:"generated_at" json:"generated_at"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// WarningKind classifies degraded-but-producible planning outcomes.
type WarningKind string

const (
	WarningMaterialLow     WarningKind = "material_low"
	WarningDeadlineRisk    WarningKind = "deadline_risk"
	WarningCapacityUnused  WarningKind = "capacity_unused"
	WarningPrinterOverload WarningKind = "printer_overload"
	WarningSearchCapped    WarningKind = "search_capped"
)

// PlanningWarning flags a soft issue discovered during planning.
type PlanningWarning struct {
	Kind      WarningKind `json:"kind"`
	ProjectID string      `json:"project_id,omitempty"`
	PrinterID string      `json:"printer_id,omitempty"`
	Color     string      `json:"color,omitempty"`
	Message   string      `json:"message"`
}

// BlockingKind classifies failures that make the plan materially incomplete.
type BlockingKind string

const (
	BlockingNoPrinters           BlockingKind = "no_printers"
	BlockingNoSettings           BlockingKind = "no_settings"
	BlockingDeadlineImpossible   BlockingKind = "deadline_impossible"
	BlockingInsufficientMaterial BlockingKind = "insufficient_material"
)

// BlockingIssue reports a hard planning failure.
type BlockingIssue struct {
	Kind      BlockingKind `json:"kind"`
	ProjectID string       `json:"project_id,omitempty"`
	Message   string       `json:"message"`
}

// BlockReason is the closed enum of diagnostic block-event reasons.
type BlockReason string

const (
	BlockPlatesLimit          BlockReason = "plates_limit"
	BlockMaterialInsufficient BlockReason = "material_insufficient"
	BlockSpoolParallelLimit   BlockReason = "spool_parallel_limit"
	BlockAfterHoursPolicy     BlockReason = "after_hours_policy"
	BlockNoNightPreset        BlockReason = "no_night_preset"
	BlockPrinterInactive      BlockReason = "printer_inactive"
	BlockNoMatchingPreset     BlockReason = "no_matching_preset"
	BlockDeadlinePassed       BlockReason = "deadline_passed"
	BlockProjectComplete      BlockReason = "project_complete"
	BlockColorLockNight       BlockReason = "color_lock_night"
	BlockNoPhysicalColorNight BlockReason = "no_physical_color_night"
	BlockCycleTooLongNight    BlockReason = "cycle_too_long_night"
)

// BlockEvent is one append-only diagnostic record explaining why a candidate
// cycle was not placed. Purely advisory; the planner never reads these back.
type BlockEvent struct {
	Reason    BlockReason `json:"reason"`
	ProjectID string      `json:"project_id,omitempty"`
	PrinterID string      `json:"printer_id,omitempty"`
	PresetID  string      `json:"preset_id,omitempty"`
	Detail    string      `json:"detail"`
	At        time.Time   `json:"at"`
}

// PrinterDayPlan groups one printer's cycles for one day.
type PrinterDayPlan struct {
	PrinterID string         `json:"printer_id"`
	Cycles    []PlannedCycle `json:"cycles"`
}

// DayPlan aggregates one planning day.
type DayPlan struct {
	Date                time.Time        `json:"date"`
	Printers            []PrinterDayPlan `json:"printers"`
	UnitsPlanned        int              `json:"units_planned"`
	CyclesPlanned       int              `json:"cycles_planned"`
	UnusedCapacityHours float64          `json:"unused_capacity_hours"`
}

// PlanningResult is the planner's complete output for one run.
type PlanningResult struct {
	Success        bool              `json:"success"`
	Days           []DayPlan         `json:"days"`
	Cycles         []PlannedCycle    `json:"cycles"`
	Warnings       []PlanningWarning `json:"warnings"`
	BlockingIssues []BlockingIssue   `json:"blocking_issues"`
	BlockEvents    []BlockEvent      `json:"block_events,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at"`
}
