package models

import "time"

// ProjectUrgency classifies how aggressively a project's deadline is chased.
type ProjectUrgency string

const (
	UrgencyNormal   ProjectUrgency = "normal"
	UrgencyUrgent   ProjectUrgency = "urgent"
	UrgencyCritical ProjectUrgency = "critical"
)

// Project is a production order for a quantity of one product in one color.
type Project struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	ProductID         string         `db:"product_id" json:"product_id"`
	Color             string         `db:"color" json:"color"`
	DueDate           time.Time      `db:"due_date" json:"due_date"`
	QuantityTarget    int            `db:"quantity_target" json:"quantity_target"`
	QuantityGood      int            `db:"quantity_good" json:"quantity_good"`
	PreferredPresetID *string        `db:"preferred_preset_id" json:"preferred_preset_id,omitempty"`
	CustomCycleHours  *float64       `db:"custom_cycle_hours" json:"custom_cycle_hours,omitempty"`
	Urgency           ProjectUrgency `db:"urgency" json:"urgency"`
	IncludeInPlanning bool           `db:"include_in_planning" json:"include_in_planning"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}
