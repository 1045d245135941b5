package models

import "time"

// DefaultPlateCapacity is the hardware plate pool size assumed when a printer
// row carries no explicit value.
const DefaultPlateCapacity = 8

// Printer represents a machine on the factory floor.
type Printer struct {
	ID                    string    `db:"id" json:"id"`
	Name                  string    `db:"name" json:"name"`
	HasAMS                bool      `db:"has_ams" json:"has_ams"`
	CanStartAfterHours    bool      `db:"can_start_after_hours" json:"can_start_after_hours"`
	PhysicalPlateCapacity int       `db:"physical_plate_capacity" json:"physical_plate_capacity"`
	MountedColor          string    `db:"mounted_color" json:"mounted_color"`
	ConfirmedSpoolColor   string    `db:"confirmed_spool_color" json:"confirmed_spool_color"`
	Active                bool      `db:"active" json:"active"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// PhysicalLockedColor resolves the material physically on the printer.
// The mounted color wins over the operator-confirmed spool color; empty means
// unknown.
func (p Printer) PhysicalLockedColor() string {
	if p.MountedColor != "" {
		return p.MountedColor
	}
	return p.ConfirmedSpoolColor
}

// PlateCapacity returns the effective hardware plate pool size.
func (p Printer) PlateCapacity() int {
	if p.PhysicalPlateCapacity > 0 {
		return p.PhysicalPlateCapacity
	}
	return DefaultPlateCapacity
}
