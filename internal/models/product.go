package models

import "time"

// RiskLevel grades the failure likelihood of running a preset.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PlatePreset describes one way to lay a product out on a build plate.
type PlatePreset struct {
	ID                   string    `db:"id" json:"id"`
	ProductID            string    `db:"product_id" json:"product_id"`
	Name                 string    `db:"name" json:"name"`
	UnitsPerPlate        int       `db:"units_per_plate" json:"units_per_plate"`
	CycleHours           float64   `db:"cycle_hours" json:"cycle_hours"`
	GramsPerUnit         float64   `db:"grams_per_unit" json:"grams_per_unit"`
	RiskLevel            RiskLevel `db:"risk_level" json:"risk_level"`
	IsRecommended        bool      `db:"is_recommended" json:"is_recommended"`
	AllowedForNightCycle bool      `db:"allowed_for_night_cycle" json:"allowed_for_night_cycle"`
	Position             int       `db:"position" json:"position"`
}

// Product owns an ordered set of plate presets.
type Product struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	IsDefault bool          `db:"is_default" json:"is_default"`
	Presets   []PlatePreset `db:"-" json:"presets"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// RecommendedPreset returns the preset flagged as recommended, falling back to
// the first preset. Nil when the product has no presets at all.
func (p *Product) RecommendedPreset() *PlatePreset {
	if p == nil || len(p.Presets) == 0 {
		return nil
	}
	for i := range p.Presets {
		if p.Presets[i].IsRecommended {
			return &p.Presets[i]
		}
	}
	return &p.Presets[0]
}

// PresetByID looks a preset up within the product.
func (p *Product) PresetByID(id string) *PlatePreset {
	if p == nil {
		return nil
	}
	for i := range p.Presets {
		if p.Presets[i].ID == id {
			return &p.Presets[i]
		}
	}
	return nil
}
