package models

import "time"

// ColorStock is the material ledger's snapshot for one color: grams usable
// within the planning horizon and the number of physical spools that can feed
// printers at the same time.
type ColorStock struct {
	Color          string    `db:"color" json:"color"`
	AvailableGrams float64   `db:"available_grams" json:"available_grams"`
	ReservedGrams  float64   `db:"reserved_grams" json:"reserved_grams"`
	SpoolCount     int       `db:"spool_count" json:"spool_count"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
