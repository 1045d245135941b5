package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/printfleet/printfleet-api/internal/models"
)

type factorySettingsRow struct {
	ID        int            `db:"id"`
	Data      types.JSONText `db:"data"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// SettingsRepository reads and writes the factory operating-hours policy,
// stored as a single JSON row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get loads the factory settings. sql.ErrNoRows surfaces unchanged so callers
// can treat an unconfigured factory explicitly.
func (r *SettingsRepository) Get(ctx context.Context) (*models.FactorySettings, error) {
	const query = `SELECT id, data, updated_at FROM factory_settings WHERE id = 1`
	var row factorySettingsRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, err
	}
	var settings models.FactorySettings
	if err := json.Unmarshal(row.Data, &settings); err != nil {
		return nil, fmt.Errorf("decode factory settings: %w", err)
	}
	return &settings, nil
}

// Save upserts the single factory settings row.
func (r *SettingsRepository) Save(ctx context.Context, settings models.FactorySettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode factory settings: %w", err)
	}
	const query = `
INSERT INTO factory_settings (id, data, updated_at) VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, types.JSONText(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("save factory settings: %w", err)
	}
	return nil
}
