package planner

import (
	"time"

	"go.uber.org/zap"

	"github.com/printfleet/printfleet-api/internal/models"
)

// Config tunes the planning engine. Zero values fall back to safe defaults.
type Config struct {
	HorizonDays          int
	MaxSimulationDays    int
	MaxIterations        int
	PlateCleanupDelay    time.Duration
	GlobalPlateInventory int
}

func (c Config) withDefaults() Config {
	if c.HorizonDays <= 0 {
		c.HorizonDays = 14
	}
	if c.MaxSimulationDays <= 0 {
		c.MaxSimulationDays = 30
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 20000
	}
	if c.PlateCleanupDelay <= 0 {
		c.PlateCleanupDelay = 30 * time.Minute
	}
	if c.GlobalPlateInventory <= 0 {
		c.GlobalPlateInventory = 50
	}
	return c
}

// Snapshot is the immutable input of one planning run. Everything is read
// once before the run starts; the planner mutates only local working copies.
type Snapshot struct {
	Now       time.Time
	Settings  models.FactorySettings
	Printers  []models.Printer
	Projects  []models.Project
	Products  map[string]models.Product
	Committed []models.PlannedCycle
	Stocks    []models.ColorStock

	// Ledger overrides the stock-derived ledger when set.
	Ledger MaterialLedger
}

func (s Snapshot) ledger() MaterialLedger {
	if s.Ledger != nil {
		return s.Ledger
	}
	return NewStockLedger(s.Stocks)
}

func (s Snapshot) spoolCounts() map[string]int {
	counts := make(map[string]int, len(s.Stocks))
	for _, stock := range s.Stocks {
		counts[stock.Color] = stock.SpoolCount
	}
	return counts
}

// Planner is the deterministic production planning engine. It is
// single-threaded: one Plan call performs one pass of ordered state mutation
// and returns a complete result; nothing is published until the caller
// persists it as a unit.
type Planner struct {
	cfg      Config
	logger   *zap.Logger
	recorder BlockRecorder
}

// New builds a planner. A nil logger or recorder falls back to no-ops.
func New(cfg Config, logger *zap.Logger, recorder BlockRecorder) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Planner{cfg: cfg.withDefaults(), logger: logger, recorder: recorder}
}
