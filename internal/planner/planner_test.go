package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/printfleet/printfleet-api/internal/models"
)

// Monday 2026-03-02 at factory opening.
var plannerNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func weekdaySettings(afterHours models.AfterHoursBehavior) models.FactorySettings {
	return models.FactorySettings{
		Week:              models.DefaultWeek(),
		AfterHours:        afterHours,
		TransitionMinutes: 15,
	}
}

func quickPreset(id string, units int, hours float64, night bool) models.PlatePreset {
	return models.PlatePreset{
		ID:                   id,
		UnitsPerPlate:        units,
		CycleHours:           hours,
		GramsPerUnit:         10,
		RiskLevel:            models.RiskLow,
		IsRecommended:        true,
		AllowedForNightCycle: night,
	}
}

func newTestPlanner() *Planner {
	return New(Config{}, zap.NewNop(), nil)
}

func TestPlanFillsSingleProjectWithinWorkHours(t *testing.T) {
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursNone),
		Printers: []models.Printer{{ID: "pr-1", Active: true, MountedColor: "black"}},
		Projects: []models.Project{{
			ID: "pj-1", ProductID: "prod-1", Color: "black",
			QuantityTarget: 8, DueDate: time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC),
			Urgency: models.UrgencyNormal, IncludeInPlanning: true,
		}},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 3, false)}},
		},
		Stocks: []models.ColorStock{{Color: "black", AvailableGrams: 5000, SpoolCount: 2}},
	}

	result := newTestPlanner().Plan(snap)

	require.True(t, result.Success)
	require.Len(t, result.Cycles, 2)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.BlockingIssues)
	assert.Equal(t, plannerNow, result.GeneratedAt)

	first, second := result.Cycles[0], result.Cycles[1]
	assert.Equal(t, plannerNow, first.StartTime)
	assert.Equal(t, plannerNow.Add(3*time.Hour), first.EndTime)
	assert.Equal(t, first.EndTime.Add(30*time.Minute), first.PlateReleaseTime)
	assert.Equal(t, models.ReadinessReady, first.Readiness)
	assert.Equal(t, models.ShiftDay, first.Shift)
	assert.Equal(t, 5, first.UnitsPlanned)
	assert.Equal(t, 50.0, first.GramsPlanned)
	assert.Equal(t, models.PlateFull, first.PlateType)

	// Next cycle starts after the transition gap, never overlapping, and
	// closes the project out with a partial plate.
	assert.Equal(t, first.EndTime.Add(15*time.Minute), second.StartTime)
	assert.Equal(t, 3, second.UnitsPlanned)
	assert.Equal(t, models.PlateCloseout, second.PlateType)
}

func TestPlanReportsMissingSettings(t *testing.T) {
	result := newTestPlanner().Plan(Snapshot{Now: plannerNow, Settings: models.FactorySettings{}})

	require.False(t, result.Success)
	require.Len(t, result.BlockingIssues, 1)
	assert.Equal(t, models.BlockingNoSettings, result.BlockingIssues[0].Kind)
	assert.Empty(t, result.Cycles)
}

func TestPlanReportsNoActivePrinters(t *testing.T) {
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursNone),
		Printers: []models.Printer{{ID: "pr-1", Active: false}},
	}

	result := newTestPlanner().Plan(snap)

	require.False(t, result.Success)
	require.Len(t, result.BlockingIssues, 1)
	assert.Equal(t, models.BlockingNoPrinters, result.BlockingIssues[0].Kind)
	require.NotEmpty(t, result.BlockEvents)
	assert.Equal(t, models.BlockPrinterInactive, result.BlockEvents[0].Reason)
	assert.Equal(t, "pr-1", result.BlockEvents[0].PrinterID)
}

func TestPlanStopsAtRegularCloseWithoutAutomation(t *testing.T) {
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursNone),
		Printers: []models.Printer{{ID: "pr-1", Active: true, MountedColor: "black"}},
		Projects: []models.Project{{
			ID: "pj-1", ProductID: "prod-1", Color: "black",
			QuantityTarget: 30, DueDate: time.Date(2026, 3, 13, 17, 0, 0, 0, time.UTC),
			Urgency: models.UrgencyNormal, IncludeInPlanning: true,
		}},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 3, true)}},
		},
		Stocks: []models.ColorStock{{Color: "black", AvailableGrams: 5000, SpoolCount: 2}},
	}

	result := newTestPlanner().Plan(snap)

	require.True(t, result.Success)
	require.Len(t, result.Cycles, 6)
	for _, cycle := range result.Cycles {
		start, end, ok := snap.Settings.DayBounds(cycle.StartTime)
		require.True(t, ok)
		assert.False(t, cycle.StartTime.Before(start), "cycle %s starts before opening", cycle.ID)
		assert.False(t, cycle.EndTime.After(end), "cycle %s runs past close", cycle.ID)
		assert.Equal(t, models.ShiftDay, cycle.Shift)
	}
	// Two cycles fit per day, so 30 units take three working days.
	assert.Equal(t, time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC), result.Cycles[4].StartTime)
}

func TestPlanRunsThroughNightUnderFullAutomation(t *testing.T) {
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursFullAutomation),
		Printers: []models.Printer{{
			ID: "pr-1", Active: true, MountedColor: "black",
			HasAMS: true, CanStartAfterHours: true,
		}},
		Projects: []models.Project{{
			ID: "pj-1", ProductID: "prod-1", Color: "black",
			QuantityTarget: 20, DueDate: time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC),
			Urgency: models.UrgencyNormal, IncludeInPlanning: true,
		}},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 3, true)}},
		},
		Stocks: []models.ColorStock{{Color: "black", AvailableGrams: 5000, SpoolCount: 2}},
	}

	result := newTestPlanner().Plan(snap)

	require.True(t, result.Success)
	require.Len(t, result.Cycles, 4)
	// All 20 units land on Monday: the fourth cycle starts after regular close.
	last := result.Cycles[3]
	assert.Equal(t, time.Date(2026, 3, 2, 17, 45, 0, 0, time.UTC), last.StartTime)
	assert.Equal(t, models.ShiftEndOfDay, last.Shift)
	assert.Equal(t, models.ShiftDay, result.Cycles[2].Shift)
}

func TestPlanParksUnknownColorPrinterAtNight(t *testing.T) {
	eveningNow := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Now:      eveningNow,
		Settings: weekdaySettings(models.AfterHoursFullAutomation),
		Printers: []models.Printer{{
			ID: "pr-1", Active: true, CanStartAfterHours: true,
		}},
		Projects: []models.Project{{
			ID: "pj-1", ProductID: "prod-1", Color: "black",
			QuantityTarget: 5, DueDate: time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC),
			Urgency: models.UrgencyNormal, IncludeInPlanning: true,
		}},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 3, true)}},
		},
		Stocks: []models.ColorStock{{Color: "black", AvailableGrams: 5000, SpoolCount: 2}},
	}

	result := newTestPlanner().Plan(snap)

	require.True(t, result.Success)
	require.Len(t, result.Cycles, 1)
	// Nobody can confirm the mounted color, so the printer sits out the night
	// and the cycle starts at the next opening.
	cycle := result.Cycles[0]
	assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), cycle.StartTime)
	assert.Equal(t, models.ReadinessWaitingForSpool, cycle.Readiness)

	// The printer is parked once for the whole window, not re-tried per pop.
	parked := 0
	for _, event := range result.BlockEvents {
		if event.Reason == models.BlockNoPhysicalColorNight {
			parked++
		}
	}
	assert.Equal(t, 1, parked)
}

func TestPlanDowngradesNightCyclesBeyondPlatePool(t *testing.T) {
	eveningNow := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Now:      eveningNow,
		Settings: weekdaySettings(models.AfterHoursFullAutomation),
		Printers: []models.Printer{{
			ID: "pr-1", Active: true, MountedColor: "black",
			CanStartAfterHours: true, PhysicalPlateCapacity: 2,
		}},
		Projects: []models.Project{
			{ID: "pj-a", ProductID: "prod-1", Color: "black", QuantityTarget: 15,
				DueDate: time.Date(2026, 3, 3, 17, 0, 0, 0, time.UTC),
				Urgency: models.UrgencyNormal, IncludeInPlanning: true},
			{ID: "pj-b", ProductID: "prod-1", Color: "black", QuantityTarget: 15,
				DueDate: time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC),
				Urgency: models.UrgencyNormal, IncludeInPlanning: true},
		},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 3, true)}},
		},
		Stocks: []models.ColorStock{{Color: "black", AvailableGrams: 5000, SpoolCount: 2}},
	}

	result := newTestPlanner().Plan(snap)

	require.True(t, result.Success)
	require.Len(t, result.Cycles, 6)

	// The night chain keeps running back to back: two pre-loaded plates start
	// ready, everything after them waits for an operator to reload.
	assert.Equal(t, eveningNow, result.Cycles[0].StartTime)
	assert.Equal(t, eveningNow.Add(3*time.Hour+15*time.Minute), result.Cycles[1].StartTime)
	assert.Equal(t, models.ReadinessReady, result.Cycles[0].Readiness)
	assert.Equal(t, models.ReadinessReady, result.Cycles[1].Readiness)
	assert.Equal(t, models.ReadinessWaitingForPlate, result.Cycles[2].Readiness)
	assert.Equal(t, models.ReadinessWaitingForPlate, result.Cycles[3].Readiness)

	// Tuesday's daytime cycles are reloaded by the operator and run ready.
	assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), result.Cycles[4].StartTime)
	assert.Equal(t, models.ReadinessReady, result.Cycles[4].Readiness)
	assert.Equal(t, models.ReadinessReady, result.Cycles[5].Readiness)

	downgrades := 0
	for _, event := range result.BlockEvents {
		if event.Reason == models.BlockPlatesLimit {
			downgrades++
		}
	}
	assert.Equal(t, 2, downgrades)
}

func TestPlanUsesMorningBeforeCommittedCycle(t *testing.T) {
	locked := models.PlannedCycle{
		ID: "afternoon", ProjectID: "pj-0", PrinterID: "pr-1", RequiredColor: "black",
		StartTime:        time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
		EndTime:          time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		PlateReleaseTime: time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC),
		Status:           models.CycleStatusLocked,
		UnitsPlanned:     5,
	}
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursNone),
		Printers: []models.Printer{{ID: "pr-1", Active: true, MountedColor: "black", PhysicalPlateCapacity: 3}},
		Projects: []models.Project{{
			ID: "pj-1", ProductID: "prod-1", Color: "black",
			QuantityTarget: 15, DueDate: time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC),
			Urgency: models.UrgencyNormal, IncludeInPlanning: true,
		}},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 1.5, false)}},
		},
		Committed: []models.PlannedCycle{locked},
		Stocks:    []models.ColorStock{{Color: "black", AvailableGrams: 5000, SpoolCount: 2}},
	}

	result := newTestPlanner().Plan(snap)

	require.True(t, result.Success)
	require.Len(t, result.Cycles, 3)
	// The free morning before the committed afternoon cycle is used; only the
	// cycle that would collide with it is pushed past it.
	assert.Equal(t, plannerNow, result.Cycles[0].StartTime)
	assert.Equal(t, plannerNow.Add(time.Hour+45*time.Minute), result.Cycles[1].StartTime)
	assert.Equal(t, locked.EndTime.Add(15*time.Minute), result.Cycles[2].StartTime)
}

func TestPlanFlagsInsufficientMaterial(t *testing.T) {
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursNone),
		Printers: []models.Printer{{ID: "pr-1", Active: true, MountedColor: "black"}},
		Projects: []models.Project{{
			ID: "pj-1", ProductID: "prod-1", Color: "black",
			QuantityTarget: 5, DueDate: time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC),
			Urgency: models.UrgencyNormal, IncludeInPlanning: true,
		}},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 3, false)}},
		},
		Stocks: []models.ColorStock{{Color: "black", AvailableGrams: 40, SpoolCount: 2}},
	}

	result := newTestPlanner().Plan(snap)

	// The cycle is still scheduled so the operator sees the work; it is just
	// marked blocked instead of ready.
	require.True(t, result.Success)
	require.Len(t, result.Cycles, 1)
	assert.Equal(t, models.ReadinessBlockedInventory, result.Cycles[0].Readiness)

	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, models.WarningMaterialLow, result.Warnings[0].Kind)
	assert.Equal(t, "black", result.Warnings[0].Color)

	found := false
	for _, event := range result.BlockEvents {
		if event.Reason == models.BlockMaterialInsufficient {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPlanFlagsImpossibleDeadline(t *testing.T) {
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursNone),
		Printers: []models.Printer{{ID: "pr-1", Active: true, MountedColor: "black"}},
		Projects: []models.Project{{
			ID: "pj-1", ProductID: "prod-1", Color: "black",
			QuantityTarget: 200, DueDate: time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC),
			Urgency: models.UrgencyNormal, IncludeInPlanning: true,
		}},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 3, false)}},
		},
		Stocks: []models.ColorStock{{Color: "black", AvailableGrams: 100000, SpoolCount: 2}},
	}

	result := newTestPlanner().Plan(snap)

	require.False(t, result.Success)
	require.NotEmpty(t, result.BlockingIssues)
	assert.Equal(t, models.BlockingDeadlineImpossible, result.BlockingIssues[0].Kind)
	assert.Equal(t, "pj-1", result.BlockingIssues[0].ProjectID)

	kinds := make(map[models.WarningKind]bool)
	for _, warning := range result.Warnings {
		kinds[warning.Kind] = true
	}
	assert.True(t, kinds[models.WarningDeadlineRisk])
	assert.True(t, kinds[models.WarningPrinterOverload])

	// Whatever could be planned is still returned.
	assert.NotEmpty(t, result.Cycles)
}

func TestPlanHonoursSpoolParallelLimit(t *testing.T) {
	due := time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursNone),
		Printers: []models.Printer{
			{ID: "pr-1", Active: true, MountedColor: "black"},
			{ID: "pr-2", Active: true, MountedColor: "black"},
		},
		Projects: []models.Project{
			{ID: "pj-a", ProductID: "prod-1", Color: "black", QuantityTarget: 10, DueDate: due,
				Urgency: models.UrgencyNormal, IncludeInPlanning: true},
			{ID: "pj-b", ProductID: "prod-1", Color: "black", QuantityTarget: 10, DueDate: due,
				Urgency: models.UrgencyNormal, IncludeInPlanning: true},
		},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 3, false)}},
		},
		Stocks: []models.ColorStock{{Color: "black", AvailableGrams: 5000, SpoolCount: 1}},
	}

	result := newTestPlanner().Plan(snap)

	require.True(t, result.Success)
	// A single black spool feeds at most one printer per calendar day.
	printersPerDay := make(map[string]map[string]bool)
	for _, cycle := range result.Cycles {
		key := cycle.StartTime.Format("2006-01-02")
		if printersPerDay[key] == nil {
			printersPerDay[key] = make(map[string]bool)
		}
		printersPerDay[key][cycle.PrinterID] = true
	}
	for day, printers := range printersPerDay {
		assert.LessOrEqual(t, len(printers), 1, "day %s uses too many printers for one spool", day)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursFullAutomation),
		Printers: []models.Printer{
			{ID: "pr-1", Active: true, MountedColor: "black", HasAMS: true, CanStartAfterHours: true},
			{ID: "pr-2", Active: true, MountedColor: "red"},
		},
		Projects: []models.Project{
			{ID: "pj-a", ProductID: "prod-1", Color: "black", QuantityTarget: 25,
				DueDate: time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC),
				Urgency: models.UrgencyUrgent, IncludeInPlanning: true},
			{ID: "pj-b", ProductID: "prod-1", Color: "red", QuantityTarget: 15,
				DueDate: time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC),
				Urgency: models.UrgencyNormal, IncludeInPlanning: true},
		},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{
				quickPreset("ps-1", 5, 3, true),
				{ID: "ps-2", UnitsPerPlate: 8, CycleHours: 6, GramsPerUnit: 10,
					RiskLevel: models.RiskMedium, AllowedForNightCycle: false},
			}},
		},
		Stocks: []models.ColorStock{
			{Color: "black", AvailableGrams: 5000, SpoolCount: 2},
			{Color: "red", AvailableGrams: 5000, SpoolCount: 1},
		},
	}

	planner := newTestPlanner()
	first := planner.Plan(snap)
	second := planner.Plan(snap)

	require.Equal(t, first, second)
}

func TestPlanSchedulesAroundCommittedCycles(t *testing.T) {
	locked := models.PlannedCycle{
		ID: "existing", ProjectID: "pj-0", PrinterID: "pr-1", RequiredColor: "black",
		StartTime:        plannerNow,
		EndTime:          plannerNow.Add(4 * time.Hour),
		PlateReleaseTime: plannerNow.Add(4*time.Hour + 30*time.Minute),
		Status:           models.CycleStatusLocked,
		UnitsPlanned:     5,
	}
	snap := Snapshot{
		Now:      plannerNow,
		Settings: weekdaySettings(models.AfterHoursNone),
		Printers: []models.Printer{{ID: "pr-1", Active: true, MountedColor: "black"}},
		Projects: []models.Project{{
			ID: "pj-1", ProductID: "prod-1", Color: "black",
			QuantityTarget: 5, DueDate: time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC),
			Urgency: models.UrgencyNormal, IncludeInPlanning: true,
		}},
		Products: map[string]models.Product{
			"prod-1": {ID: "prod-1", Presets: []models.PlatePreset{quickPreset("ps-1", 5, 3, false)}},
		},
		Committed: []models.PlannedCycle{locked},
		Stocks:    []models.ColorStock{{Color: "black", AvailableGrams: 5000, SpoolCount: 2}},
	}

	result := newTestPlanner().Plan(snap)

	require.True(t, result.Success)
	require.Len(t, result.Cycles, 1)
	// The new cycle waits for the locked one plus the transition gap.
	assert.Equal(t, locked.EndTime.Add(15*time.Minute), result.Cycles[0].StartTime)
}
