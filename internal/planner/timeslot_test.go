package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printfleet/printfleet-api/internal/models"
)

func slotFixture(t *testing.T, settings models.FactorySettings, printer models.Printer, obstacles []models.PlannedCycle) *printerSlot {
	t.Helper()
	slot, ok := newPrinterSlot(printer, settings, Config{}.withDefaults(), plannerNow, plannerNow, 0, obstacles)
	require.True(t, ok)
	return slot
}

func TestNewPrinterSlotRejectsNonWorkingDay(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC)
	_, ok := newPrinterSlot(models.Printer{ID: "pr-1"}, weekdaySettings(models.AfterHoursNone),
		Config{}.withDefaults(), saturday, saturday, 0, nil)
	assert.False(t, ok)
}

func TestNewPrinterSlotFoldsObstacleAtCursor(t *testing.T) {
	obstacle := models.PlannedCycle{
		ID: "busy", PrinterID: "pr-1", ProjectID: "pj-0", RequiredColor: "red",
		StartTime:        plannerNow,
		EndTime:          plannerNow.Add(4 * time.Hour),
		PlateReleaseTime: plannerNow.Add(4*time.Hour + 30*time.Minute),
	}
	slot := slotFixture(t, weekdaySettings(models.AfterHoursNone),
		models.Printer{ID: "pr-1"}, []models.PlannedCycle{obstacle})

	assert.Equal(t, obstacle.EndTime.Add(15*time.Minute), slot.current)
	assert.Equal(t, "red", slot.lockedColor)
	assert.Equal(t, "pj-0", slot.lastProjectID)
	assert.Len(t, slot.plates, 1)
}

func TestNewPrinterSlotKeepsGapBeforeLaterObstacle(t *testing.T) {
	obstacle := models.PlannedCycle{
		ID: "afternoon", PrinterID: "pr-1", ProjectID: "pj-0", RequiredColor: "red",
		StartTime:        plannerNow.Add(5 * time.Hour),
		EndTime:          plannerNow.Add(7 * time.Hour),
		PlateReleaseTime: plannerNow.Add(7*time.Hour + 30*time.Minute),
	}
	slot := slotFixture(t, weekdaySettings(models.AfterHoursNone),
		models.Printer{ID: "pr-1"}, []models.PlannedCycle{obstacle})

	// The morning before the committed cycle stays usable; only its plate is
	// reserved up front.
	assert.Equal(t, plannerNow, slot.current)
	assert.Empty(t, slot.lockedColor)
	assert.Len(t, slot.plates, 1)

	// A candidate running into the obstacle is pushed just past it.
	next, clash := slot.nextObstacleConflict(plannerNow, plannerNow.Add(6*time.Hour))
	require.True(t, clash)
	assert.Equal(t, obstacle.EndTime.Add(15*time.Minute), next)

	// A candidate that clears the obstacle plus the transition gap is not.
	_, clash = slot.nextObstacleConflict(plannerNow, plannerNow.Add(4*time.Hour))
	assert.False(t, clash)
}

func TestPrinterSlotPhases(t *testing.T) {
	printer := models.Printer{ID: "pr-1", CanStartAfterHours: true}
	slot := slotFixture(t, weekdaySettings(models.AfterHoursFullAutomation), printer, nil)

	// Full automation extends the window to the next workday opening.
	assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), slot.dayEnd)
	assert.Equal(t, phaseWorking, slot.phase(plannerNow.Add(2*time.Hour)))
	assert.Equal(t, phaseNight, slot.phase(plannerNow.Add(10*time.Hour)))
	assert.Equal(t, phaseExhausted, slot.phase(slot.dayEnd))
}

func TestPrinterSlotWindowEndsAtCloseWithoutAutomation(t *testing.T) {
	slot := slotFixture(t, weekdaySettings(models.AfterHoursNone), models.Printer{ID: "pr-1"}, nil)
	assert.Equal(t, slot.workEnd, slot.dayEnd)
}

func TestPlateReleasedAfterCloseWaitsForNextOperator(t *testing.T) {
	slot := slotFixture(t, weekdaySettings(models.AfterHoursNone),
		models.Printer{ID: "pr-1", PhysicalPlateCapacity: 1}, nil)
	slot.occupyPlate(slot.workEnd.Add(time.Hour), "night-run")

	assert.Equal(t, 0, slot.platesFree(slot.workEnd.Add(2*time.Hour)))
	_, ok := slot.nextPlateRelease(slot.current)
	assert.False(t, ok)

	// The next morning an operator clears it.
	require.True(t, slot.advanceToNextWorkday(advanceNoPlates, plannerNow.AddDate(0, 0, 14), 30))
	assert.Equal(t, 1, slot.platesFree(slot.current))
}

func TestPlateFreesAtReleaseTimeInsideExtendedWindow(t *testing.T) {
	slot := slotFixture(t, weekdaySettings(models.AfterHoursFullAutomation),
		models.Printer{ID: "pr-1", CanStartAfterHours: true, PhysicalPlateCapacity: 1}, nil)
	release := slot.workEnd.Add(4 * time.Hour)
	slot.occupyPlate(release, "night-run")

	// Under full automation the window runs to the next opening, so the plate
	// counts as free again the moment the cycle clears it.
	assert.Equal(t, 0, slot.platesFree(release.Add(-time.Minute)))
	assert.Equal(t, 1, slot.platesFree(release))

	next, ok := slot.nextPlateRelease(slot.workEnd)
	require.True(t, ok)
	assert.Equal(t, release, next)
}

func TestAdvancePastHorizonExhaustsSlot(t *testing.T) {
	slot := slotFixture(t, weekdaySettings(models.AfterHoursNone), models.Printer{ID: "pr-1"}, nil)

	ok := slot.advanceToNextWorkday(advanceEndOfDay, plannerNow.Add(12*time.Hour), 30)

	assert.False(t, ok)
	assert.True(t, slot.exhausted)
}

func TestAdvanceClearsNightCooldownAndReappliesObstacles(t *testing.T) {
	tuesday := models.PlannedCycle{
		ID: "tue", PrinterID: "pr-1", ProjectID: "pj-0", RequiredColor: "red",
		StartTime:        time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC),
		EndTime:          time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC),
		PlateReleaseTime: time.Date(2026, 3, 3, 12, 30, 0, 0, time.UTC),
	}
	slot := slotFixture(t, weekdaySettings(models.AfterHoursNone),
		models.Printer{ID: "pr-1"}, []models.PlannedCycle{tuesday})
	slot.nightIneligibleUntil = slot.dayEnd

	require.True(t, slot.advanceToNextWorkday(advanceColorUnknown, plannerNow.AddDate(0, 0, 14), 30))

	assert.True(t, slot.nightIneligibleUntil.IsZero())
	// Tuesday's pre-existing cycle still owns the morning.
	assert.Equal(t, tuesday.EndTime.Add(15*time.Minute), slot.current)
}

func TestCloneIsolatesPlateState(t *testing.T) {
	slot := slotFixture(t, weekdaySettings(models.AfterHoursNone), models.Printer{ID: "pr-1"}, nil)
	copied := slot.clone()
	copied.occupyPlate(slot.current.Add(time.Hour), "sim-only")

	assert.Empty(t, slot.plates)
	assert.Len(t, copied.plates, 1)
}
