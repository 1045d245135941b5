package planner

import (
	"fmt"
	"sort"
	"time"

	"github.com/printfleet/printfleet-api/internal/models"
)

// Printer scoring weights.
const (
	scoreAvailabilityMax = 40.0
	scoreWaitCapHours    = 24.0
	scoreColorMatch      = 30.0
	scoreColorNeutral    = 15.0
	scoreSwitchBonus     = 5.0
	scoreContinuity      = 15.0
)

// scoreSlot ranks a printer slot for a project: how soon it is free, whether
// the right color is already on it, and whether it last ran the same project.
func scoreSlot(slot *printerSlot, project models.Project, ref time.Time) float64 {
	waitHours := slot.current.Sub(ref).Hours()
	if waitHours < 0 {
		waitHours = 0
	}
	if waitHours > scoreWaitCapHours {
		waitHours = scoreWaitCapHours
	}
	score := scoreAvailabilityMax * (1 - waitHours/scoreWaitCapHours)

	color := slot.lockedColor
	if color == "" {
		color = slot.lastColor
	}
	switch {
	case color == project.Color:
		score += scoreColorMatch + scoreSwitchBonus
	case color == "":
		score += scoreColorNeutral
	}

	if slot.lastProjectID == project.ID {
		score += scoreContinuity
	}
	return score
}

// engine runs the earliest-available placement algorithm. The same engine is
// used for dry-run estimation (cloned state, nop recorder) and for the real
// commit.
type engine struct {
	settings   models.FactorySettings
	cfg        Config
	recorder   BlockRecorder
	iterations *int
	capped     *bool
}

// placement is the outcome of placing one project on a set of slots.
type placement struct {
	cycles    []models.PlannedCycle
	remaining int
	finish    time.Time
}

// dryRunInfo summarises the minimum-printer search for warning assembly.
type dryRunInfo struct {
	printersUsed    int
	deadlineMet     bool
	estimatedFinish time.Time
}

// planProject scores the candidate slots, searches for the smallest printer
// set that still meets the deadline, then commits cycles on exactly that set.
// Slots outside the chosen set are left untouched.
func (e *engine) planProject(
	slots []*printerSlot,
	run *projectRun,
	mat *materialTracker,
	spools *spoolBook,
	horizonEnd time.Time,
	simEnd time.Time,
) ([]models.PlannedCycle, dryRunInfo) {
	if len(slots) == 0 || run.remaining <= 0 {
		return nil, dryRunInfo{}
	}

	ranked := make([]*printerSlot, len(slots))
	copy(ranked, slots)
	ref := ranked[0].current
	for _, slot := range ranked[1:] {
		if slot.current.Before(ref) {
			ref = slot.current
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scoreSlot(ranked[i], run.project, ref), scoreSlot(ranked[j], run.project, ref)
		if si != sj {
			return si > sj
		}
		return ranked[i].printer.ID < ranked[j].printer.ID
	})

	info := dryRunInfo{printersUsed: len(ranked)}
	sim := engine{settings: e.settings, cfg: e.cfg, recorder: NopRecorder{}, iterations: e.iterations, capped: e.capped}

	// Monotonic minimum-printer search: printers are only ever added, so the
	// search terminates after at most len(ranked) attempts.
	for count := 1; count <= len(ranked); count++ {
		clones := make([]*printerSlot, count)
		for i := 0; i < count; i++ {
			clones[i] = ranked[i].clone()
		}
		trial := sim.placeProject(clones, run.clone(), mat.clone(), spools.clone(), simEnd)
		if trial.remaining == 0 && !trial.finish.After(run.project.DueDate) {
			info.printersUsed = count
			info.deadlineMet = true
			info.estimatedFinish = trial.finish
			break
		}
		if count == len(ranked) {
			info.estimatedFinish = trial.finish
		}
	}

	committed := e.placeProject(ranked[:info.printersUsed], run, mat, spools, horizonEnd)
	if !info.deadlineMet && committed.finish.After(info.estimatedFinish) {
		info.estimatedFinish = committed.finish
	}
	return committed.cycles, info
}

// placeProject is the earliest-available commit algorithm: a priority queue
// keyed by each slot's cursor, popped in order, with the guard chain applied
// before every candidate cycle. Guard failures advance the slot to the next
// workday and re-queue it; slots past the horizon drop out. The loop ends
// when the project is exhausted or the queue is empty.
func (e *engine) placeProject(
	slots []*printerSlot,
	run *projectRun,
	mat *materialTracker,
	spools *spoolBook,
	horizonEnd time.Time,
) placement {
	result := placement{remaining: run.remaining}

	queue := NewPriorityQueue[*printerSlot]()
	for _, slot := range slots {
		if !slot.exhausted {
			queue.Push(slot, float64(slot.current.Unix()))
		}
	}

	requeue := func(slot *printerSlot) {
		queue.Push(slot, float64(slot.current.Unix()))
	}
	advance := func(slot *printerSlot, reason advanceReason) {
		if slot.advanceToNextWorkday(reason, horizonEnd, e.cfg.MaxSimulationDays) {
			requeue(slot)
		}
	}

	for run.remaining > 0 && queue.Len() > 0 {
		*e.iterations++
		if *e.iterations > e.cfg.MaxIterations {
			*e.capped = true
			break
		}

		slot, _ := queue.Pop()
		project := run.project

		// End-of-day check.
		if slot.phase(slot.current) == phaseExhausted {
			advance(slot, advanceEndOfDay)
			continue
		}
		// Night-window cooldown from an earlier unknown-color verdict.
		if !slot.nightIneligibleUntil.IsZero() && slot.current.Before(slot.nightIneligibleUntil) {
			advance(slot, advanceColorUnknown)
			continue
		}

		night := slot.phase(slot.current) == phaseNight

		// Operator-presence check: a night start without full automation
		// means nobody is there to load the plate.
		if night && e.settings.AfterHours != models.AfterHoursFullAutomation {
			e.recorder.Record(blockEvent(models.BlockAfterHoursPolicy, slot.current, project.ID, slot.printer.ID, "",
				"factory policy does not allow unattended starts"))
			advance(slot, advanceNoOperator)
			continue
		}

		// Plate-availability check.
		if slot.platesFree(slot.current) == 0 {
			if release, ok := slot.nextPlateRelease(slot.current); ok && release.Before(slot.dayEnd) {
				slot.current = release
				requeue(slot)
				continue
			}
			advance(slot, advanceNoPlates)
			continue
		}

		preset, _ := selectPreset(run.product, presetContext{
			remainingUnits:   run.remaining,
			availableHours:   e.availableHours(slot),
			availableGrams:   mat.availableFor(project.Color),
			night:            night,
			preWeekend:       isPreWeekendSlot(slot.current),
			preferredID:      project.PreferredPresetID,
			customCycleHours: project.CustomCycleHours,
		})
		if preset == nil {
			e.recorder.Record(blockEvent(models.BlockNoMatchingPreset, slot.current, project.ID, slot.printer.ID, "",
				"product has no usable preset"))
			break
		}

		// Three-level night check.
		if night && !canStartAtNight(e.settings, slot.printer, *preset) {
			if !preset.AllowedForNightCycle {
				e.recorder.Record(blockEvent(models.BlockNoNightPreset, slot.current, project.ID, slot.printer.ID, preset.ID,
					"preset not allowed for night cycles"))
			} else {
				e.recorder.Record(blockEvent(models.BlockAfterHoursPolicy, slot.current, project.ID, slot.printer.ID, preset.ID,
					"printer may not start new cycles after hours"))
			}
			advance(slot, advanceNightPolicy)
			continue
		}

		// Non-AMS night color lock.
		if night {
			switch checkNightColor(slot.printer, slot.lockedColor, project.Color) {
			case nightColorUnknown:
				e.recorder.Record(blockEvent(models.BlockNoPhysicalColorNight, slot.current, project.ID, slot.printer.ID, preset.ID,
					"no physical color signal; printer parked for the night window"))
				// Re-queue with the cooldown set; the guard at the top of the
				// loop moves the slot to the next workday.
				slot.nightIneligibleUntil = slot.dayEnd
				requeue(slot)
				continue
			case nightColorMismatch:
				e.recorder.Record(blockEvent(models.BlockColorLockNight, slot.current, project.ID, slot.printer.ID, preset.ID,
					fmt.Sprintf("printer locked to %s, project needs %s", slot.lockedColor, project.Color)))
				// Skip only this project; the slot stays usable for others.
				continue
			}
		}

		hours := effectiveCycleHours(*preset, project.CustomCycleHours)
		start := slot.current
		end := start.Add(time.Duration(hours * float64(time.Hour)))
		overshoot := false

		// Pre-existing cycles still ahead of the cursor own their window; a
		// candidate colliding with one jumps just past it and retries.
		if next, clash := slot.nextObstacleConflict(start, end); clash {
			slot.current = next
			requeue(slot)
			continue
		}

		// Cycle-end check against the extended close.
		if end.After(slot.dayEnd) {
			if e.canOvershoot(slot, *preset, start) {
				overshoot = true
			} else {
				if night {
					e.recorder.Record(blockEvent(models.BlockCycleTooLongNight, start, project.ID, slot.printer.ID, preset.ID,
						fmt.Sprintf("%.1fh cycle does not fit the night window", hours)))
				}
				advance(slot, advanceCycleTooLong)
				continue
			}
		}

		// Secondary bleed check: a daytime start running past regular close
		// needs the same night agreement.
		if !night && !overshoot && end.After(slot.workEnd) && !canStartAtNight(e.settings, slot.printer, *preset) {
			e.recorder.Record(blockEvent(models.BlockNoNightPreset, start, project.ID, slot.printer.ID, preset.ID,
				"cycle would run into night hours the policy forbids"))
			advance(slot, advanceNightBleed)
			continue
		}

		// Physical spool parallel-use check for the calendar day.
		if !spools.canAssign(start, project.Color, slot.printer.ID) {
			e.recorder.Record(blockEvent(models.BlockSpoolParallelLimit, start, project.ID, slot.printer.ID, preset.ID,
				fmt.Sprintf("all %s spools already feeding other printers today", project.Color)))
			advance(slot, advanceSpoolLimit)
			continue
		}

		// All guards passed: build one cycle.
		units := preset.UnitsPerPlate
		if run.remaining < units {
			units = run.remaining
		}
		grams := float64(units) * preset.GramsPerUnit

		readiness := models.ReadinessWaitingForSpool
		if !mat.take(project.Color, grams) {
			readiness = models.ReadinessBlockedInventory
			e.recorder.Record(blockEvent(models.BlockMaterialInsufficient, start, project.ID, slot.printer.ID, preset.ID,
				fmt.Sprintf("need %.0fg of %s beyond available stock", grams, project.Color)))
		} else if slot.lockedColor == project.Color {
			readiness = models.ReadinessReady
		}

		release := end.Add(slot.cleanupDelay)
		cycle := models.PlannedCycle{
			ID:               fmt.Sprintf("cyc-%s-%s-%d", project.ID, slot.printer.ID, start.Unix()),
			ProjectID:        project.ID,
			PrinterID:        slot.printer.ID,
			PresetID:         preset.ID,
			UnitsPlanned:     units,
			GramsPlanned:     grams,
			StartTime:        start,
			EndTime:          end,
			PlateType:        plateTypeFor(units, preset.UnitsPerPlate, run.remaining-units),
			Shift:            shiftFor(slot, start, overshoot),
			Readiness:        readiness,
			RequiredColor:    project.Color,
			RequiredGrams:    grams,
			PlateReleaseTime: release,
			Status:           models.CycleStatusPlanned,
		}
		cycle.PlateIndex = slot.occupyPlate(release, cycle.ID)

		if slot.operatorPresent(start) {
			slot.lockedColor = project.Color
		}
		slot.lastColor = project.Color
		slot.lastProjectID = project.ID
		if overshoot {
			slot.overshootUsed = true
		}
		spools.assign(start, project.Color, slot.printer.ID)

		slot.current = end.Add(slot.transition)
		run.remaining -= units
		result.cycles = append(result.cycles, cycle)
		if end.After(result.finish) {
			result.finish = end
		}
		requeue(slot)
	}

	result.remaining = run.remaining
	return result
}

// availableHours is the widest window a cycle starting now could occupy,
// used only to filter presets that cannot possibly fit.
func (e *engine) availableHours(slot *printerSlot) float64 {
	close := slot.dayEnd
	if e.settings.AfterHours == models.AfterHoursOneCycleEOD && !slot.overshootUsed && slot.operatorPresent(slot.current) {
		if next, ok := e.settings.NextWorkdayStart(slot.workEnd, e.cfg.MaxSimulationDays); ok {
			close = next
		}
	}
	return close.Sub(slot.current).Hours()
}

// canOvershoot allows the single unattended end-of-day run permitted by the
// ONE_CYCLE_END_OF_DAY policy: started while an operator is present, on a
// preset that may run unattended, at most once per day per printer.
func (e *engine) canOvershoot(slot *printerSlot, preset models.PlatePreset, start time.Time) bool {
	return e.settings.AfterHours == models.AfterHoursOneCycleEOD &&
		!slot.overshootUsed &&
		slot.operatorPresent(start) &&
		preset.AllowedForNightCycle
}

func plateTypeFor(units, unitsPerPlate, remainingAfter int) models.PlateType {
	switch {
	case units == unitsPerPlate:
		return models.PlateFull
	case remainingAfter <= 0:
		return models.PlateCloseout
	default:
		return models.PlateReduced
	}
}

func shiftFor(slot *printerSlot, start time.Time, overshoot bool) models.Shift {
	if !slot.operatorPresent(start) || overshoot {
		return models.ShiftEndOfDay
	}
	return models.ShiftDay
}

func (r *projectRun) clone() *projectRun {
	c := *r
	return &c
}
