package planner

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/printfleet/printfleet-api/internal/models"
)

// teeRecorder duplicates block events to the planner's configured sink and to
// the in-memory buffer embedded in the result.
type teeRecorder struct {
	sink   BlockRecorder
	buffer *BufferRecorder
}

func (t teeRecorder) Record(event models.BlockEvent) {
	t.sink.Record(event)
	t.buffer.Record(event)
}

// Plan executes one deterministic planning run over the snapshot. The same
// snapshot always yields the same result: all ordering is explicit and the
// only clock used is Snapshot.Now.
func (p *Planner) Plan(snap Snapshot) models.PlanningResult {
	result := models.PlanningResult{GeneratedAt: snap.Now}

	if !snap.Settings.HasWorkingDays() {
		result.BlockingIssues = append(result.BlockingIssues, models.BlockingIssue{
			Kind:    models.BlockingNoSettings,
			Message: "factory settings define no working days",
		})
		return result
	}

	buffer := NewBufferRecorder(0)
	recorder := teeRecorder{sink: p.recorder, buffer: buffer}

	var active []models.Printer
	for _, printer := range snap.Printers {
		if printer.Active {
			active = append(active, printer)
			continue
		}
		recorder.Record(blockEvent(models.BlockPrinterInactive, snap.Now, "", printer.ID, "",
			"printer excluded from planning"))
	}
	if len(active) == 0 {
		result.BlockingIssues = append(result.BlockingIssues, models.BlockingIssue{
			Kind:    models.BlockingNoPrinters,
			Message: "no active printers available",
		})
		result.BlockEvents = buffer.Events()
		return result
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	cfg := p.cfg
	horizonEnd := snap.Now.AddDate(0, 0, cfg.HorizonDays)
	simEnd := snap.Now.AddDate(0, 0, cfg.MaxSimulationDays)

	colors := make([]string, 0, len(snap.Projects))
	for _, project := range snap.Projects {
		colors = append(colors, project.Color)
	}
	mat := newMaterialTracker(snap.ledger(), colors, horizonEnd.Sub(snap.Now))
	spools := newSpoolBook(snap.spoolCounts())

	plateInventory := snap.Settings.GlobalPlateInventory
	if plateInventory <= 0 {
		plateInventory = cfg.GlobalPlateInventory
	}
	budgets := allocatePlates(active, plateInventory)

	for _, project := range snap.Projects {
		if project.IncludeInPlanning && project.DueDate.Before(snap.Now) {
			recorder.Record(blockEvent(models.BlockDeadlinePassed, snap.Now, project.ID, "", "",
				fmt.Sprintf("due date %s already passed", project.DueDate.Format("2006-01-02"))))
		}
	}

	var immovable []models.PlannedCycle
	for _, cycle := range snap.Committed {
		if cycle.Immovable() {
			immovable = append(immovable, cycle)
		}
	}

	iterations := 0
	capped := false
	eng := &engine{
		settings:   snap.Settings,
		cfg:        cfg,
		recorder:   recorder,
		iterations: &iterations,
		capped:     &capped,
	}

	var generated []models.PlannedCycle
	infos := make(map[string]dryRunInfo)

	// Day loop: each pass builds fresh slots for the day, seeded with the
	// immovable cycles and with everything generated so far, then runs the
	// priority order through the placement engine. A project fully planned on
	// an earlier pass comes back with zero remaining units and drops out, so
	// later passes only pick up leftovers.
	for offset := 0; offset < cfg.HorizonDays && !capped; offset++ {
		day := snap.Now.AddDate(0, 0, offset)

		runs := prioritizeProjects(snap.Now, snap.Projects, snap.Products, snap.Committed, generated)
		if len(runs) == 0 {
			break
		}

		obstacles := make([]models.PlannedCycle, 0, len(immovable)+len(generated))
		obstacles = append(obstacles, immovable...)
		obstacles = append(obstacles, generated...)

		var slots []*printerSlot
		for _, printer := range active {
			slot, ok := newPrinterSlot(printer, snap.Settings, cfg, day, snap.Now, budgets[printer.ID], obstacles)
			if ok {
				slots = append(slots, slot)
			}
		}
		if len(slots) == 0 {
			continue
		}

		for _, run := range runs {
			cycles, info := eng.planProject(slots, run, mat, spools, horizonEnd, simEnd)
			generated = append(generated, cycles...)
			if prev, seen := infos[run.project.ID]; !seen || (!prev.deadlineMet && info.deadlineMet) {
				infos[run.project.ID] = info
			}
			if capped {
				break
			}
		}
	}

	generated = dedupeCycles(generated)
	generated = capAutonomousRuns(generated, snap, recorder)
	sortCycles(generated)

	result.Cycles = generated
	result.Days = buildDayPlans(snap, active, generated, cfg.HorizonDays)
	result.Warnings, result.BlockingIssues = p.assessOutcome(snap, active, generated, mat, infos, capped, horizonEnd)
	result.BlockEvents = buffer.Events()
	result.Success = len(result.BlockingIssues) == 0

	p.logger.Info("planning run finished",
		zap.Int("cycles", len(result.Cycles)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("blocking", len(result.BlockingIssues)),
		zap.Int("iterations", iterations),
		zap.Bool("success", result.Success))
	return result
}

// assessOutcome derives warnings and blocking issues from the finished run.
func (p *Planner) assessOutcome(
	snap Snapshot,
	active []models.Printer,
	generated []models.PlannedCycle,
	mat *materialTracker,
	infos map[string]dryRunInfo,
	capped bool,
	horizonEnd time.Time,
) ([]models.PlanningWarning, []models.BlockingIssue) {
	var warnings []models.PlanningWarning
	var blocking []models.BlockingIssue

	lowColors := mat.lowColors()
	sort.Strings(lowColors)
	for _, color := range lowColors {
		warnings = append(warnings, models.PlanningWarning{
			Kind:    models.WarningMaterialLow,
			Color:   color,
			Message: fmt.Sprintf("material stock for %s ran out during planning", color),
		})
	}

	leftovers := prioritizeProjects(snap.Now, snap.Projects, snap.Products, snap.Committed, generated)
	for _, run := range leftovers {
		if mat.low[run.project.Color] {
			blocking = append(blocking, models.BlockingIssue{
				Kind:      models.BlockingInsufficientMaterial,
				ProjectID: run.project.ID,
				Message:   fmt.Sprintf("%d units unplanned: not enough %s in stock", run.remaining, run.project.Color),
			})
			continue
		}
		if run.project.DueDate.Before(horizonEnd) {
			blocking = append(blocking, models.BlockingIssue{
				Kind:      models.BlockingDeadlineImpossible,
				ProjectID: run.project.ID,
				Message:   fmt.Sprintf("%d units cannot be scheduled before the due date", run.remaining),
			})
		}
	}

	projectIDs := make([]string, 0, len(infos))
	for id := range infos {
		projectIDs = append(projectIDs, id)
	}
	sort.Strings(projectIDs)
	for _, id := range projectIDs {
		info := infos[id]
		if info.deadlineMet {
			continue
		}
		warnings = append(warnings, models.PlanningWarning{
			Kind:      models.WarningDeadlineRisk,
			ProjectID: id,
			Message:   "projected finish falls after the due date even on all printers",
		})
		if info.printersUsed == len(active) {
			warnings = append(warnings, models.PlanningWarning{
				Kind:      models.WarningPrinterOverload,
				ProjectID: id,
				Message:   "every active printer is saturated by this project",
			})
		}
	}

	if len(leftovers) > 0 {
		idle := idlePrinters(active, generated)
		for _, id := range idle {
			warnings = append(warnings, models.PlanningWarning{
				Kind:      models.WarningCapacityUnused,
				PrinterID: id,
				Message:   "printer received no cycles while work remains unplanned",
			})
		}
	}

	if capped {
		warnings = append(warnings, models.PlanningWarning{
			Kind:    models.WarningSearchCapped,
			Message: "iteration budget exhausted; the plan may be incomplete",
		})
	}

	return warnings, blocking
}

func idlePrinters(active []models.Printer, cycles []models.PlannedCycle) []string {
	used := make(map[string]bool, len(active))
	for _, cycle := range cycles {
		used[cycle.PrinterID] = true
	}
	var idle []string
	for _, printer := range active {
		if !used[printer.ID] {
			idle = append(idle, printer.ID)
		}
	}
	sort.Strings(idle)
	return idle
}

// buildDayPlans groups the generated cycles into per-day, per-printer views
// and computes how much regular work-window capacity each day left unused.
func buildDayPlans(snap Snapshot, active []models.Printer, cycles []models.PlannedCycle, horizonDays int) []models.DayPlan {
	byDay := make(map[string][]models.PlannedCycle)
	for _, cycle := range cycles {
		key := dayKey(cycle.StartTime)
		byDay[key] = append(byDay[key], cycle)
	}

	var days []models.DayPlan
	for offset := 0; offset < horizonDays; offset++ {
		date := snap.Now.AddDate(0, 0, offset)
		dayStart, workEnd, working := snap.Settings.DayBounds(date)
		dayCycles := byDay[dayKey(date)]
		if !working && len(dayCycles) == 0 {
			continue
		}

		byPrinter := make(map[string][]models.PlannedCycle)
		units, busyHours := 0, 0.0
		for _, cycle := range dayCycles {
			byPrinter[cycle.PrinterID] = append(byPrinter[cycle.PrinterID], cycle)
			units += cycle.UnitsPlanned
			if working {
				busyHours += overlapHours(cycle.StartTime, cycle.EndTime, dayStart, workEnd)
			}
		}

		printerIDs := make([]string, 0, len(byPrinter))
		for id := range byPrinter {
			printerIDs = append(printerIDs, id)
		}
		sort.Strings(printerIDs)

		printers := make([]models.PrinterDayPlan, 0, len(printerIDs))
		for _, id := range printerIDs {
			group := byPrinter[id]
			sort.Slice(group, func(i, j int) bool { return group[i].StartTime.Before(group[j].StartTime) })
			printers = append(printers, models.PrinterDayPlan{PrinterID: id, Cycles: group})
		}

		unused := 0.0
		if working {
			unused = workEnd.Sub(dayStart).Hours()*float64(len(active)) - busyHours
			if unused < 0 {
				unused = 0
			}
		}

		days = append(days, models.DayPlan{
			Date:                startOfCalendarDay(date),
			Printers:            printers,
			UnitsPlanned:        units,
			CyclesPlanned:       len(dayCycles),
			UnusedCapacityHours: unused,
		})
	}
	return days
}

func overlapHours(aStart, aEnd, bStart, bEnd time.Time) float64 {
	start, end := aStart, aEnd
	if bStart.After(start) {
		start = bStart
	}
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours()
}

func startOfCalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sortCycles(cycles []models.PlannedCycle) {
	sort.Slice(cycles, func(i, j int) bool {
		if !cycles[i].StartTime.Equal(cycles[j].StartTime) {
			return cycles[i].StartTime.Before(cycles[j].StartTime)
		}
		if cycles[i].PrinterID != cycles[j].PrinterID {
			return cycles[i].PrinterID < cycles[j].PrinterID
		}
		return cycles[i].ID < cycles[j].ID
	})
}
