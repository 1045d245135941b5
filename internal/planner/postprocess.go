package planner

import (
	"fmt"
	"sort"
	"time"

	"github.com/printfleet/printfleet-api/internal/models"
)

// dedupeCycles drops duplicate cycles occupying the same printer at the same
// start time. Duplicates can only come from a bug upstream, so the first
// occurrence in deterministic order wins and the rest are discarded.
func dedupeCycles(cycles []models.PlannedCycle) []models.PlannedCycle {
	seen := make(map[string]bool, len(cycles))
	out := cycles[:0]
	for _, cycle := range cycles {
		key := cycle.PrinterID + "|" + cycle.StartTime.UTC().Format("2006-01-02T15:04:05")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cycle)
	}
	return out
}

// capAutonomousRuns enforces the pre-loaded plate ceiling: a printer running
// unattended can only consume plates an operator stacked before leaving, so a
// consecutive run of autonomous cycles longer than the plate pool cannot all
// be ready. Only cycles that independently qualify for an unattended start and
// are currently ready count toward the streak; a cycle held back for another
// reason waits for an operator anyway and draws no plate. Cycles past the
// ceiling are downgraded to waiting_for_plate_reload rather than removed; the
// work stays visible and an operator showing up early un-blocks it. The
// counter resets whenever a cycle starts with an operator present.
func capAutonomousRuns(
	cycles []models.PlannedCycle,
	snap Snapshot,
	recorder BlockRecorder,
) []models.PlannedCycle {
	printers := make(map[string]models.Printer, len(snap.Printers))
	for _, printer := range snap.Printers {
		printers[printer.ID] = printer
	}
	products := make(map[string]models.Product, len(snap.Projects))
	for _, project := range snap.Projects {
		if product, ok := snap.Products[project.ProductID]; ok {
			products[project.ID] = product
		}
	}

	byPrinter := make(map[string][]int)
	for i, cycle := range cycles {
		byPrinter[cycle.PrinterID] = append(byPrinter[cycle.PrinterID], i)
	}

	printerIDs := make([]string, 0, len(byPrinter))
	for id := range byPrinter {
		printerIDs = append(printerIDs, id)
	}
	sort.Strings(printerIDs)

	for _, printerID := range printerIDs {
		indexes := byPrinter[printerID]
		sort.Slice(indexes, func(a, b int) bool {
			return cycles[indexes[a]].StartTime.Before(cycles[indexes[b]].StartTime)
		})

		printer, known := printers[printerID]
		limit := models.DefaultPlateCapacity
		if known {
			limit = printer.PlateCapacity()
		}

		streak := 0
		for _, i := range indexes {
			cycle := &cycles[i]
			if operatorOnFloor(snap.Settings, cycle.StartTime) {
				streak = 0
				continue
			}
			if !known || !qualifiesAutonomous(snap.Settings, printer, products, *cycle) {
				continue
			}
			if cycle.Readiness != models.ReadinessReady {
				continue
			}
			streak++
			if streak <= limit {
				continue
			}
			cycle.Readiness = models.ReadinessWaitingForPlate
			recorder.Record(blockEvent(models.BlockPlatesLimit, cycle.StartTime, cycle.ProjectID, printerID, cycle.PresetID,
				fmt.Sprintf("autonomous run exceeds the %d pre-loaded plates", limit)))
		}
	}
	return cycles
}

// qualifiesAutonomous re-runs the three-level night gate for a placed cycle.
func qualifiesAutonomous(
	settings models.FactorySettings,
	printer models.Printer,
	products map[string]models.Product,
	cycle models.PlannedCycle,
) bool {
	product, ok := products[cycle.ProjectID]
	if !ok {
		return false
	}
	preset := product.PresetByID(cycle.PresetID)
	if preset == nil {
		return false
	}
	return canStartAtNight(settings, printer, *preset)
}

// operatorOnFloor reports whether the factory work window covers t.
func operatorOnFloor(settings models.FactorySettings, t time.Time) bool {
	start, end, ok := settings.DayBounds(t)
	return ok && !t.Before(start) && t.Before(end)
}
