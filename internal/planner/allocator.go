package planner

import (
	"sort"

	"github.com/printfleet/printfleet-api/internal/models"
)

// allocatePlates splits the global plate inventory across the active printers
// one plate at a time, round-robin in printer-id order, so a small inventory
// is shared fairly instead of saturating the first printer. No printer is
// handed more than its own plate capacity; leftover plates stay unassigned.
func allocatePlates(printers []models.Printer, total int) map[string]int {
	budgets := make(map[string]int, len(printers))
	if len(printers) == 0 {
		return budgets
	}

	order := make([]string, 0, len(printers))
	capacity := make(map[string]int, len(printers))
	for _, printer := range printers {
		order = append(order, printer.ID)
		capacity[printer.ID] = printer.PlateCapacity()
		budgets[printer.ID] = 0
	}
	sort.Strings(order)

	if total <= 0 {
		// No global cap configured; every printer runs at its own capacity.
		for id, cap := range capacity {
			budgets[id] = cap
		}
		return budgets
	}

	remaining := total
	for remaining > 0 {
		granted := false
		for _, id := range order {
			if remaining == 0 {
				break
			}
			if budgets[id] >= capacity[id] {
				continue
			}
			budgets[id]++
			remaining--
			granted = true
		}
		if !granted {
			break
		}
	}
	return budgets
}
