package planner

import (
	"time"

	"github.com/printfleet/printfleet-api/internal/models"
)

// MaterialLedger exposes the material bookkeeping the planner consumes. The
// planner does not own how these numbers are derived or persisted.
type MaterialLedger interface {
	AvailableGrams(color string, horizon time.Duration) float64
	ReservedGrams(color string, horizon time.Duration) float64
}

// StockLedger adapts a color-stock snapshot to the MaterialLedger interface.
type StockLedger struct {
	stocks map[string]models.ColorStock
}

// NewStockLedger indexes the snapshot rows by color.
func NewStockLedger(stocks []models.ColorStock) *StockLedger {
	indexed := make(map[string]models.ColorStock, len(stocks))
	for _, stock := range stocks {
		indexed[stock.Color] = stock
	}
	return &StockLedger{stocks: indexed}
}

// AvailableGrams returns grams usable for the color within the horizon.
func (l *StockLedger) AvailableGrams(color string, _ time.Duration) float64 {
	return l.stocks[color].AvailableGrams
}

// ReservedGrams returns grams already committed for the color.
func (l *StockLedger) ReservedGrams(color string, _ time.Duration) float64 {
	return l.stocks[color].ReservedGrams
}

// SpoolCounts extracts the physical spool count per color.
func (l *StockLedger) SpoolCounts() map[string]int {
	counts := make(map[string]int, len(l.stocks))
	for color, stock := range l.stocks {
		counts[color] = stock.SpoolCount
	}
	return counts
}

// materialTracker is the run-local working copy of remaining grams per color.
// Committed cycles draw it down; it never goes negative. A draw that does not
// fit fails and the caller marks the cycle blocked instead.
type materialTracker struct {
	remaining map[string]float64
	low       map[string]bool
}

func newMaterialTracker(ledger MaterialLedger, colors []string, horizon time.Duration) *materialTracker {
	t := &materialTracker{
		remaining: make(map[string]float64, len(colors)),
		low:       make(map[string]bool),
	}
	for _, color := range colors {
		if _, seen := t.remaining[color]; seen {
			continue
		}
		available := 0.0
		if ledger != nil {
			available = ledger.AvailableGrams(color, horizon) - ledger.ReservedGrams(color, horizon)
		}
		if available < 0 {
			available = 0
		}
		t.remaining[color] = available
	}
	return t
}

func (t *materialTracker) availableFor(color string) float64 {
	return t.remaining[color]
}

// take draws grams for a color. Returns false (and marks the color low)
// when the tracker cannot cover the draw.
func (t *materialTracker) take(color string, grams float64) bool {
	if t.remaining[color] < grams {
		t.low[color] = true
		return false
	}
	t.remaining[color] -= grams
	return true
}

func (t *materialTracker) lowColors() []string {
	colors := make([]string, 0, len(t.low))
	for color := range t.low {
		colors = append(colors, color)
	}
	return colors
}

func (t *materialTracker) clone() *materialTracker {
	c := &materialTracker{
		remaining: make(map[string]float64, len(t.remaining)),
		low:       make(map[string]bool, len(t.low)),
	}
	for k, v := range t.remaining {
		c.remaining[k] = v
	}
	for k, v := range t.low {
		c.low[k] = v
	}
	return c
}

// spoolBook enforces the physical spool parallel-use constraint: on any one
// calendar day a color can feed at most SpoolCount printers at the same time.
// Assignments are kept per day; the per-day set is what the daily reset rule
// refers to, and use never carries across days.
type spoolBook struct {
	counts map[string]int
	inUse  map[string]map[string]map[string]struct{} // day -> color -> printer set
}

func newSpoolBook(counts map[string]int) *spoolBook {
	return &spoolBook{
		counts: counts,
		inUse:  make(map[string]map[string]map[string]struct{}),
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (b *spoolBook) canAssign(day time.Time, color, printerID string) bool {
	limit, known := b.counts[color]
	if !known {
		// Unknown colors carry no physical spool data; do not block on them.
		return true
	}
	set := b.inUse[dayKey(day)][color]
	if _, already := set[printerID]; already {
		return true
	}
	return len(set) < limit
}

func (b *spoolBook) assign(day time.Time, color, printerID string) {
	key := dayKey(day)
	if b.inUse[key] == nil {
		b.inUse[key] = make(map[string]map[string]struct{})
	}
	if b.inUse[key][color] == nil {
		b.inUse[key][color] = make(map[string]struct{})
	}
	b.inUse[key][color][printerID] = struct{}{}
}

func (b *spoolBook) clone() *spoolBook {
	c := newSpoolBook(b.counts)
	for day, colors := range b.inUse {
		c.inUse[day] = make(map[string]map[string]struct{}, len(colors))
		for color, printers := range colors {
			set := make(map[string]struct{}, len(printers))
			for id := range printers {
				set[id] = struct{}{}
			}
			c.inUse[day][color] = set
		}
	}
	return c
}
