package planner

import (
	"fmt"
	"sort"
	"time"

	"github.com/printfleet/printfleet-api/internal/models"
)

// slotPhase is the per-printer, per-day state: WORKING within regular hours,
// NIGHT_EXTENDED between regular close and the extended close, EXHAUSTED once
// the cursor passes the extended close.
type slotPhase int

const (
	phaseWorking slotPhase = iota
	phaseNight
	phaseExhausted
)

// advanceReason is the typed cause of an advance-to-next-workday transition.
type advanceReason int

const (
	advanceEndOfDay advanceReason = iota
	advanceNoOperator
	advanceNoPlates
	advanceNightPolicy
	advanceCycleTooLong
	advanceNightBleed
	advanceColorUnknown
	advanceSpoolLimit
)

func (r advanceReason) String() string {
	switch r {
	case advanceEndOfDay:
		return "end_of_day"
	case advanceNoOperator:
		return "no_operator"
	case advanceNoPlates:
		return "no_plates"
	case advanceNightPolicy:
		return "night_policy"
	case advanceCycleTooLong:
		return "cycle_too_long"
	case advanceNightBleed:
		return "night_bleed"
	case advanceColorUnknown:
		return "color_unknown"
	case advanceSpoolLimit:
		return "spool_limit"
	}
	return "unknown"
}

type plateInUse struct {
	releaseTime time.Time
	cycleID     string
}

// printerSlot is one printer's mutable scheduling state for one planning day.
// A single monotonic cursor guarantees cycles on the same printer never
// overlap.
type printerSlot struct {
	printer      models.Printer
	settings     models.FactorySettings
	transition   time.Duration
	cleanupDelay time.Duration
	plateCap     int

	current  time.Time
	dayStart time.Time
	workEnd  time.Time
	dayEnd   time.Time

	plates        []plateInUse
	plateSeq      int
	lockedColor   string
	lastColor     string
	lastProjectID string

	// obstacles are the pre-existing cycles on this printer. They are re-applied
	// to every window the cursor enters so the slot never double-books time that
	// an earlier run or an immovable cycle already owns.
	obstacles []models.PlannedCycle

	// nightIneligibleUntil is a cooldown marker: once a non-AMS printer with
	// unknown physical color hits a night window, it stays out of that whole
	// window instead of being retried per project.
	nightIneligibleUntil time.Time

	overshootUsed bool
	exhausted     bool
}

// newPrinterSlot builds the slot for one printer on one working day, seeding
// it with the immovable cycles that already occupy the printer on that day.
func newPrinterSlot(
	printer models.Printer,
	settings models.FactorySettings,
	cfg Config,
	day time.Time,
	now time.Time,
	plateBudget int,
	obstacles []models.PlannedCycle,
) (*printerSlot, bool) {
	dayStart, workEnd, ok := settings.DayBounds(day)
	if !ok {
		return nil, false
	}

	cap := printer.PlateCapacity()
	if plateBudget > 0 && plateBudget < cap {
		cap = plateBudget
	}

	slot := &printerSlot{
		printer:      printer,
		settings:     settings,
		transition:   time.Duration(settings.TransitionMinutes) * time.Minute,
		cleanupDelay: cfg.PlateCleanupDelay,
		plateCap:     cap,
		current:      dayStart,
		dayStart:     dayStart,
		workEnd:      workEnd,
		lockedColor:  printer.PhysicalLockedColor(),
	}
	slot.dayEnd = slot.extendedClose(workEnd, cfg.MaxSimulationDays)
	if now.After(slot.current) {
		slot.current = now
	}

	for _, cycle := range obstacles {
		if cycle.PrinterID == printer.ID {
			slot.obstacles = append(slot.obstacles, cycle)
		}
	}
	sort.Slice(slot.obstacles, func(i, j int) bool {
		return slot.obstacles[i].StartTime.Before(slot.obstacles[j].StartTime)
	})
	slot.applyObstacles()

	return slot, true
}

// applyObstacles folds the pre-existing cycles overlapping the current window
// into the slot. Every overlapping cycle holds a plate; only cycles starting
// at or behind the cursor move it and seed the lock state. A cycle still ahead
// of the cursor leaves the gap before it usable, guarded per candidate by
// nextObstacleConflict. Obstacles are sorted, so a fold that pushes the cursor
// onto a later obstacle folds that one too.
func (s *printerSlot) applyObstacles() {
	for _, cycle := range s.obstacles {
		if !cycle.EndTime.After(s.dayStart) || !cycle.StartTime.Before(s.dayEnd) {
			continue
		}
		if !s.holdsPlate(cycle.ID) {
			release := cycle.PlateReleaseTime
			if release.IsZero() {
				release = cycle.EndTime.Add(s.cleanupDelay)
			}
			s.plates = append(s.plates, plateInUse{releaseTime: release, cycleID: cycle.ID})
			s.plateSeq++
		}
		if cycle.StartTime.After(s.current) {
			continue
		}
		if next := cycle.EndTime.Add(s.transition); next.After(s.current) {
			s.current = next
		}
		if s.operatorPresent(cycle.StartTime) && cycle.RequiredColor != "" {
			s.lockedColor = cycle.RequiredColor
		}
		if cycle.RequiredColor != "" {
			s.lastColor = cycle.RequiredColor
		}
		s.lastProjectID = cycle.ProjectID
	}
}

// nextObstacleConflict finds the first pre-existing cycle a candidate run
// over [start, end] would collide with, keeping the transition gap on both
// sides, and returns the cursor position just past it. Obstacles already
// folded behind the cursor never match.
func (s *printerSlot) nextObstacleConflict(start, end time.Time) (time.Time, bool) {
	for _, cycle := range s.obstacles {
		if cycle.StartTime.Before(end.Add(s.transition)) && cycle.EndTime.Add(s.transition).After(start) {
			return cycle.EndTime.Add(s.transition), true
		}
	}
	return time.Time{}, false
}

func (s *printerSlot) holdsPlate(cycleID string) bool {
	for _, p := range s.plates {
		if p.cycleID == cycleID {
			return true
		}
	}
	return false
}

// extendedClose computes the end of the slot's usable window: the next
// workday start under FULL_AUTOMATION when the printer may run unattended,
// the regular close otherwise. Preset-level night permission is checked per
// candidate cycle.
func (s *printerSlot) extendedClose(workEnd time.Time, maxDays int) time.Time {
	if s.settings.AfterHours == models.AfterHoursFullAutomation && s.printer.CanStartAfterHours {
		if next, ok := s.settings.NextWorkdayStart(workEnd, maxDays); ok {
			return next
		}
	}
	return workEnd
}

func (s *printerSlot) phase(t time.Time) slotPhase {
	switch {
	case s.exhausted || !t.Before(s.dayEnd):
		return phaseExhausted
	case !t.Before(s.workEnd):
		return phaseNight
	default:
		return phaseWorking
	}
}

// operatorPresent reports whether a person is on the floor at t: only within
// the current day's regular work window.
func (s *printerSlot) operatorPresent(t time.Time) bool {
	return !t.Before(s.dayStart) && t.Before(s.workEnd)
}

// plateFreeAt resolves when an occupied plate stops counting against the
// concurrency cap: at its release time, clamped to the window start. A plate
// releasing at or past the extended close never frees within this window.
// Whether anyone was there to reload it is a readiness question, settled by
// the autonomous-run cap after placement.
func (s *printerSlot) plateFreeAt(p plateInUse) (time.Time, bool) {
	freeAt := p.releaseTime
	if freeAt.Before(s.dayStart) {
		freeAt = s.dayStart
	}
	if !freeAt.Before(s.dayEnd) {
		return time.Time{}, false
	}
	return freeAt, true
}

func (s *printerSlot) platesFree(t time.Time) int {
	busy := 0
	for _, p := range s.plates {
		freeAt, ok := s.plateFreeAt(p)
		if !ok || t.Before(freeAt) {
			busy++
		}
	}
	free := s.plateCap - busy
	if free < 0 {
		free = 0
	}
	return free
}

// nextPlateRelease finds the earliest moment after t a plate becomes
// reusable within this window.
func (s *printerSlot) nextPlateRelease(t time.Time) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, p := range s.plates {
		freeAt, ok := s.plateFreeAt(p)
		if !ok || !freeAt.After(t) {
			continue
		}
		if !found || freeAt.Before(earliest) {
			earliest = freeAt
			found = true
		}
	}
	return earliest, found
}

func (s *printerSlot) occupyPlate(release time.Time, cycleID string) int {
	s.plates = append(s.plates, plateInUse{releaseTime: release, cycleID: cycleID})
	index := s.plateSeq
	s.plateSeq++
	return index
}

// advanceToNextWorkday is the single exhaustion transition: move the cursor
// to the next workday start, recompute the day bounds, and free every plate
// whose release time has passed now that an operator is present again. The
// night-ineligibility cooldown clears here and nowhere else.
func (s *printerSlot) advanceToNextWorkday(_ advanceReason, horizonEnd time.Time, maxDays int) bool {
	next, ok := s.settings.NextWorkdayStart(s.current, maxDays)
	if !ok || next.After(horizonEnd) {
		s.exhausted = true
		return false
	}

	start, end, ok := s.settings.DayBounds(next)
	if !ok {
		s.exhausted = true
		return false
	}

	s.current = next
	s.dayStart = start
	s.workEnd = end
	s.dayEnd = s.extendedClose(end, maxDays)
	s.nightIneligibleUntil = time.Time{}
	s.overshootUsed = false
	s.plateSeq = 0

	kept := s.plates[:0]
	for _, p := range s.plates {
		if p.releaseTime.After(next) {
			kept = append(kept, p)
			s.plateSeq++
		}
	}
	s.plates = kept
	s.applyObstacles()
	return true
}

// clone produces a deep, side-effect-free copy for dry-run simulation.
func (s *printerSlot) clone() *printerSlot {
	c := *s
	c.plates = make([]plateInUse, len(s.plates))
	copy(c.plates, s.plates)
	return &c
}

func (s *printerSlot) String() string {
	return fmt.Sprintf("slot[%s @ %s]", s.printer.ID, s.current.Format(time.RFC3339))
}
