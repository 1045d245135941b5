package models

import (
	"fmt"
	"time"
)

// AfterHoursBehavior is the factory-wide policy for cycles outside work hours.
type AfterHoursBehavior string

const (
	AfterHoursNone           AfterHoursBehavior = "NONE"
	AfterHoursOneCycleEOD    AfterHoursBehavior = "ONE_CYCLE_END_OF_DAY"
	AfterHoursFullAutomation AfterHoursBehavior = "FULL_AUTOMATION"
)

// DaySchedule describes operating hours for one weekday.
type DaySchedule struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// FactorySettings is the operating-hours and capacity policy snapshot the
// planner consumes. Week is keyed by time.Weekday (0 = Sunday).
type FactorySettings struct {
	Week                 map[time.Weekday]DaySchedule `json:"week"`
	AfterHours           AfterHoursBehavior           `json:"after_hours"`
	TransitionMinutes    int                          `json:"transition_minutes"`
	GlobalPlateInventory int                          `json:"global_plate_inventory"`
}

// ScheduleFor returns the schedule for the weekday of t.
func (s FactorySettings) ScheduleFor(t time.Time) (DaySchedule, bool) {
	day, ok := s.Week[t.Weekday()]
	if !ok {
		return DaySchedule{}, false
	}
	return day, day.Enabled
}

// DayBounds resolves the work window for the calendar day of t in t's
// location. The boolean is false on non-working days.
func (s FactorySettings) DayBounds(t time.Time) (start, end time.Time, ok bool) {
	day, enabled := s.ScheduleFor(t)
	if !enabled {
		return time.Time{}, time.Time{}, false
	}
	start, err := atClock(t, day.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = atClock(t, day.EndTime)
	if err != nil || !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// NextWorkdayStart finds the first work-window opening strictly after t,
// scanning at most maxDays calendar days ahead.
func (s FactorySettings) NextWorkdayStart(t time.Time, maxDays int) (time.Time, bool) {
	day := t
	for i := 0; i <= maxDays; i++ {
		if start, _, ok := s.DayBounds(day); ok && start.After(t) {
			return start, true
		}
		day = startOfDay(day).AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

// HasWorkingDays reports whether at least one weekday is enabled.
func (s FactorySettings) HasWorkingDays() bool {
	for _, day := range s.Week {
		if day.Enabled {
			return true
		}
	}
	return false
}

func atClock(t time.Time, clock string) (time.Time, error) {
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return time.Time{}, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return time.Time{}, fmt.Errorf("invalid clock value %q", clock)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), h, m, 0, 0, t.Location()), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DefaultWeek builds a Monday-Friday 08:00-17:00 schedule.
func DefaultWeek() map[time.Weekday]DaySchedule {
	week := make(map[time.Weekday]DaySchedule, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		enabled := d != time.Saturday && d != time.Sunday
		week[d] = DaySchedule{Enabled: enabled, StartTime: "08:00", EndTime: "17:00"}
	}
	return week
}
