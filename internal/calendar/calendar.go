// Package calendar measures how much of a time interval falls inside
// configured business hours.
package calendar

import (
	"fmt"
	"time"

	"github.com/hylla/sojourn/internal/domain"
)

// dateLayout keys the holiday set by local calendar date.
const dateLayout = "2006-01-02"

// Config describes a business-hours calendar: a daily working window in a
// named timezone, with optional weekend and holiday exclusion. The daily
// window must not wrap past midnight.
type Config struct {
	DayStart        string   `json:"day_start"`
	DayEnd          string   `json:"day_end"`
	Timezone        string   `json:"timezone"`
	ExcludeWeekends bool     `json:"exclude_weekends"`
	Holidays        []string `json:"holidays,omitempty"`
}

// Calendar is a validated, reusable overlap measure. Construct once with
// New and share across many Overlap calls.
type Calendar struct {
	loc             *time.Location
	startHour       int
	startMinute     int
	endHour         int
	endMinute       int
	excludeWeekends bool
	holidays        map[string]struct{}
}

// New validates cfg and resolves its timezone. Day start must precede day
// end within the same calendar day.
func New(cfg Config) (*Calendar, error) {
	start, err := parseClock(cfg.DayStart)
	if err != nil {
		return nil, fmt.Errorf("%w: day_start: %v", domain.ErrInvalidCalendar, err)
	}
	end, err := parseClock(cfg.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: day_end: %v", domain.ErrInvalidCalendar, err)
	}
	if start.hour*60+start.minute >= end.hour*60+end.minute {
		return nil, fmt.Errorf("%w: day start %s is not before day end %s", domain.ErrInvalidCalendar, cfg.DayStart, cfg.DayEnd)
	}

	tzName := cfg.Timezone
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", domain.ErrInvalidCalendar, cfg.Timezone, err)
	}

	holidays := make(map[string]struct{}, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		day, err := time.Parse(dateLayout, h)
		if err != nil {
			return nil, fmt.Errorf("%w: holiday %q: %v", domain.ErrInvalidCalendar, h, err)
		}
		holidays[day.Format(dateLayout)] = struct{}{}
	}

	return &Calendar{
		loc:             loc,
		startHour:       start.hour,
		startMinute:     start.minute,
		endHour:         end.hour,
		endMinute:       end.minute,
		excludeWeekends: cfg.ExcludeWeekends,
		holidays:        holidays,
	}, nil
}

// Overlap returns the number of seconds of [start, end) that fall inside
// the calendar's working windows. It walks calendar days in the configured
// zone, skipping excluded weekends and holidays, and sums the positive
// intersection of each day's window with the interval. Intervals that end
// before they start measure zero.
func (c *Calendar) Overlap(start, end time.Time) float64 {
	start = start.In(c.loc)
	end = end.In(c.loc)
	if !end.After(start) {
		return 0
	}

	total := 0.0
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, c.loc)
	lastDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, c.loc)
	for !day.After(lastDay) {
		if c.workingDay(day) {
			dayStart := time.Date(day.Year(), day.Month(), day.Day(), c.startHour, c.startMinute, 0, 0, c.loc)
			dayEnd := time.Date(day.Year(), day.Month(), day.Day(), c.endHour, c.endMinute, 0, 0, c.loc)
			s := maxTime(start, dayStart)
			e := minTime(end, dayEnd)
			if e.After(s) {
				total += e.Sub(s).Seconds()
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return total
}

// workingDay reports whether the calendar counts the given local midnight's day.
func (c *Calendar) workingDay(day time.Time) bool {
	if c.excludeWeekends {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
	}
	_, holiday := c.holidays[day.Format(dateLayout)]
	return !holiday
}

type clockTime struct {
	hour   int
	minute int
}

func parseClock(s string) (clockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return clockTime{}, err
	}
	return clockTime{hour: t.Hour(), minute: t.Minute()}, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
