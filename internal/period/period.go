// Package period computes the week, month and year windows used to scope
// task views, and moves between them.
//
// Weeks start on Monday. All ranges are inclusive and live in the location
// of the date they were computed from.
package period

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownUnit      = errors.New("unknown period unit")
	ErrUnknownDirection = errors.New("unknown direction")
)

type Unit int

const (
	All Unit = iota
	Week
	Month
	Year
)

func (u Unit) String() string {
	switch u {
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "all"
	}
}

// ParseUnit accepts "all", "week", "month" and "year". An empty string is All.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "", "all":
		return All, nil
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	case "year":
		return Year, nil
	}
	return All, fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

type Direction int

const (
	Previous Direction = iota
	Next
)

func (d Direction) String() string {
	if d == Next {
		return "next"
	}
	return "previous"
}

// ParseDirection accepts "next" and "prev"/"previous".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "next":
		return Next, nil
	case "prev", "previous":
		return Previous, nil
	}
	return Previous, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Range is an inclusive time window.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within r, boundaries included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func startOfDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Location())
}

// Today returns the start of the day containing now.
func Today(now time.Time) time.Time {
	return startOfDay(now)
}

// WeekRange returns Monday 00:00 through the last instant of Sunday.
func WeekRange(d time.Time) Range {
	offset := (int(d.Weekday()) + 6) % 7
	start := startOfDay(d).AddDate(0, 0, -offset)
	return Range{Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}
}

func MonthRange(d time.Time) Range {
	y, m, _ := d.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, d.Location())
	return Range{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

func YearRange(d time.Time) Range {
	start := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, d.Location())
	return Range{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
}

// RangeFor returns the window of the given unit containing d. All has no
// window and reports false.
func RangeFor(d time.Time, u Unit) (Range, bool) {
	switch u {
	case Week:
		return WeekRange(d), true
	case Month:
		return MonthRange(d), true
	case Year:
		return YearRange(d), true
	}
	return Range{}, false
}

// Navigate moves d one unit forward or back. Month and year steps clamp the
// day to the end of the target month, so Jan 31 + 1 month is Feb 28/29.
// All leaves d unchanged.
func Navigate(d time.Time, dir Direction, u Unit) time.Time {
	step := -1
	if dir == Next {
		step = 1
	}
	switch u {
	case Week:
		return d.AddDate(0, 0, 7*step)
	case Month:
		return addMonths(d, step)
	case Year:
		return addMonths(d, 12*step)
	}
	return d
}

func addMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
	if last := daysIn(first); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(d time.Time) int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, d.Location()).Day()
}

// IsCurrentPeriod reports whether d falls in the same week, month or year as
// ref. Every date is in the current period of All.
func IsCurrentPeriod(d time.Time, u Unit, ref time.Time) bool {
	d = d.In(ref.Location())
	switch u {
	case Week:
		return WeekRange(d).Start.Equal(WeekRange(ref).Start)
	case Month:
		return d.Year() == ref.Year() && d.Month() == ref.Month()
	case Year:
		return d.Year() == ref.Year()
	}
	return true
}

// FormatRange renders a label for the window: "Jan 02 - Jan 08, 2006" for a
// week, "January 2006" for a month, "2006" for a year.
func FormatRange(r Range, u Unit) string {
	switch u {
	case Month:
		return r.Start.Format("January 2006")
	case Year:
		return r.Start.Format("2006")
	case All:
		return "All time"
	}
	return r.Start.Format("Jan 02") + " - " + r.End.Format("Jan 02, 2006")
}
