package calendar

import (
	"fmt"
	"time"
)

// Day is one cell of a month grid. Date is empty for the leading and
// trailing padding cells and for days earlier than today; IsPast and IsToday
// are derived independently so "today" can be styled on its own.
type Day struct {
	Date    Date `json:"date"`
	IsPast  bool `json:"is_past"`
	IsToday bool `json:"is_today"`
}

// Empty reports whether the cell renders blank.
func (d Day) Empty() bool {
	return d.Date.IsZero()
}

// BuildMonthGrid lays out the month containing monthAnchor in Sunday-first
// weeks. Only days on or after today carry a date.
func BuildMonthGrid(monthAnchor, today time.Time) []Day {
	first := time.Date(monthAnchor.Year(), monthAnchor.Month(), 1, 0, 0, 0, 0, monthAnchor.Location())
	offset := int(first.Weekday())
	daysInMonth := first.AddDate(0, 1, -1).Day()
	todayDate := DateOf(today)

	total := offset + daysInMonth
	if rem := total % 7; rem != 0 {
		total += 7 - rem
	}

	grid := make([]Day, total)
	for day := 1; day <= daysInMonth; day++ {
		date := Date{Year: first.Year(), Month: first.Month(), Day: day}
		cmp := date.Compare(todayDate)
		cell := Day{IsPast: cmp < 0, IsToday: cmp == 0}
		if cmp >= 0 {
			cell.Date = date
		}
		grid[offset+day-1] = cell
	}
	return grid
}

// Month identifies a displayed month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("calendar: invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Anchor returns the first day of m at local midnight in loc.
func (m Month) Anchor(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// CanGoPrev reports whether the month before m is reachable. Months before
// the real current month never are.
func (m Month) CanGoPrev(today time.Time) bool {
	cur := MonthOf(today)
	if m.Year != cur.Year {
		return m.Year > cur.Year
	}
	return m.Month > cur.Month
}

// Prev steps one month back, refusing when that would leave the current month.
func (m Month) Prev(today time.Time) (Month, bool) {
	if !m.CanGoPrev(today) {
		return m, false
	}
	return MonthOf(m.Anchor(time.UTC).AddDate(0, -1, 0)), true
}

// Next steps one month forward.
func (m Month) Next() Month {
	return MonthOf(m.Anchor(time.UTC).AddDate(0, 1, 0))
}
