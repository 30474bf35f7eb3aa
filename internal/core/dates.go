package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var ErrInvalidPeriod = errors.New("invalid period: expected YYYY-MM, \"todos\" or \"all\"")

// Today returns the calendar date of now in now's location.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now)
}

// DaysIn returns the number of days of the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateIn builds a date, normalizing month overflow and clamping day to the
// last day of the resulting month. DateIn(2024, 14, 31) is 2025-02-28.
func DateIn(year int, month time.Month, day int) civil.Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	y, m := first.Year(), first.Month()
	if last := DaysIn(y, m); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return civil.Date{Year: y, Month: m, Day: day}
}

// AddMonthsClamped moves d by n calendar months keeping its day of month
// when it exists, otherwise the last day of the target month.
func AddMonthsClamped(d civil.Date, n int) civil.Date {
	return DateIn(d.Year, d.Month+time.Month(n), d.Day)
}

// MonthKey formats the YYYY-MM bucket of d.
func MonthKey(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

func SameMonth(a, b civil.Date) bool {
	return a.Year == b.Year && a.Month == b.Month
}

// LastDayOfMonth returns the last calendar day of d's month.
func LastDayOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: DaysIn(d.Year, d.Month)}
}

// Period selects either all time or one calendar month.
type Period struct {
	All   bool
	Year  int
	Month time.Month
}

const allTimeKey = "todos"

func AllTime() Period {
	return Period{All: true}
}

func MonthPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod reads the month selector used by the dashboard endpoints.
// An empty value selects the month of today.
func ParsePeriod(value string, today civil.Date) (Period, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "":
		return MonthPeriod(today.Year, today.Month), nil
	case allTimeKey, "all":
		return AllTime(), nil
	}
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	return MonthPeriod(t.Year(), t.Month()), nil
}

// Key is a stable identifier usable as a cache key.
func (p Period) Key() string {
	if p.All {
		return allTimeKey
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) String() string {
	return p.Key()
}

// Contains reports whether d falls in the period, first to last day inclusive.
func (p Period) Contains(d civil.Date) bool {
	if p.All {
		return true
	}
	return d.Year == p.Year && d.Month == p.Month
}

// FirstDay and LastDay bound a month period. They are meaningless for All.
func (p Period) FirstDay() civil.Date {
	return civil.Date{Year: p.Year, Month: p.Month, Day: 1}
}

func (p Period) LastDay() civil.Date {
	return LastDayOfMonth(p.FirstDay())
}
