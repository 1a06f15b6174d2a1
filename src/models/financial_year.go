package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FinancialYear is an Australian tax year: 1 July of StartYear through
// 30 June of the following year. Reports may be filtered to one.
type FinancialYear struct {
	StartYear int
}

// ParseFinancialYear accepts "2024-2025" or the shorthand "2024" (the year
// the financial year starts in).
func ParseFinancialYear(s string) (FinancialYear, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return FinancialYear{}, fmt.Errorf("empty financial year")
	}
	parts := strings.SplitN(trimmed, "-", 2)
	start, err := strconv.Atoi(parts[0])
	if err != nil || start < 1900 || start > 2200 {
		return FinancialYear{}, fmt.Errorf("invalid financial year %q", s)
	}
	if len(parts) == 2 {
		end, err := strconv.Atoi(parts[1])
		if err != nil || end != start+1 {
			return FinancialYear{}, fmt.Errorf("invalid financial year %q: expected consecutive years", s)
		}
	}
	return FinancialYear{StartYear: start}, nil
}

// Start is 1 July of the starting year.
func (fy FinancialYear) Start() Date {
	return NewDate(fy.StartYear, time.July, 1)
}

// End is 30 June of the following year.
func (fy FinancialYear) End() Date {
	return NewDate(fy.StartYear+1, time.June, 30)
}

// Contains reports whether the date falls inside the financial year,
// boundaries included.
func (fy FinancialYear) Contains(d Date) bool {
	return !d.Before(fy.Start().Time) && !d.After(fy.End().Time)
}

func (fy FinancialYear) String() string {
	return fmt.Sprintf("%d-%d", fy.StartYear, fy.StartYear+1)
}
