package attendance

import (
	"time"

	"github.com/pkg/errors"
)

type RangeKind string

const (
	RangeWeek    RangeKind = "week"
	RangeMonth   RangeKind = "month"
	RangeQuarter RangeKind = "quarter"
	RangeAll     RangeKind = "all"
)

var ErrInvalidRange = errors.New("range must be one of week, month, quarter or all")

// ParseRangeKind defaults to a week.
func ParseRangeKind(s string) (RangeKind, error) {
	switch k := RangeKind(s); k {
	case "":
		return RangeWeek, nil
	case RangeWeek, RangeMonth, RangeQuarter, RangeAll:
		return k, nil
	}
	return "", ErrInvalidRange
}

// DateRange is the day interval [From, To). A zero bound is open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r DateRange) Contains(day time.Time) bool {
	if !r.From.IsZero() && day.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !day.Before(r.To) {
		return false
	}
	return true
}

// RangeEndingAt returns the range of the given kind that ends right after `lastDay`.
func RangeEndingAt(kind RangeKind, lastDay time.Time) DateRange {
	end := lastDay.AddDate(0, 0, 1)
	switch kind {
	case RangeWeek:
		return DateRange{From: end.AddDate(0, 0, -7), To: end}
	case RangeMonth:
		return DateRange{From: end.AddDate(0, -1, 0), To: end}
	case RangeQuarter:
		return DateRange{From: end.AddDate(0, -3, 0), To: end}
	}
	return DateRange{}
}
