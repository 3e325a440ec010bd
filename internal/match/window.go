package match

import (
	"fmt"
	"time"

	"vocab-battle/internal/domain"
)

// Period names accepted by WindowFor.
const (
	PeriodAll   = "all"
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// WindowFor maps a period name to a window ending at now.
func WindowFor(period string, now time.Time) (domain.Window, error) {
	switch period {
	case "", PeriodAll:
		return domain.Window{}, nil
	case PeriodDay:
		return domain.Window{From: StartOfDay(now)}, nil
	case PeriodWeek:
		return domain.Window{From: StartOfWeek(now)}, nil
	case PeriodMonth:
		return domain.Window{From: StartOfMonth(now)}, nil
	default:
		return domain.Window{}, fmt.Errorf("%w: unknown period %q", domain.ErrInvalidInput, period)
	}
}
