// Package deadline derives end dates and remaining-time labels from a job's
// time fields. Everything here is pure and works on plain snapshots.
package deadline

import (
	"fmt"
	"strings"
	"time"

	"engagement-engine/internal/models"
)

type Unit string

const (
	UnitHours   Unit = "hours"
	UnitDays    Unit = "days"
	UnitWeeks   Unit = "weeks"
	UnitMonths  Unit = "months"
	UnitProject Unit = "project"
)

var unitAliases = map[string]Unit{
	"hour":     UnitHours,
	"hours":    UnitHours,
	"heure":    UnitHours,
	"heures":   UnitHours,
	"day":      UnitDays,
	"days":     UnitDays,
	"jour":     UnitDays,
	"jours":    UnitDays,
	"week":     UnitWeeks,
	"weeks":    UnitWeeks,
	"semaine":  UnitWeeks,
	"semaines": UnitWeeks,
	"month":    UnitMonths,
	"months":   UnitMonths,
	"mois":     UnitMonths,
	"project":  UnitProject,
	"projet":   UnitProject,
}

// ParseUnit normalizes English and French duration units.
func ParseUnit(raw string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]
	return u, ok
}

// Source tells which fields produced an end date.
type Source string

const (
	SourceDeadline Source = "deadline"
	SourceDuration Source = "start+duration"
)

type Resolution struct {
	End    time.Time
	Source Source
}

// MaxValue is the largest accepted duration value for a unit, ten years' worth.
func MaxValue(u Unit) int {
	switch u {
	case UnitHours:
		return 10 * 365 * 24
	case UnitDays:
		return 10 * 365
	case UnitWeeks:
		return 10 * 52
	case UnitMonths:
		return 10 * 12
	default:
		return 0
	}
}

// Resolve computes the effective end date. An explicit deadline always wins;
// otherwise start + duration is used unless the unit is open-ended.
func Resolve(s models.Schedule) (Resolution, bool) {
	if s.Deadline != nil {
		return Resolution{End: *s.Deadline, Source: SourceDeadline}, true
	}

	if s.StartDate == nil || s.DurationValue == nil || s.DurationUnit == nil {
		return Resolution{}, false
	}

	n := *s.DurationValue
	if n <= 0 {
		return Resolution{}, false
	}

	unit, ok := ParseUnit(*s.DurationUnit)
	if !ok {
		return Resolution{}, false
	}

	start := *s.StartDate
	var end time.Time
	switch unit {
	case UnitHours:
		// whole days first so large values cannot overflow a Duration
		end = start.AddDate(0, 0, n/24).Add(time.Duration(n%24) * time.Hour)
	case UnitDays:
		end = start.AddDate(0, 0, n)
	case UnitWeeks:
		end = start.AddDate(0, 0, 7*n)
	case UnitMonths:
		end = AddMonths(start, n)
	default:
		return Resolution{}, false
	}

	return Resolution{End: end, Source: SourceDuration}, true
}

// EffectiveEndDate returns nil when no end date can be computed.
func EffectiveEndDate(s models.Schedule) *time.Time {
	res, ok := Resolve(s)
	if !ok {
		return nil
	}
	end := res.End
	return &end
}

// AddMonths adds calendar months, clamping to the last day of the target
// month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first.Year(), first.Month(), t.Location())
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

const ExpiringSoon = "expiring soon"

// RemainingLabel renders the time left until the end date, ranked by
// magnitude. ok is false when there is no end date or it already passed.
func RemainingLabel(s models.Schedule, now time.Time) (string, bool) {
	res, ok := Resolve(s)
	if !ok || res.End.Before(now) {
		return "", false
	}

	left := res.End.Sub(now)
	switch {
	case left > 24*time.Hour:
		return plural(int(left/(24*time.Hour)), "day"), true
	case left > time.Hour:
		return plural(int(left/time.Hour), "hour"), true
	default:
		return ExpiringSoon, true
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
