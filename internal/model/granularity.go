package model

import (
	"slices"
	"strings"
	"time"
)

// Granularity is the time resolution of a snapshot or report. Granularities are totally ordered from [Hourly] (finest) to [Yearly] (coarsest).
type Granularity string

const (
	Hourly    Granularity = "HOURLY"
	Daily     Granularity = "DAILY"
	Weekly    Granularity = "WEEKLY"
	Monthly   Granularity = "MONTHLY"
	Quarterly Granularity = "QUARTERLY"
	Yearly    Granularity = "YEARLY"
)

var granularities = []Granularity{Hourly, Daily, Weekly, Monthly, Quarterly, Yearly}

// Granularities lists every granularity from finest to coarsest.
func Granularities() []Granularity { return slices.Clone(granularities) }

// ParseGranularity is strict: ok is false when s names no granularity.
func ParseGranularity(s string) (g Granularity, ok bool) {
	g = parse(strings.TrimSpace(s), granularities)
	return g, g != ""
}

func (g Granularity) rank() int {
	for i, v := range granularities {
		if v == g {
			return i
		}
	}
	return -1
}

func (g Granularity) Valid() bool { return g.rank() >= 0 }

// FinerThan reports whether g has a higher resolution than other, e.g. Hourly is finer than Daily.
func (g Granularity) FinerThan(other Granularity) bool {
	return g.rank() < other.rank()
}

// Start returns the start of the period containing t, in UTC. Weeks start on Sunday.
func (g Granularity) Start(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case Hourly:
		return t.Truncate(time.Hour)
	case Daily:
		return day
	case Weekly:
		return day.AddDate(0, 0, -int(day.Weekday()))
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		m := ((t.Month()-1)/3)*3 + 1
		return time.Date(t.Year(), m, 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

// Next advances t by exactly one period.
func (g Granularity) Next(t time.Time) time.Time {
	switch g {
	case Hourly:
		return t.Add(time.Hour)
	case Daily:
		return t.AddDate(0, 0, 1)
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return t.AddDate(0, 1, 0)
	case Quarterly:
		return t.AddDate(0, 3, 0)
	case Yearly:
		return t.AddDate(1, 0, 0)
	default:
		return t
	}
}

// End returns the last instant of the period containing t.
func (g Granularity) End(t time.Time) time.Time {
	return g.Next(g.Start(t)).Add(-time.Nanosecond)
}

// MaxBoundaries caps the periods a single report may span.
const MaxBoundaries = 10000

// ExceedsBoundaries reports whether the range from beginning through ending spans more than limit periods of g. It stops counting at limit+1.
func (g Granularity) ExceedsBoundaries(beginning, ending time.Time, limit int) bool {
	if !g.Valid() || ending.Before(beginning) {
		return false
	}
	last := g.Start(ending)
	n := 0
	for b := g.Start(beginning); !b.After(last); b = g.Next(b) {
		if n++; n > limit {
			return true
		}
	}
	return false
}

// Boundaries returns the start of every period from the one containing beginning through the one containing ending, inclusive. It returns nil for an invalid granularity or an inverted range.
func (g Granularity) Boundaries(beginning, ending time.Time) []time.Time {
	if !g.Valid() || ending.Before(beginning) {
		return nil
	}
	last := g.Start(ending)
	var out []time.Time
	for b := g.Start(beginning); !b.After(last); b = g.Next(b) {
		out = append(out, b)
	}
	return out
}
