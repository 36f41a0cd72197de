package report

import (
	"time"

	"github.com/cloud-gov/tally/internal/model"
)

// contribution is the value one snapshot adds to a report.
type contribution struct {
	at    time.Time
	value float64
}

func contributions(snaps []model.TallySnapshot, types []model.HardwareMeasurementType, metric model.MetricID) []contribution {
	out := make([]contribution, 0, len(snaps))
	for i := range snaps {
		out = append(out, contribution{at: snaps[i].SnapshotDate, value: snaps[i].Sum(types, metric)})
	}
	return out
}

// fillPoints returns one point per boundary holding the sum of the contributions in that period. Periods without contributions get a zero placeholder with HasData false.
func fillPoints(g model.Granularity, boundaries []time.Time, cs []contribution) []Point {
	byPeriod := map[time.Time]float64{}
	seen := map[time.Time]bool{}
	for _, c := range cs {
		b := g.Start(c.at)
		byPeriod[b] += c.value
		seen[b] = true
	}
	points := make([]Point, len(boundaries))
	for i, b := range boundaries {
		v := byPeriod[b]
		points[i] = Point{Date: b, Value: &v, HasData: seen[b]}
	}
	return points
}

// fillRunningTotals returns, per boundary, the sum of every contribution from the start of the boundary's calendar month through the end of its period. Periods of a month or longer are summed on their own. Boundaries after now have no value.
func fillRunningTotals(g model.Granularity, boundaries []time.Time, cs []contribution, now time.Time) []Point {
	points := make([]Point, len(boundaries))
	for i, b := range boundaries {
		points[i] = Point{Date: b}
		if b.After(now) {
			continue
		}
		from, to := runningWindow(g, b)
		var total float64
		var hasData bool
		for _, c := range cs {
			if c.at.Before(from) || !c.at.Before(to) {
				continue
			}
			total += c.value
			hasData = true
		}
		points[i].Value = &total
		points[i].HasData = hasData
	}
	return points
}

// runningWindow returns the half-open interval a running total at boundary b covers.
func runningWindow(g model.Granularity, b time.Time) (from, to time.Time) {
	to = g.Next(b)
	if !g.FinerThan(model.Monthly) {
		return b, to
	}
	from = model.Monthly.Start(b)
	if monthEnd := model.Monthly.Next(from); to.After(monthEnd) {
		to = monthEnd
	}
	return from, to
}
