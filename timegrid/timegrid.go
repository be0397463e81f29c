// Package timegrid builds the multiple-shooting time grid, honoring event
// times by duplicating the grid point at every switch so dynamics-mode
// jumps never straddle a shooting sample.
package timegrid

import (
	"math"
	"sort"

	"msqp/ocp"
)

// Build produces t0..tf with nominal spacing dt, where every interior
// event e in (t0, tf) appears twice -- once as the close of the interval
// ending at e and once as the open of the next interval at e+eps -- and
// every other sample is spaced as close to dt as an even subdivision of
// its segment allows. If t0 or tf coincides with an event (within eps), it
// is not duplicated.
func Build(t0, tf, dt float64, events []float64, eps float64) ocp.TimeGrid {
	interior := interiorEvents(events, t0, tf, eps)

	starts := make([]float64, 0, len(interior)+1)
	ends := make([]float64, 0, len(interior)+1)
	cursor := t0
	for _, e := range interior {
		starts = append(starts, cursor)
		ends = append(ends, e)
		cursor = e + eps
	}
	starts = append(starts, cursor)
	ends = append(ends, tf)

	grid := make(ocp.TimeGrid, 0, len(starts)*4)
	for i := range starts {
		grid = append(grid, buildSegment(starts[i], ends[i], dt)...)
	}
	return grid
}

// buildSegment lays out an even subdivision of [a, b] with step as close
// to dt as an integer number of subdivisions allows (a tie-break of "snap
// nominal samples within eps of an event to it" is satisfied for free:
// segment boundaries are already exactly the events).
func buildSegment(a, b, dt float64) []float64 {
	if b <= a {
		return []float64{a}
	}
	n := 1
	if dt > 0 {
		n = int(math.Round((b - a) / dt))
		if n < 1 {
			n = 1
		}
	}
	step := (b - a) / float64(n)
	seg := make([]float64, n+1)
	for k := 0; k < n; k++ {
		seg[k] = a + float64(k)*step
	}
	seg[n] = b
	return seg
}

// interiorEvents returns the events strictly inside (t0, tf) -- i.e. not
// within eps of either boundary -- sorted and deduplicated.
func interiorEvents(events []float64, t0, tf, eps float64) []float64 {
	sorted := append([]float64(nil), events...)
	sort.Float64s(sorted)
	out := make([]float64, 0, len(sorted))
	for _, e := range sorted {
		if e <= t0+eps || e >= tf-eps {
			continue
		}
		if len(out) > 0 && e-out[len(out)-1] <= eps {
			continue
		}
		out = append(out, e)
	}
	return out
}
