package deltasnow

import (
	"math"
	"time"
)

// ZeroDepth is the depth in metres at or below which the ground counts as snow free.
const ZeroDepth = 1e-9

// Observation is a single snow depth reading. HS is in the configured input
// unit; math.NaN() marks a missing value.
type Observation struct {
	Date time.Time
	HS   float64
}

// Missing reports whether the observation carries no depth value
func (o Observation) Missing() bool {
	return math.IsNaN(o.HS)
}

func isZero(hs float64) bool {
	return hs <= ZeroDepth
}

// checkDates requires a strictly increasing date index.
func checkDates(obs []Observation) error {
	for i := 1; i < len(obs); i++ {
		prev, cur := obs[i-1].Date, obs[i].Date
		switch {
		case cur.Equal(prev):
			return validationf("duplicate date %s at index %d", cur.Format(time.RFC3339), i)
		case cur.Before(prev):
			return validationf("dates are not sorted: %s follows %s at index %d",
				cur.Format(time.RFC3339), prev.Format(time.RFC3339), i)
		}
	}
	return nil
}

// normalize converts depths to metres. Missing values stay NaN.
func normalize(obs []Observation, unit Unit) ([]float64, error) {
	factor, err := unit.Factor()
	if err != nil {
		return nil, err
	}

	hs := make([]float64, len(obs))
	for i, o := range obs {
		switch {
		case o.Missing():
			hs[i] = math.NaN()
		case math.IsInf(o.HS, 0):
			return nil, validationf("snow depth on %s is not finite", o.Date.Format("2006-01-02"))
		case o.HS < 0:
			return nil, validationf("snow depth on %s is negative (%v)", o.Date.Format("2006-01-02"), o.HS)
		default:
			hs[i] = o.HS * factor
		}
	}
	return hs, nil
}

// continuousSteps reports whether dates are evenly spaced and returns the
// spacing. Fewer than two dates are continuous with an undefined (zero) step.
func continuousSteps(dates []time.Time) (bool, time.Duration) {
	if len(dates) < 2 {
		return true, 0
	}
	step := dates[1].Sub(dates[0])
	for i := 2; i < len(dates); i++ {
		if dates[i].Sub(dates[i-1]) != step {
			return false, step
		}
	}
	return true, step
}

// nonzeroChunks returns start and stop indices of runs of snow. A run starts
// at the zero preceding the first non-zero value (or at index 0) and stops at
// the next zero (exclusive) or the series end.
func nonzeroChunks(hs []float64) (starts, stops []int) {
	n := len(hs)
	if n == 0 {
		return nil, nil
	}
	if !isZero(hs[0]) {
		starts = append(starts, 0)
	}
	for i := 0; i < n; i++ {
		if i < n-1 && isZero(hs[i]) && !isZero(hs[i+1]) {
			starts = append(starts, i)
		}
		if i > 0 && isZero(hs[i]) && !isZero(hs[i-1]) {
			stops = append(stops, i)
		}
	}
	if len(stops) < len(starts) {
		stops = append(stops, n)
	}
	return starts, stops
}

// resolution determines the model time step. A regularly spaced series uses
// its spacing. Otherwise every snow chunk must be regularly spaced with one
// common spacing; breaks are only allowed while the ground is snow free.
func resolution(dates []time.Time, hs []float64) (time.Duration, error) {
	if ok, step := continuousSteps(dates); ok {
		if step == 0 {
			step = defaultTimestep * time.Hour
		}
		return step, nil
	}

	starts, stops := nonzeroChunks(hs)
	var common time.Duration
	for c := range starts {
		ok, step := continuousSteps(dates[starts[c]:stops[c]])
		if !ok {
			return 0, validationf("dates must be regularly spaced within periods of snow cover, break near %s",
				dates[starts[c]].Format("2006-01-02"))
		}
		if step == 0 {
			continue
		}
		if common == 0 {
			common = step
		} else if step != common {
			return 0, validationf("periods of snow cover have different time steps (%s and %s)", common, step)
		}
	}
	if common == 0 {
		common = defaultTimestep * time.Hour
	}
	return common, nil
}
