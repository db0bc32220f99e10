package deltasnow

import (
	"math"
	"time"

	"gonum.org/v1/gonum/interp"
)

// gap is a maximal run of missing values, [start, stop).
type gap struct {
	start, stop int
}

func (g gap) length() int { return g.stop - g.start }

func findGaps(hs []float64) []gap {
	var gaps []gap
	for i := 0; i < len(hs); i++ {
		if !math.IsNaN(hs[i]) {
			continue
		}
		start := i
		for i < len(hs) && math.IsNaN(hs[i]) {
			i++
		}
		gaps = append(gaps, gap{start: start, stop: i})
	}
	return gaps
}

// zeroPaddedGapMask marks gaps that end in a zero or at the series end. When
// requireLeadingZero is set the gap must also begin after a zero or at the
// series start.
func zeroPaddedGapMask(hs []float64, requireLeadingZero bool) []bool {
	mask := make([]bool, len(hs))
	for _, g := range findGaps(hs) {
		trailing := g.stop == len(hs) || isZero(hs[g.stop])
		leading := g.start == 0 || isZero(hs[g.start-1])
		if !trailing || (requireLeadingZero && !leading) {
			continue
		}
		for i := g.start; i < g.stop; i++ {
			mask[i] = true
		}
	}
	return mask
}

// smallGapMask marks gaps that have an observation on both sides, are at most
// maxLength steps long and are regularly spaced from the observation before
// the gap to the observation after it.
func smallGapMask(hs []float64, dates []time.Time, maxLength int) []bool {
	mask := make([]bool, len(hs))
	for _, g := range findGaps(hs) {
		if g.start == 0 || g.stop == len(hs) || g.length() > maxLength {
			continue
		}
		if ok, _ := continuousSteps(dates[g.start-1 : g.stop+1]); !ok {
			continue
		}
		for i := g.start; i < g.stop; i++ {
			mask[i] = true
		}
	}
	return mask
}

// fillSmallGaps linearly interpolates the gaps selected by smallGapMask and
// returns the filled copy together with the number of values filled.
func fillSmallGaps(hs []float64, dates []time.Time, maxLength int) ([]float64, int) {
	filled := make([]float64, len(hs))
	copy(filled, hs)

	mask := smallGapMask(hs, dates, maxLength)
	count := 0
	for _, g := range findGaps(hs) {
		if !mask[g.start] {
			continue
		}
		var pl interp.PiecewiseLinear
		xs := []float64{float64(g.start - 1), float64(g.stop)}
		if err := pl.Fit(xs, []float64{hs[g.start-1], hs[g.stop]}); err != nil {
			// left missing, reported by checkMissing
			continue
		}
		for i := g.start; i < g.stop; i++ {
			filled[i] = pl.Predict(float64(i))
			count++
		}
	}
	return filled, count
}
