package report

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds season figures of one modelled SWE series
type Summary struct {
	PeakSWE  float64
	PeakDate time.Time
	MeanSWE  float64 // over days with snow
	SnowDays int
	Missing  int
}

// Summarize computes the season summary of a SWE series
func Summarize(dates []time.Time, swe []float64) Summary {
	var s Summary
	snow := make([]float64, 0, len(swe))
	peakIdx := -1

	for i, v := range swe {
		switch {
		case math.IsNaN(v):
			s.Missing++
		case v > 0:
			snow = append(snow, v)
			if peakIdx < 0 || v > swe[peakIdx] {
				peakIdx = i
			}
		}
	}

	s.SnowDays = len(snow)
	if len(snow) == 0 {
		return s
	}
	s.PeakSWE = floats.Max(snow)
	s.PeakDate = dates[peakIdx]
	s.MeanSWE = stat.Mean(snow, nil)
	return s
}
