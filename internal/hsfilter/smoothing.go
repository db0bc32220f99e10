package hsfilter

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/chrissnell/deltasnow/pkg/deltasnow"
)

// SmoothingParams defines parameters for the quantile smoothing + rate limiting filter.
// Depths and rates are in the unit of the series being filtered.
type SmoothingParams struct {
	// Window is the half-window around each point, e.g. 3h looks at ±3 hours
	Window time.Duration

	// Quantile is the upper quantile taken in each window (0-1, e.g. 0.85).
	// Ultrasonic sensors mostly fail low, so an upper quantile rejects dropouts.
	Quantile float64

	// MaxUpRate is the largest plausible accumulation per hour
	MaxUpRate float64

	// MaxDownRate is the largest plausible settling or melt per hour
	MaxDownRate float64
}

// DefaultSmoothingParams returns defaults for hourly depths in metres
func DefaultSmoothingParams() SmoothingParams {
	return SmoothingParams{
		Window:      3 * time.Hour,
		Quantile:    0.85,
		MaxUpRate:   0.10,
		MaxDownRate: 0.04,
	}
}

// Validate checks the parameter ranges
func (p SmoothingParams) Validate() error {
	if p.Window < 0 {
		return errors.New("smoothing window must not be negative")
	}
	if p.Quantile < 0 || p.Quantile > 1 || math.IsNaN(p.Quantile) {
		return errors.New("smoothing quantile must be in [0,1]")
	}
	if !(p.MaxUpRate > 0) || !(p.MaxDownRate > 0) {
		return errors.New("smoothing rate limits must be positive")
	}
	return nil
}

// Smooth applies local quantile smoothing and then rate limiting to obs.
// Missing and snow-free observations are kept as they are and do not take
// part in the windows.
func Smooth(obs []deltasnow.Observation, params SmoothingParams) ([]deltasnow.Observation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	smoothed := LocalQuantileSmooth(obs, params)
	limited := ApplyRateLimiting(obs, smoothed, params)

	out := make([]deltasnow.Observation, len(obs))
	for i, o := range obs {
		out[i] = o
		if !o.Missing() && o.HS != 0 {
			out[i].HS = limited[i]
		}
	}
	return out, nil
}

func usable(o deltasnow.Observation) bool {
	return !o.Missing() && o.HS != 0
}

// LocalQuantileSmooth computes, for each usable point, the configured quantile
// of all usable depths within ±Window. Other points are returned unchanged.
// obs must be in ascending date order.
func LocalQuantileSmooth(obs []deltasnow.Observation, params SmoothingParams) []float64 {
	n := len(obs)
	smoothed := make([]float64, n)
	window := make([]float64, 0, 16)

	// [lo, hi) spans the observations inside the current window
	lo, hi := 0, 0
	for i := 0; i < n; i++ {
		if !usable(obs[i]) {
			smoothed[i] = obs[i].HS
			continue
		}

		windowStart := obs[i].Date.Add(-params.Window)
		windowEnd := obs[i].Date.Add(params.Window)
		for lo < n && obs[lo].Date.Before(windowStart) {
			lo++
		}
		for hi < n && !obs[hi].Date.After(windowEnd) {
			hi++
		}

		window = window[:0]
		for j := lo; j < hi; j++ {
			if usable(obs[j]) {
				window = append(window, obs[j].HS)
			}
		}
		sort.Float64s(window)

		// average a band of up to three values starting at the quantile
		lowIdx := int(math.Floor(params.Quantile * float64(len(window)-1)))
		highIdx := min(lowIdx+2, len(window)-1)
		if highIdx-lowIdx < 2 {
			lowIdx = max(highIdx-2, 0)
		}

		sum := 0.0
		for k := lowIdx; k <= highIdx; k++ {
			sum += window[k]
		}
		smoothed[i] = sum / float64(highIdx-lowIdx+1)
	}

	return smoothed
}

// ApplyRateLimiting caps the change between consecutive usable points to
// the configured rates. A snow-free observation restarts the limiter.
func ApplyRateLimiting(obs []deltasnow.Observation, smoothed []float64, params SmoothingParams) []float64 {
	limited := make([]float64, len(obs))
	copy(limited, smoothed)

	var prevDepth float64
	var prevTime time.Time
	started := false

	for i, o := range obs {
		if o.Missing() {
			continue
		}
		if o.HS == 0 {
			started = false
			continue
		}
		if !started {
			prevDepth, prevTime, started = smoothed[i], o.Date, true
			continue
		}

		dtHours := o.Date.Sub(prevTime).Hours()
		if dtHours <= 0 {
			// Time didn't advance, keep previous depth
			limited[i] = prevDepth
			continue
		}

		rate := (smoothed[i] - prevDepth) / dtHours
		rate = math.Max(-params.MaxDownRate, math.Min(params.MaxUpRate, rate))

		limited[i] = prevDepth + rate*dtHours
		prevDepth = limited[i]
		prevTime = o.Date
	}

	return limited
}
