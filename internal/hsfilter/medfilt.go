// Package hsfilter removes single-step spikes from snow depth series before
// they reach the model.
package hsfilter

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrissnell/deltasnow/pkg/deltasnow"
)

// MedFilt applies a running median of width kernelSize. Windows are padded
// by repeating the edge values and NaN entries are left out of the window;
// a window holding only NaN yields NaN.
// kernelSize must be a positive odd integer
func MedFilt(data []float64, kernelSize int) ([]float64, error) {
	if kernelSize < 1 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("kernel size must be a positive odd integer, got %d", kernelSize)
	}
	n := len(data)
	if n == 0 {
		return nil, nil
	}

	half := kernelSize / 2
	result := make([]float64, n)
	window := make([]float64, 0, kernelSize)

	for i := 0; i < n; i++ {
		window = window[:0]

		for j := -half; j <= half; j++ {
			idx := min(max(i+j, 0), n-1)
			if !math.IsNaN(data[idx]) {
				window = append(window, data[idx])
			}
		}

		if len(window) == 0 {
			result[i] = math.NaN()
			continue
		}
		sort.Float64s(window)
		m := len(window) / 2
		if len(window)%2 == 1 {
			result[i] = window[m]
		} else {
			result[i] = (window[m-1] + window[m]) / 2
		}
	}
	return result, nil
}

// Despike returns a copy of obs with the depths median filtered. Missing
// and snow-free observations are kept as they are so the filter never
// invents or removes a snow season. A kernel of 0 or 1 disables filtering.
func Despike(obs []deltasnow.Observation, kernelSize int) ([]deltasnow.Observation, error) {
	out := make([]deltasnow.Observation, len(obs))
	copy(out, obs)
	if kernelSize == 0 || kernelSize == 1 {
		return out, nil
	}

	hs := make([]float64, len(obs))
	for i, o := range obs {
		hs[i] = o.HS
	}
	filtered, err := MedFilt(hs, kernelSize)
	if err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Missing() || out[i].HS == 0 {
			continue
		}
		out[i].HS = filtered[i]
	}
	return out, nil
}
