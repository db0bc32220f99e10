// Package report compares modelled SWE with reference series and
// summarises model runs.
package report

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultTolerance is the parity bound in the output unit of the run (mm by default)
const DefaultTolerance = 1.0

// Stats describes the difference model - reference over the pairs where
// both values are present.
type Stats struct {
	N      int
	Bias   float64
	MAE    float64
	RMSE   float64
	MaxAbs float64
}

// Within reports whether every difference is strictly below tol
func (s Stats) Within(tol float64) bool {
	return s.N > 0 && s.MaxAbs < tol
}

func (s Stats) String() string {
	return fmt.Sprintf("n=%d bias=%.4f mae=%.4f rmse=%.4f max_abs=%.4f", s.N, s.Bias, s.MAE, s.RMSE, s.MaxAbs)
}

// Compare computes difference statistics of two aligned series. Pairs with
// a missing value on either side are skipped.
func Compare(model, reference []float64) (Stats, error) {
	if len(model) != len(reference) {
		return Stats{}, fmt.Errorf("series lengths differ: %d modelled, %d reference", len(model), len(reference))
	}

	diff := make([]float64, 0, len(model))
	for i := range model {
		if math.IsNaN(model[i]) || math.IsNaN(reference[i]) {
			continue
		}
		diff = append(diff, model[i]-reference[i])
	}
	if len(diff) == 0 {
		return Stats{}, errors.New("no comparable values")
	}

	n := float64(len(diff))
	return Stats{
		N:      len(diff),
		Bias:   stat.Mean(diff, nil),
		MAE:    floats.Norm(diff, 1) / n,
		RMSE:   floats.Norm(diff, 2) / math.Sqrt(n),
		MaxAbs: floats.Norm(diff, math.Inf(1)),
	}, nil
}

// Align joins a modelled and a reference series on their dates. Dates
// missing from the reference get NaN.
func Align(dates []time.Time, values []float64, refDates []time.Time, refValues []float64) ([]float64, []float64, error) {
	if len(dates) != len(values) || len(refDates) != len(refValues) {
		return nil, nil, errors.New("dates and values must have the same length")
	}

	ref := make(map[int64]float64, len(refDates))
	for i, d := range refDates {
		ref[d.UnixNano()] = refValues[i]
	}

	model := make([]float64, len(values))
	aligned := make([]float64, len(values))
	matched := 0
	for i, d := range dates {
		model[i] = values[i]
		v, ok := ref[d.UnixNano()]
		if !ok {
			aligned[i] = math.NaN()
			continue
		}
		aligned[i] = v
		matched++
	}
	if matched == 0 {
		return nil, nil, errors.New("reference shares no dates with the modelled series")
	}
	return model, aligned, nil
}
