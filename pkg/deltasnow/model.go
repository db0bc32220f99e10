package deltasnow

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Model runs the delta.snow recurrence with a fixed parameter set. A Model
// holds no state between calls and may be shared by concurrent goroutines.
type Model struct {
	params Params
	logger *zap.SugaredLogger
}

// Option configures a Model
type Option func(*Model)

// WithLogger sets the logger used for debug output. The default discards everything.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New validates params and returns a Model using them.
func New(params Params, opts ...Option) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		params: params,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Params returns the model's parameter set
func (m *Model) Params() Params {
	return m.params
}

// Result is the modelled SWE series, aligned 1:1 with the input observations.
type Result struct {
	Dates      []time.Time
	SWE        []float64 // NaN where an ignored gap was masked
	Unit       Unit
	Resolution time.Duration
}

// Len returns the number of time steps in the result
func (r *Result) Len() int {
	return len(r.SWE)
}

// SWEDeltaSnow validates params and runs the model once on obs.
func SWEDeltaSnow(obs []Observation, params Params, opts ...Option) (*Result, error) {
	m, err := New(params, opts...)
	if err != nil {
		return nil, err
	}
	return m.Run(obs)
}

// Run converts a snow depth series into SWE. Either the whole series is
// modelled or an error is returned; there is no partial result.
func (m *Model) Run(obs []Observation) (*Result, error) {
	if len(obs) == 0 {
		return nil, validationf("snow depth series is empty")
	}
	if err := checkDates(obs); err != nil {
		return nil, err
	}

	hs, err := normalize(obs, m.params.HSInputUnit)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, len(obs))
	for i, o := range obs {
		dates[i] = o.Date
	}

	var ignored []bool
	if m.params.IgnoreZeroPaddedGaps || m.params.IgnoreTrailingZeroGaps {
		ignored = zeroPaddedGapMask(hs, !m.params.IgnoreTrailingZeroGaps)
		for i, skip := range ignored {
			if skip {
				hs[i] = 0
			}
		}
	}

	if m.params.InterpolateSmallGaps && hasMissing(hs) {
		var filled int
		hs, filled = fillSmallGaps(hs, dates, m.params.MaxGapLength)
		m.logger.Debugw("interpolated small gaps", "values", filled, "max_gap_length", m.params.MaxGapLength)
	}

	if err := m.checkMissing(hs, dates); err != nil {
		return nil, err
	}

	step, err := resolution(dates, hs)
	if err != nil {
		return nil, err
	}

	sweMM, err := m.evolve(hs, step)
	if err != nil {
		return nil, err
	}

	return m.assemble(dates, sweMM, ignored, step)
}

func hasMissing(hs []float64) bool {
	for _, v := range hs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func (m *Model) checkMissing(hs []float64, dates []time.Time) error {
	gaps := findGaps(hs)
	if len(gaps) == 0 {
		return nil
	}
	g := gaps[0]
	day := dates[g.start].Format("2006-01-02")
	switch {
	case !m.params.InterpolateSmallGaps:
		return validationf("snow depth is missing on %s (%d steps) and gap interpolation is disabled", day, g.length())
	case g.start == 0 || g.stop == len(hs):
		return validationf("snow depth is missing on %s (%d steps) at the edge of the series", day, g.length())
	case g.length() > m.params.MaxGapLength:
		return validationf("snow depth gap on %s is %d steps long, longer than the maximum of %d", day, g.length(), m.params.MaxGapLength)
	default:
		return validationf("snow depth gap on %s (%d steps) is not regularly spaced", day, g.length())
	}
}

// evolve walks the normalized depths (metres) and returns SWE in mm per step.
func (m *Model) evolve(hs []float64, step time.Duration) ([]float64, error) {
	sp := newSnowpack(m.params, step.Seconds())
	out := make([]float64, len(hs))

	for t, obs := range hs {
		switch {
		case isZero(obs):
			if !sp.empty() {
				m.logger.Debugw("snowpack melted out", "step", t, "layers", sp.layers())
			}
			sp.reset()
		case sp.empty():
			sp.push(obs)
		default:
			sp.compact()
			delta := obs - sp.depth()
			switch {
			case delta > m.params.Tau:
				sp.overburden(delta)
				sp.push(obs - sp.depth())
			case delta < -m.params.Tau:
				if runoff := sp.drench(obs); runoff > 0 {
					m.logger.Debugw("runoff", "step", t, "mm", runoff, "layers", sp.layers())
				}
			default:
				if runoff := sp.scale(obs); runoff > 0 {
					m.logger.Debugw("runoff while scaling", "step", t, "mm", runoff, "layers", sp.layers())
				}
			}
			if d := sp.depth(); math.Abs(d-obs) > depthTolerance {
				return nil, consistencyf("step %d: modelled depth %v does not match observed %v", t, d, obs)
			}
		}

		if err := sp.check(); err != nil {
			return nil, fmt.Errorf("step %d: %w", t, err)
		}
		out[t] = sp.water()
	}

	return out, nil
}

func (m *Model) assemble(dates []time.Time, sweMM []float64, ignored []bool, step time.Duration) (*Result, error) {
	factor, err := m.params.SWEOutputUnit.Factor()
	if err != nil {
		return nil, err
	}

	swe := make([]float64, len(sweMM))
	for i, v := range sweMM {
		if ignored != nil && ignored[i] {
			swe[i] = math.NaN()
			continue
		}
		swe[i] = v * 0.001 / factor
	}

	return &Result{
		Dates:      dates,
		SWE:        swe,
		Unit:       m.params.SWEOutputUnit,
		Resolution: step,
	}, nil
}
