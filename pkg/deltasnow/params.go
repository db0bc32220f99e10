package deltasnow

import "math"

// Default model parameters, calibrated by Winkler et al. (2021).
const (
	DefaultRhoMax   = 401.2588     // kg/m3
	DefaultRhoNull  = 81.19417     // kg/m3
	DefaultCOv      = 0.0005104722 // 1/Pa
	DefaultKOv      = 0.37856737   // -
	DefaultK        = 0.02993175   // m3/kg
	DefaultTau      = 0.02362476   // m
	DefaultEtaNull  = 8523356.0    // Pa s
	DefaultMaxGap   = 3            // time steps
	DefaultHSUnit   = Meter
	DefaultSWEUnit  = Millimeter
	defaultTimestep = 24 // hours, used when the series has no step to measure
)

// Params holds the tunable model constants together with unit and
// missing-value handling options.
type Params struct {
	RhoMax  float64 // maximum layer density [kg/m3]
	RhoNull float64 // fresh snow density of a new layer [kg/m3]
	COv     float64 // overburden factor due to fresh snow [1/Pa]
	KOv     float64 // impact of layer density on overburden compaction [-], in [0,1]
	K       float64 // exponent of the exponential-law compaction [m3/kg]
	Tau     float64 // uncertainty bound separating noise from snowfall/melt [m]
	EtaNull float64 // effective compactive viscosity at zero density [Pa s]

	HSInputUnit   Unit
	SWEOutputUnit Unit

	// InterpolateSmallGaps fills missing depths linearly when the gap is
	// bounded by observations, regularly spaced and at most MaxGapLength long.
	InterpolateSmallGaps bool
	MaxGapLength         int

	// IgnoreZeroPaddedGaps treats missing runs with a zero (or the series
	// start) before and a zero (or the series end) after as snow free; the
	// result carries NaN there. IgnoreTrailingZeroGaps only requires the
	// trailing zero.
	IgnoreZeroPaddedGaps   bool
	IgnoreTrailingZeroGaps bool
}

// DefaultParams returns the published parameter set with HS in metres, SWE
// in millimetres and interpolation of gaps up to three steps.
func DefaultParams() Params {
	return Params{
		RhoMax:               DefaultRhoMax,
		RhoNull:              DefaultRhoNull,
		COv:                  DefaultCOv,
		KOv:                  DefaultKOv,
		K:                    DefaultK,
		Tau:                  DefaultTau,
		EtaNull:              DefaultEtaNull,
		HSInputUnit:          DefaultHSUnit,
		SWEOutputUnit:        DefaultSWEUnit,
		InterpolateSmallGaps: true,
		MaxGapLength:         DefaultMaxGap,
	}
}

// Validate checks parameter ranges. Unknown units are reported as validation
// errors, everything else as configuration errors.
func (p Params) Validate() error {
	if _, err := p.HSInputUnit.Factor(); err != nil {
		return validationf("hs input unit: %q is not one of mm, cm, m", string(p.HSInputUnit))
	}
	if _, err := p.SWEOutputUnit.Factor(); err != nil {
		return validationf("swe output unit: %q is not one of mm, cm, m", string(p.SWEOutputUnit))
	}

	positive := []struct {
		name  string
		value float64
	}{
		{"rho_max", p.RhoMax},
		{"rho_null", p.RhoNull},
		{"c_ov", p.COv},
		{"k", p.K},
		{"tau", p.Tau},
		{"eta_null", p.EtaNull},
	}
	for _, v := range positive {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value <= 0 {
			return configurationf("%s must be a positive finite number, got %v", v.name, v.value)
		}
	}

	if math.IsNaN(p.KOv) || p.KOv < 0 || p.KOv > 1 {
		return configurationf("k_ov must be in [0,1], got %v", p.KOv)
	}
	if p.RhoNull >= p.RhoMax {
		return configurationf("rho_null (%v) must be smaller than rho_max (%v)", p.RhoNull, p.RhoMax)
	}
	if p.MaxGapLength < 0 {
		return configurationf("max gap length must not be negative, got %d", p.MaxGapLength)
	}

	return nil
}
