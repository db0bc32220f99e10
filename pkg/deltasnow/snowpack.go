package deltasnow

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	gravity = 9.81 // m/s2

	// relative slack allowed on rho_max and on matching observed depth
	densityTolerance = 1e-9
	depthTolerance   = 1e-9
)

// snowpack holds the layers of one model run, oldest (bottom) first.
// Layer i has thickness h[i] in metres, water equivalent swe[i] in kg/m2 (mm)
// and age[i] in time steps. Layers are only ever removed from the top, so
// removal is a truncation of all three slices.
type snowpack struct {
	h   []float64
	swe []float64
	age []int

	p  Params
	dt float64 // seconds per step
}

func newSnowpack(p Params, step float64) *snowpack {
	return &snowpack{p: p, dt: step}
}

func (sp *snowpack) empty() bool { return len(sp.h) == 0 }

func (sp *snowpack) layers() int { return len(sp.h) }

// depth is the modelled snow depth in metres.
func (sp *snowpack) depth() float64 {
	if sp.empty() {
		return 0
	}
	return floats.Sum(sp.h)
}

// water is the modelled SWE in mm.
func (sp *snowpack) water() float64 {
	if sp.empty() {
		return 0
	}
	return floats.Sum(sp.swe)
}

func (sp *snowpack) density(i int) float64 {
	return sp.swe[i] / sp.h[i]
}

// reset drops all layers; the ground is snow free.
func (sp *snowpack) reset() {
	sp.h = sp.h[:0]
	sp.swe = sp.swe[:0]
	sp.age = sp.age[:0]
}

// push adds a fresh snow layer of thickness h on top.
func (sp *snowpack) push(h float64) {
	sp.h = append(sp.h, h)
	sp.swe = append(sp.swe, h*sp.p.RhoNull)
	sp.age = append(sp.age, 1)
}

func (sp *snowpack) truncate(n int) {
	sp.h = sp.h[:n]
	sp.swe = sp.swe[:n]
	sp.age = sp.age[:n]
}

// limitDensity keeps layer i at or below rho_max by restoring the minimal thickness.
func (sp *snowpack) limitDensity(i int) {
	if hmin := sp.swe[i] / sp.p.RhoMax; sp.h[i] < hmin {
		sp.h[i] = hmin
	}
}

// compact applies one step of dry metamorphism. Each layer settles as a
// Newtonian fluid under the weight of itself and everything above it, with a
// viscosity growing exponentially with density.
func (sp *snowpack) compact() {
	load := 0.0
	for i := len(sp.h) - 1; i >= 0; i-- {
		load += sp.swe[i]
		sigma := gravity * load
		eta := sp.p.EtaNull * math.Exp(sp.p.K*sp.density(i))
		sp.h[i] = sp.h[i] / (1 + sigma*sp.dt/eta)
		sp.limitDensity(i)
		sp.age[i]++
	}
}

// overburden compacts existing layers under the load of delta metres of new
// snow. Layers already at rho_max do not compact further.
func (sp *snowpack) overburden(delta float64) {
	sigma0 := delta * sp.p.RhoNull * gravity
	for i := range sp.h {
		rho := sp.density(i)
		if rho >= sp.p.RhoMax {
			continue
		}
		eps := sp.p.COv * sigma0 * math.Exp(-sp.p.KOv*rho/(sp.p.RhoMax-rho))
		sp.h[i] *= 1 - eps
		sp.limitDensity(i)
	}
}

// drench reduces the modelled depth to target. Excess height is first taken
// up by densifying layers from the top down to rho_max. Once every layer sits
// at rho_max the remaining excess leaves the pack as runoff, youngest layers
// first. Returns the runoff in mm.
func (sp *snowpack) drench(target float64) float64 {
	excess := sp.depth() - target

	for i := len(sp.h) - 1; i >= 0 && excess > 0; i-- {
		room := sp.h[i] - sp.swe[i]/sp.p.RhoMax
		if room <= 0 {
			continue
		}
		if room >= excess {
			sp.h[i] -= excess
			excess = 0
			break
		}
		sp.h[i] -= room
		excess -= room
	}

	runoff := 0.0
	for excess > 0 && !sp.empty() {
		top := len(sp.h) - 1
		if sp.h[top] <= excess {
			excess -= sp.h[top]
			runoff += sp.swe[top]
			sp.truncate(top)
			continue
		}
		lost := excess * sp.density(top)
		sp.swe[top] -= lost
		sp.h[top] -= excess
		runoff += lost
		excess = 0
	}
	return runoff
}

// scale stretches or squeezes every layer by the same factor so the pack
// depth matches target while its water stays put. Layers are capped at
// rho_max; height the cap keeps above target is drenched. Returns the runoff
// in mm.
func (sp *snowpack) scale(target float64) float64 {
	factor := target / sp.depth()
	for i := range sp.h {
		sp.h[i] *= factor
		sp.limitDensity(i)
	}
	if sp.depth()-target > depthTolerance {
		return sp.drench(target)
	}
	return 0
}

// check verifies the physical bounds of every layer.
func (sp *snowpack) check() error {
	limit := sp.p.RhoMax * (1 + densityTolerance)
	for i := range sp.h {
		h, swe := sp.h[i], sp.swe[i]
		if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
			return consistencyf("layer %d has invalid thickness %v", i, h)
		}
		if math.IsNaN(swe) || swe <= 0 {
			return consistencyf("layer %d has invalid water equivalent %v", i, swe)
		}
		if rho := swe / h; rho > limit {
			return consistencyf("layer %d density %v exceeds rho_max %v", i, rho, sp.p.RhoMax)
		}
	}
	return nil
}
