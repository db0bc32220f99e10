package deltasnow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 86400.0

func TestSnowpackCompact(t *testing.T) {
	p := DefaultParams()
	sp := newSnowpack(p, day)
	sp.push(0.3)
	sp.push(0.2)

	bottomSWE, topSWE := sp.swe[0], sp.swe[1]
	sp.compact()

	// the top layer only carries itself, the bottom layer carries both
	expectTop := 0.2 / (1 + gravity*topSWE*day/(p.EtaNull*math.Exp(p.K*p.RhoNull)))
	expectBottom := 0.3 / (1 + gravity*(topSWE+bottomSWE)*day/(p.EtaNull*math.Exp(p.K*p.RhoNull)))

	assert.InDelta(t, expectTop, sp.h[1], 1e-12)
	assert.InDelta(t, expectBottom, sp.h[0], 1e-12)
	assert.Equal(t, []int{2, 2}, sp.age)
	assert.InDelta(t, bottomSWE+topSWE, sp.water(), 1e-12, "compaction must conserve mass")
	require.NoError(t, sp.check())
}

func TestSnowpackCompactRespectsRhoMax(t *testing.T) {
	p := DefaultParams()
	sp := newSnowpack(p, day)
	sp.push(5.0)

	for i := 0; i < 2000; i++ {
		sp.compact()
	}
	assert.LessOrEqual(t, sp.density(0), p.RhoMax*(1+densityTolerance))
	assert.InDelta(t, sp.swe[0]/p.RhoMax, sp.h[0], 1e-9)
	require.NoError(t, sp.check())
}

func TestSnowpackOverburden(t *testing.T) {
	p := DefaultParams()
	sp := newSnowpack(p, day)
	sp.push(0.4)
	before := sp.h[0]

	sp.overburden(0.1)

	eps := p.COv * 0.1 * p.RhoNull * gravity * math.Exp(-p.KOv*p.RhoNull/(p.RhoMax-p.RhoNull))
	assert.InDelta(t, before*(1-eps), sp.h[0], 1e-12)

	t.Run("layer at rho_max does not compact", func(t *testing.T) {
		sp := newSnowpack(p, day)
		sp.push(0.4)
		sp.h[0] = sp.swe[0] / p.RhoMax
		h := sp.h[0]
		sp.overburden(1.0)
		assert.Equal(t, h, sp.h[0])
	})

	t.Run("huge load is capped at rho_max", func(t *testing.T) {
		sp := newSnowpack(p, day)
		sp.push(0.4)
		sp.overburden(50)
		assert.InDelta(t, sp.swe[0]/p.RhoMax, sp.h[0], 1e-12)
		require.NoError(t, sp.check())
	})
}

func TestSnowpackDrench(t *testing.T) {
	p := DefaultParams()

	t.Run("densifies from the top", func(t *testing.T) {
		sp := newSnowpack(p, day)
		sp.push(0.5)
		sp.push(0.5)
		swe := sp.water()

		runoff := sp.drench(0.7)

		assert.Equal(t, 0.0, runoff)
		assert.Equal(t, swe, sp.water())
		assert.InDelta(t, 0.5, sp.h[0], 1e-12, "bottom layer untouched")
		assert.InDelta(t, 0.2, sp.h[1], 1e-12)
		assert.InDelta(t, 0.7, sp.depth(), 1e-12)
	})

	t.Run("spills into the layer below", func(t *testing.T) {
		sp := newSnowpack(p, day)
		sp.push(0.5)
		sp.push(0.5)
		topMin := sp.swe[1] / p.RhoMax

		sp.drench(0.4)

		assert.InDelta(t, topMin, sp.h[1], 1e-12)
		assert.InDelta(t, 0.4-topMin, sp.h[0], 1e-12)
	})

	t.Run("runoff removes youngest layers first", func(t *testing.T) {
		sp := newSnowpack(p, day)
		sp.push(0.5)
		sp.push(0.3)
		sp.push(0.2)
		total := sp.water()
		bottom := sp.swe[0]
		bottomMin := bottom / p.RhoMax

		// less than the bottom layer at rho_max: upper layers must go
		target := bottomMin * 0.5
		runoff := sp.drench(target)

		require.Equal(t, 1, sp.layers())
		assert.InDelta(t, target, sp.depth(), 1e-12)
		assert.InDelta(t, target*p.RhoMax, sp.water(), 1e-9)
		assert.InDelta(t, total-sp.water(), runoff, 1e-9)
		require.NoError(t, sp.check())
	})
}

func TestSnowpackScale(t *testing.T) {
	p := DefaultParams()

	t.Run("stretches every layer alike", func(t *testing.T) {
		sp := newSnowpack(p, day)
		sp.push(0.2)
		sp.push(0.1)
		swe := sp.water()

		runoff := sp.scale(0.33)

		assert.Equal(t, 0.0, runoff)
		assert.InDelta(t, 0.22, sp.h[0], 1e-12)
		assert.InDelta(t, 0.11, sp.h[1], 1e-12)
		assert.InDelta(t, swe, sp.water(), 1e-12)
		assert.InDelta(t, 0.33, sp.depth(), depthTolerance)
	})

	t.Run("layer at rho_max leaves the rest to drench", func(t *testing.T) {
		sp := newSnowpack(p, day)
		sp.push(0.5)
		sp.push(0.5)
		sp.h[0] = sp.swe[0] / p.RhoMax
		bottom := sp.h[0]
		swe := sp.water()
		target := 0.9 * sp.depth()

		runoff := sp.scale(target)

		assert.Equal(t, 0.0, runoff)
		assert.InDelta(t, bottom, sp.h[0], 1e-12)
		assert.InDelta(t, 0.45-0.1*bottom, sp.h[1], 1e-12)
		assert.InDelta(t, swe, sp.water(), 1e-12)
		assert.InDelta(t, target, sp.depth(), depthTolerance)
		require.NoError(t, sp.check())
	})

	t.Run("constant depth stays on the observation", func(t *testing.T) {
		sp := newSnowpack(p, day)
		sp.push(0.3)
		scaled := 0
		for step := 0; step < 20; step++ {
			sp.compact()
			if delta := 0.3 - sp.depth(); delta > p.Tau {
				sp.overburden(delta)
				sp.push(0.3 - sp.depth())
				continue
			}
			layers, swe := sp.layers(), sp.water()
			sp.scale(0.3)
			scaled++
			assert.InDelta(t, 0.3, sp.depth(), depthTolerance, "step %d", step)
			assert.Equal(t, layers, sp.layers())
			assert.InDelta(t, swe, sp.water(), 1e-12)
		}
		assert.Greater(t, scaled, 15)
	})
}

func TestSnowpackCheck(t *testing.T) {
	p := DefaultParams()

	sp := newSnowpack(p, day)
	sp.push(0.2)
	require.NoError(t, sp.check())

	sp.h[0] = -0.1
	require.ErrorIs(t, sp.check(), ErrInternalConsistency)

	sp.h[0] = sp.swe[0] / (2 * p.RhoMax)
	require.ErrorIs(t, sp.check(), ErrInternalConsistency)

	sp.reset()
	assert.True(t, sp.empty())
	assert.Equal(t, 0.0, sp.water())
	require.NoError(t, sp.check())
}
