package deltasnow

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	tests := []struct {
		name   string
		modify func(*Params)
		kind   error
	}{
		{"unknown hs unit", func(p *Params) { p.HSInputUnit = "ft" }, ErrValidation},
		{"unknown swe unit", func(p *Params) { p.SWEOutputUnit = "" }, ErrValidation},
		{"zero rho_max", func(p *Params) { p.RhoMax = 0 }, ErrConfiguration},
		{"negative tau", func(p *Params) { p.Tau = -0.01 }, ErrConfiguration},
		{"nan eta", func(p *Params) { p.EtaNull = math.NaN() }, ErrConfiguration},
		{"infinite k", func(p *Params) { p.K = math.Inf(1) }, ErrConfiguration},
		{"k_ov above one", func(p *Params) { p.KOv = 1.5 }, ErrConfiguration},
		{"rho_null above rho_max", func(p *Params) { p.RhoNull = 500 }, ErrConfiguration},
		{"negative max gap", func(p *Params) { p.MaxGapLength = -1 }, ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)

			err := p.Validate()
			require.ErrorIs(t, err, tt.kind)

			var me *ModelError
			require.True(t, errors.As(err, &me))
			assert.NotEmpty(t, me.Msg)

			_, err = New(p)
			require.ErrorIs(t, err, tt.kind)
		})
	}

	p := DefaultParams()
	p.KOv = 0
	assert.NoError(t, p.Validate(), "k_ov of zero disables the density term")
}

func TestParseUnit(t *testing.T) {
	for _, s := range []string{"mm", "cm", "m"} {
		u, err := ParseUnit(s)
		require.NoError(t, err)
		assert.Equal(t, s, u.String())
		assert.True(t, u.Valid())
	}

	_, err := ParseUnit("inch")
	require.ErrorIs(t, err, ErrValidation)

	f, err := Centimeter.Factor()
	require.NoError(t, err)
	assert.Equal(t, 0.01, f)

	_, err = Unit("km").Factor()
	require.ErrorIs(t, err, ErrValidation)
}
