package deltasnow_test

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/deltasnow/pkg/deltasnow"
	"github.com/chrissnell/deltasnow/pkg/fixture"
)

// regressionTolerance is the largest accepted difference to a stored run in mm.
const regressionTolerance = 1.0

// TestRegressionFixtures runs every hs_data_<ID>.csv under testdata/regression
// and compares the result with the SWE series stored in swe_data_<ID>.csv.
func TestRegressionFixtures(t *testing.T) {
	inputs, err := filepath.Glob(filepath.Join("testdata", "regression", "hs_data_*.csv"))
	require.NoError(t, err)
	if len(inputs) == 0 {
		t.Skip("no fixtures in testdata/regression")
	}

	for _, input := range inputs {
		id := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(input), "hs_data_"), ".csv")
		t.Run(id, func(t *testing.T) {
			stations, err := fixture.ReadHSFile(input, nil)
			require.NoError(t, err)
			require.Len(t, stations, 1, "fixture must hold exactly one station series")

			refDates, refSWE, err := fixture.ReadSWEFile(filepath.Join("testdata", "regression", fmt.Sprintf("swe_data_%s.csv", id)))
			require.NoError(t, err)

			res, err := deltasnow.SWEDeltaSnow(stations[0].Observations, deltasnow.DefaultParams())
			require.NoError(t, err)
			require.Equal(t, len(refSWE), res.Len())

			for i := range refSWE {
				require.True(t, refDates[i].Equal(res.Dates[i]), "date mismatch at %d", i)
				assert.InDelta(t, refSWE[i], res.SWE[i], regressionTolerance, "SWE on %s", refDates[i].Format("2006-01-02"))
			}
		})
	}
}
