package quote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateFullServiceMedium(t *testing.T) {
	est, err := Calculate(Selection{
		ServiceType: ServiceFullService,
		BuildType:   BuildSingle,
		Complexity:  ComplexityMedium,
		Depth:       Depth1x,
	})
	require.NoError(t, err)
	require.True(t, est.Priced())
	assert.Equal(t, int64(2400), est.Low.IntPart())
	assert.Equal(t, int64(3600), est.High.IntPart())
	assert.Equal(t, 48, est.MinimumTurnaroundHours)
}

func TestCalculateTurnaroundTakesBindingConstraint(t *testing.T) {
	est, err := Calculate(Selection{
		ServiceType: ServiceSimOnly,
		BuildType:   BuildSingle,
		Complexity:  ComplexitySimple,
		Depth:       Depth4x,
	})
	require.NoError(t, err)
	assert.Equal(t, 96, est.MinimumTurnaroundHours)
	// 500 * 1 * 2.5 = 1250 -> 1000 / 1500
	assert.Equal(t, int64(1000), est.Low.IntPart())
	assert.Equal(t, int64(1500), est.High.IntPart())
}

func TestCalculateRoundsHalfUp(t *testing.T) {
	// 500 * 1.5 * 1.6 = 1200 -> 960 / 1440 -> 1000 / 1400
	est, err := Calculate(Selection{
		ServiceType: ServiceSimOnly,
		BuildType:   BuildSingle,
		Complexity:  ComplexityMedium,
		Depth:       Depth2x,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), est.Low.IntPart())
	assert.Equal(t, int64(1400), est.High.IntPart())

	assert.True(t, roundToHundred(decimal.NewFromInt(250)).Equal(decimal.NewFromInt(300)))
	assert.True(t, roundToHundred(decimal.NewFromInt(249)).Equal(decimal.NewFromInt(200)))
}

func TestCalculateMultiBuildIsCustomQuote(t *testing.T) {
	for _, c := range Complexities() {
		for _, d := range Depths() {
			est, err := Calculate(Selection{
				ServiceType: ServiceFullService,
				BuildType:   BuildMulti,
				Complexity:  c.Value,
				Depth:       d.Value,
			})
			require.NoError(t, err)
			assert.Equal(t, StatusCustomQuote, est.Status)
			assert.False(t, est.Priced())
			assert.True(t, est.Low.IsZero())
			assert.True(t, est.High.IsZero())
		}
	}
}

func TestOnlyTopDepthRequiresConsultation(t *testing.T) {
	flagged := 0
	all := Depths()
	for i, d := range all {
		if d.RequiresConsultation {
			flagged++
			assert.Equal(t, len(all)-1, i)
			assert.Equal(t, Depth10x, d.Value)
		}
	}
	assert.Equal(t, 1, flagged)

	opt, ok := LookupDepth(Depth10x)
	require.True(t, ok)
	assert.True(t, opt.RequiresConsultation)

	est, err := Calculate(Selection{
		ServiceType: ServiceFullService,
		BuildType:   BuildSingle,
		Complexity:  ComplexitySimple,
		Depth:       Depth10x,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConsultationRequired, est.Status)
	assert.True(t, est.Low.IsZero())
	assert.Equal(t, 168, est.MinimumTurnaroundHours)
}

func TestCalculateRangeInvariants(t *testing.T) {
	for _, s := range Services() {
		for _, c := range Complexities() {
			for _, d := range Depths() {
				sel := Selection{ServiceType: s.Value, BuildType: BuildSingle, Complexity: c.Value, Depth: d.Value}
				est, err := Calculate(sel)
				require.NoError(t, err)
				if !est.Priced() {
					continue
				}
				assert.True(t, est.Low.LessThanOrEqual(est.High), "%+v", sel)
				assert.False(t, est.Low.IsNegative(), "%+v", sel)
				assert.True(t, est.Low.Mod(hundred).IsZero(), "%+v", sel)
				assert.True(t, est.High.Mod(hundred).IsZero(), "%+v", sel)

				again, err := Calculate(sel)
				require.NoError(t, err)
				assert.True(t, est.Low.Equal(again.Low))
				assert.True(t, est.High.Equal(again.High))
				assert.Equal(t, est.MinimumTurnaroundHours, again.MinimumTurnaroundHours)
			}
		}
	}
}

func TestMultipliersIncrease(t *testing.T) {
	cs := Complexities()
	for i := 1; i < len(cs); i++ {
		assert.True(t, cs[i].Multiplier.GreaterThan(cs[i-1].Multiplier))
	}
	ds := Depths()
	for i := 1; i < len(ds); i++ {
		assert.True(t, ds[i].Multiplier.GreaterThan(ds[i-1].Multiplier))
	}
	full, _ := LookupService(ServiceFullService)
	sim, _ := LookupService(ServiceSimOnly)
	assert.True(t, full.BaseRate.GreaterThan(sim.BaseRate))
}

func TestCalculateRejectsUnknownValues(t *testing.T) {
	valid := Selection{ServiceType: ServiceSimOnly, BuildType: BuildSingle, Complexity: ComplexitySimple, Depth: Depth1x}

	bad := valid
	bad.ServiceType = "diy"
	_, err := Calculate(bad)
	require.ErrorContains(t, err, "service type")

	bad = valid
	bad.BuildType = "kit"
	_, err = Calculate(bad)
	require.ErrorContains(t, err, "build type")

	bad = valid
	bad.Complexity = "trivial"
	_, err = Calculate(bad)
	require.ErrorContains(t, err, "complexity")

	bad = valid
	bad.Depth = "3x"
	_, err = Calculate(bad)
	require.ErrorContains(t, err, "depth")
}

func TestParseSelectionDefaults(t *testing.T) {
	sel := ParseSelection("", "", "", "")
	assert.Equal(t, Selection{
		ServiceType: ServiceFullService,
		BuildType:   BuildSingle,
		Complexity:  ComplexityMedium,
		Depth:       Depth1x,
	}, sel)

	sel = ParseSelection(" SIM-ONLY ", "Multi", "complex", "10X")
	assert.Equal(t, ServiceSimOnly, sel.ServiceType)
	assert.Equal(t, BuildMulti, sel.BuildType)
	assert.Equal(t, ComplexityComplex, sel.Complexity)
	assert.Equal(t, Depth10x, sel.Depth)
}
