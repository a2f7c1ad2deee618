package factor

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region rule-tests

func TestDefaultRules(t *testing.T) {
	m := DefaultModel()

	cases := []struct {
		factor string
		value  float64
		want   int
	}{
		{Sleep, 3, -20},
		{Sleep, 5.999, -20},
		{Sleep, 6, 5},
		{Sleep, 6.5, 5},
		{Sleep, 7, 20},
		{Sleep, 8, 20},
		{Sleep, 9, 20},
		{Sleep, 9.001, 5},
		{Sleep, 12, 5},

		{Stress, 0, 15},
		{Stress, 29, 15},
		{Stress, 30, -5},
		{Stress, 70, -5},
		{Stress, 71, -25},
		{Stress, 100, -25},

		{Activity, 0, -15},
		{Activity, 2900, -15},
		{Activity, 3000, 5},
		{Activity, 8000, 5},
		{Activity, 8100, 15},
		{Activity, 20000, 15},

		{Energy, 60, -10},
		{Energy, 61, 10},
		{Mood, 60, -10},
		{Mood, 61, 10},

		{Water, 2000, -5},
		{Water, 2050, 10},
		{Water, 0, -5},
		{Water, 4000, 10},
	}

	for _, tc := range cases {
		got, err := m.Contribution(tc.factor, tc.value)
		require.NoError(t, err)
		assert.Equalf(t, tc.want, got, "%s=%g", tc.factor, tc.value)
	}
}

func TestContributionUnknownFactor(t *testing.T) {
	_, err := DefaultModel().Contribution("caffeine", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFactor))
}

// #endregion rule-tests

// #region totality-tests

func TestDefaultModelVerifies(t *testing.T) {
	require.NoError(t, DefaultModel().Verify())
}

func TestEveryDomainValueMatchesExactlyOneBand(t *testing.T) {
	m := DefaultModel()
	for _, name := range m.Names() {
		f, ok := m.Lookup(name)
		require.True(t, ok)
		for _, v := range f.probes() {
			assert.Lenf(t, f.Matching(v), 1, "%s=%g", name, v)
		}
		// contributions stay within the observed range
		for _, v := range f.Domain.Points() {
			s := f.Score(v)
			assert.GreaterOrEqual(t, s, -25)
			assert.LessOrEqual(t, s, 20)
		}
	}
}

func TestVerifyDetectsGap(t *testing.T) {
	f := Factor{
		Name:    "gappy",
		Domain:  Domain{Min: 0, Max: 10, Step: 1},
		Default: 0,
		Bands: []Band{
			{Range: Below(4), Points: -1},
			{Range: Above(5), Points: 1},
		},
	}
	err := f.Verify()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matches 0 bands")
}

func TestVerifyDetectsOverlap(t *testing.T) {
	f := Factor{
		Name:    "overlap",
		Domain:  Domain{Min: 0, Max: 10, Step: 1},
		Default: 0,
		Bands: []Band{
			{Range: AtMost(5), Points: -1},
			{Range: Closed(5, 10), Points: 1},
		},
	}
	err := f.Verify()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matches 2 bands")
}

func TestVerifyRejectsDefaultOutsideDomain(t *testing.T) {
	f := Factor{
		Name:    "bad-default",
		Domain:  Domain{Min: 0, Max: 10, Step: 1},
		Default: 11,
		Bands:   []Band{{Range: Closed(0, 10), Points: 0}},
	}
	require.Error(t, f.Verify())
}

// #endregion totality-tests

// #region model-tests

func TestNewModelRejectsDuplicate(t *testing.T) {
	fs := DefaultFactors()
	_, err := NewModel(fs[0], fs[0])
	require.Error(t, err)
}

func TestModelWithAddsFactorWithoutMutatingReceiver(t *testing.T) {
	base := DefaultModel()
	extra := Factor{
		Name:    "caffeine",
		Unit:    "mg",
		Domain:  Domain{Min: 0, Max: 600, Step: 10},
		Default: 100,
		Bands: []Band{
			{Range: AtMost(400), Points: 0},
			{Range: Above(400), Points: -10},
		},
	}

	ext, err := base.With(extra)
	require.NoError(t, err)

	assert.Len(t, base.Names(), 6)
	assert.Equal(t, append(base.Names(), "caffeine"), ext.Names())

	got, err := ext.Contribution("caffeine", 500)
	require.NoError(t, err)
	assert.Equal(t, -10, got)
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, map[string]float64{
		Sleep: 7, Stress: 40, Activity: 5000, Energy: 70, Mood: 50, Water: 2000,
	}, DefaultModel().Defaults())
}

// #endregion model-tests

// #region domain-tests

func TestDomainContains(t *testing.T) {
	sleep := Domain{Min: 3, Max: 12, Step: 0.5}
	assert.True(t, sleep.Contains(3))
	assert.True(t, sleep.Contains(7.5))
	assert.True(t, sleep.Contains(12))
	assert.False(t, sleep.Contains(2.5))
	assert.False(t, sleep.Contains(12.5))
	assert.False(t, sleep.Contains(7.25))
	assert.False(t, sleep.Contains(math.NaN()))
	assert.False(t, sleep.Contains(math.Inf(1)))

	water := Domain{Min: 0, Max: 4000, Step: 50}
	assert.True(t, water.Contains(2050))
	assert.False(t, water.Contains(2025))
}

func TestDomainPoints(t *testing.T) {
	pts := Domain{Min: 3, Max: 5, Step: 0.5}.Points()
	assert.Equal(t, []float64{3, 3.5, 4, 4.5, 5}, pts)
}

func TestIntervalString(t *testing.T) {
	assert.Equal(t, "[6, 7)", HalfOpen(6, 7).String())
	assert.Equal(t, "(-inf, 6)", Below(6).String())
	assert.Equal(t, "(9, +inf)", Above(9).String())
}

// #endregion domain-tests
