package factor

// #region default-factors

// DefaultFactors returns the six lifestyle factors in display order.
func DefaultFactors() []Factor {
	return []Factor{
		{
			Name:    Sleep,
			Unit:    "hours",
			Domain:  Domain{Min: 3, Max: 12, Step: 0.5},
			Default: 7,
			Bands: []Band{
				{Range: Below(6), Points: -20},
				{Range: HalfOpen(6, 7), Points: 5},
				{Range: Closed(7, 9), Points: 20},
				{Range: Above(9), Points: 5},
			},
		},
		{
			Name:    Stress,
			Unit:    "percent",
			Domain:  Domain{Min: 0, Max: 100, Step: 1},
			Default: 40,
			Bands: []Band{
				{Range: Below(30), Points: 15},
				{Range: Closed(30, 70), Points: -5},
				{Range: Above(70), Points: -25},
			},
		},
		{
			Name:    Activity,
			Unit:    "steps",
			Domain:  Domain{Min: 0, Max: 20000, Step: 100},
			Default: 5000,
			Bands: []Band{
				{Range: Below(3000), Points: -15},
				{Range: Closed(3000, 8000), Points: 5},
				{Range: Above(8000), Points: 15},
			},
		},
		{
			Name:    Energy,
			Unit:    "percent",
			Domain:  Domain{Min: 0, Max: 100, Step: 1},
			Default: 70,
			Bands: []Band{
				{Range: AtMost(60), Points: -10},
				{Range: Above(60), Points: 10},
			},
		},
		{
			Name:    Mood,
			Unit:    "percent",
			Domain:  Domain{Min: 0, Max: 100, Step: 1},
			Default: 50,
			Bands: []Band{
				{Range: AtMost(60), Points: -10},
				{Range: Above(60), Points: 10},
			},
		},
		{
			Name:    Water,
			Unit:    "milliliters",
			Domain:  Domain{Min: 0, Max: 4000, Step: 50},
			Default: 2000,
			Bands: []Band{
				{Range: AtMost(2000), Points: -5},
				{Range: Above(2000), Points: 10},
			},
		},
	}
}

// DefaultModel returns a registry of DefaultFactors.
// It panics if the built-in rules fail verification, which tests rule out.
func DefaultModel() *Model {
	m, err := NewModel(DefaultFactors()...)
	if err != nil {
		panic(err)
	}
	return m
}

// #endregion default-factors
