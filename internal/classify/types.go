package classify

// #region status
// Status is the three-way recovery classification consumers theme on.
type Status string

const (
	StatusNominal  Status = "nominal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// #endregion status

// #region labels
const (
	LabelOptimal   = "Optimal State"
	LabelAttention = "Needs Attention"
	LabelCritical  = "Critical Decline"
)

// #endregion labels

// #region thresholds
// Thresholds holds the impact cut points, checked in order.
type Thresholds struct {
	OptimalMin   int // impact >= this → nominal
	AttentionMin int // impact >= this (and below OptimalMin) → warning
}

// DefaultThresholds returns the reference cut points: >=20, [-10,20), <-10.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OptimalMin:   20,
		AttentionMin: -10,
	}
}

// #endregion thresholds

// #region decision
// Decision is the label/status pair derived from an impact.
type Decision struct {
	Label  string
	Status Status
}

// #endregion decision
