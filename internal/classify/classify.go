package classify

import "fmt"

// #region validate
// Validate rejects thresholds whose bands would be empty or inverted.
func (t Thresholds) Validate() error {
	if t.AttentionMin >= t.OptimalMin {
		return fmt.Errorf("attention min %d must be below optimal min %d", t.AttentionMin, t.OptimalMin)
	}
	return nil
}

// #endregion validate

// #region classify
// Classify maps impact to a decision. First match wins.
func (t Thresholds) Classify(impact int) Decision {
	switch {
	case impact >= t.OptimalMin:
		return Decision{Label: LabelOptimal, Status: StatusNominal}
	case impact >= t.AttentionMin:
		return Decision{Label: LabelAttention, Status: StatusWarning}
	default:
		return Decision{Label: LabelCritical, Status: StatusCritical}
	}
}

// Classify applies DefaultThresholds.
func Classify(impact int) Decision {
	return DefaultThresholds().Classify(impact)
}

// #endregion classify

// #region parse
// ParseStatus converts a wire string back to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNominal, StatusWarning, StatusCritical:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// #endregion parse
