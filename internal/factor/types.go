package factor

import (
	"fmt"
	"math"
)

// #region interval

// Interval is a numeric range with independently open or closed ends.
// Use math.Inf for an unbounded side.
type Interval struct {
	Min     float64
	Max     float64
	MinOpen bool
	MaxOpen bool
}

// Contains reports whether v falls inside the interval.
func (iv Interval) Contains(v float64) bool {
	if iv.MinOpen {
		if v <= iv.Min {
			return false
		}
	} else if v < iv.Min {
		return false
	}
	if iv.MaxOpen {
		if v >= iv.Max {
			return false
		}
	} else if v > iv.Max {
		return false
	}
	return true
}

func (iv Interval) String() string {
	lo, hi := "[", "]"
	if iv.MinOpen {
		lo = "("
	}
	if iv.MaxOpen {
		hi = ")"
	}
	return fmt.Sprintf("%s%s, %s%s", lo, fmtBound(iv.Min), fmtBound(iv.Max), hi)
}

func fmtBound(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	}
	return fmt.Sprintf("%g", v)
}

// Below returns (-inf, x).
func Below(x float64) Interval {
	return Interval{Min: math.Inf(-1), Max: x, MinOpen: true, MaxOpen: true}
}

// AtMost returns (-inf, x].
func AtMost(x float64) Interval {
	return Interval{Min: math.Inf(-1), Max: x, MinOpen: true}
}

// Above returns (x, +inf).
func Above(x float64) Interval {
	return Interval{Min: x, Max: math.Inf(1), MinOpen: true, MaxOpen: true}
}

// Closed returns [lo, hi].
func Closed(lo, hi float64) Interval {
	return Interval{Min: lo, Max: hi}
}

// HalfOpen returns [lo, hi).
func HalfOpen(lo, hi float64) Interval {
	return Interval{Min: lo, Max: hi, MaxOpen: true}
}

// #endregion interval

// #region band

// Band awards Points to every value inside Range.
type Band struct {
	Range  Interval
	Points int
}

// #endregion band

// #region domain

// Domain is the slider range a factor's raw value must lie in.
type Domain struct {
	Min  float64
	Max  float64
	Step float64
}

// stepTolerance absorbs float noise when checking grid alignment.
const stepTolerance = 1e-9

// Contains reports whether v is finite, within [Min, Max] and on the step grid.
func (d Domain) Contains(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if v < d.Min || v > d.Max {
		return false
	}
	if d.Step <= 0 {
		return true
	}
	n := (v - d.Min) / d.Step
	return math.Abs(n-math.Round(n)) <= stepTolerance*math.Max(1, math.Abs(n))
}

// Points returns every grid value in the domain, Min and Max included.
func (d Domain) Points() []float64 {
	if d.Step <= 0 {
		return []float64{d.Min, d.Max}
	}
	n := int(math.Round((d.Max - d.Min) / d.Step))
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, d.Min+float64(i)*d.Step)
	}
	return out
}

func (d Domain) String() string {
	return fmt.Sprintf("[%g, %g] step %g", d.Min, d.Max, d.Step)
}

// #endregion domain

// #region factor

// Factor is one lifestyle input dimension and its scoring rule.
type Factor struct {
	Name    string
	Unit    string
	Domain  Domain
	Default float64
	Bands   []Band
}

// #endregion factor
