package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/twin-engine/internal/classify"
)

// #region run-state
// RunState is the lifecycle position of a controller.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
)

// #endregion run-state

// #region contribution
// Contribution is one factor's scored effect within a run.
type Contribution struct {
	Factor string  `json:"factor"`
	Value  float64 `json:"value"`
	Points int     `json:"points"`
}

// #endregion contribution

// #region result
// Result is the immutable outcome of one completed run.
// Consumers receive their own copy and must treat it as read-only.
type Result struct {
	RunID         string             `json:"run_id"`
	Impact        int                `json:"impact"`
	Label         string             `json:"label"`
	Status        classify.Status    `json:"status"`
	Contributions []Contribution     `json:"contributions"`
	Inputs        map[string]float64 `json:"inputs"`
	StartedAt     time.Time          `json:"started_at"`
	CompletedAt   time.Time          `json:"completed_at"`
}

// clone deep-copies the slice and map so each holder owns its own value.
func (r Result) clone() Result {
	out := r
	if r.Contributions != nil {
		out.Contributions = make([]Contribution, len(r.Contributions))
		copy(out.Contributions, r.Contributions)
	}
	if r.Inputs != nil {
		out.Inputs = make(map[string]float64, len(r.Inputs))
		for k, v := range r.Inputs {
			out.Inputs[k] = v
		}
	}
	return out
}

// Points returns the contribution recorded for factor, if any.
func (r Result) Points(factor string) (int, bool) {
	for _, c := range r.Contributions {
		if c.Factor == factor {
			return c.Points, true
		}
	}
	return 0, false
}

// #endregion result

// #region snapshot
// Snapshot is the view returned by CurrentState.
type Snapshot struct {
	State  RunState
	Result *Result // last completed result; nil until the first run completes
	Inputs map[string]float64
}

// #endregion snapshot

// #region errors
// ErrInvalidInput marks a SetInput value outside its factor's domain.
var ErrInvalidInput = errors.New("invalid input")

// InputError describes a rejected SetInput call.
type InputError struct {
	Factor string
	Value  float64
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %s=%g: %s", e.Factor, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// #endregion errors
