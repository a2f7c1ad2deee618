package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/danielpatrickdp/twin-engine/internal/engine"
	"github.com/danielpatrickdp/twin-engine/internal/factor"
)

// #region types

// ScenarioResult is the outcome of replaying one scenario.
type ScenarioResult struct {
	Name     string
	Passed   bool
	Result   engine.Result
	Failures []string
}

// Summary aggregates a replay run.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Results []ScenarioResult
}

// #endregion types

// #region harness

// Harness replays fixture scenarios, each on a fresh controller.
type Harness struct {
	model  *factor.Model
	logger *slog.Logger
}

// NewHarness creates a harness scoring with model (nil means the default registry).
func NewHarness(model *factor.Model, logger *slog.Logger) *Harness {
	if model == nil {
		model = factor.DefaultModel()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{model: model, logger: logger}
}

// Run replays every scenario in order. Only controller construction or a
// cancelled ctx returns an error; mismatches are reported in the summary.
func (h *Harness) Run(ctx context.Context, f Fixture) (Summary, error) {
	th := f.thresholds()
	sum := Summary{Total: len(f.Scenarios)}

	for _, sc := range f.Scenarios {
		ctrl, err := engine.New(engine.Options{Model: h.model, Thresholds: &th, Logger: h.logger})
		if err != nil {
			return Summary{}, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		sr, err := h.replay(ctx, ctrl, sc)
		if err != nil {
			return Summary{}, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		if sr.Passed {
			sum.Passed++
		} else {
			sum.Failed++
		}
		sum.Results = append(sum.Results, sr)
	}
	return sum, nil
}

func (h *Harness) replay(ctx context.Context, ctrl *engine.Controller, sc Scenario) (ScenarioResult, error) {
	sr := ScenarioResult{Name: sc.Name}
	fail := func(format string, args ...any) {
		sr.Failures = append(sr.Failures, fmt.Sprintf(format, args...))
	}

	for _, name := range sortedKeys(sc.Rejected) {
		err := ctrl.SetInput(name, sc.Rejected[name])
		if !errors.Is(err, engine.ErrInvalidInput) {
			fail("input %s=%g: expected rejection, got %v", name, sc.Rejected[name], err)
		}
	}
	if err := ctrl.SetInputs(sc.Inputs); err != nil {
		fail("set inputs: %v", err)
	}

	res, err := ctrl.Run(ctx)
	if err != nil {
		return ScenarioResult{}, err
	}
	sr.Result = res

	if res.Impact != sc.Expect.Impact {
		fail("impact: got %d, want %d", res.Impact, sc.Expect.Impact)
	}
	if res.Label != sc.Expect.Label {
		fail("label: got %q, want %q", res.Label, sc.Expect.Label)
	}
	if string(res.Status) != sc.Expect.Status {
		fail("status: got %s, want %s", res.Status, sc.Expect.Status)
	}
	for _, name := range sortedKeys(sc.Expect.Contributions) {
		want := sc.Expect.Contributions[name]
		got, ok := res.Points(name)
		if !ok {
			fail("contribution %s: missing", name)
			continue
		}
		if got != want {
			fail("contribution %s: got %d, want %d", name, got, want)
		}
	}

	sr.Passed = len(sr.Failures) == 0
	h.logger.Debug("scenario replayed", "scenario", sc.Name, "passed", sr.Passed, "impact", res.Impact)
	return sr, nil
}

// #endregion harness

// #region helpers
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion helpers
