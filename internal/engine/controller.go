package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielpatrickdp/twin-engine/internal/classify"
	"github.com/danielpatrickdp/twin-engine/internal/factor"
)

const tracerName = "github.com/danielpatrickdp/twin-engine/internal/engine"

// #region options

// Options configures a Controller. Zero values fall back to defaults.
type Options struct {
	Model      *factor.Model
	Thresholds *classify.Thresholds
	Delay      time.Duration // presentation delay before a run completes
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

// #endregion options

// #region controller-struct

// Controller owns one session's input vector, run lifecycle and last result.
// All methods are safe for concurrent use.
type Controller struct {
	model      *factor.Model
	thresholds classify.Thresholds
	delay      time.Duration
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	tracer     trace.Tracer

	mu       sync.Mutex
	inputs   map[string]float64
	state    RunState
	last     *Result
	inflight *Run

	// pubMu serializes completion+publication so results publish in start order.
	pubMu sync.Mutex
	subs  *broadcaster
}

// #endregion controller-struct

// #region constructor

// New creates a controller with every input at its factor default.
func New(opts Options) (*Controller, error) {
	model := opts.Model
	if model == nil {
		model = factor.DefaultModel()
	}
	if err := model.Verify(); err != nil {
		return nil, fmt.Errorf("factor model: %w", err)
	}

	thresholds := classify.DefaultThresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	if opts.Delay < 0 {
		return nil, fmt.Errorf("negative delay %s", opts.Delay)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "engine")

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	return &Controller{
		model:      model,
		thresholds: thresholds,
		delay:      opts.Delay,
		logger:     logger,
		now:        now,
		newID:      newID,
		tracer:     otel.Tracer(tracerName),
		inputs:     model.Defaults(),
		state:      StateIdle,
		subs:       newBroadcaster(logger),
	}, nil
}

// #endregion constructor

// #region set-input

// SetInput updates one factor's live value. It never starts a run and never
// changes a run that is already in flight. Values outside the factor's domain
// return an error wrapping ErrInvalidInput and leave state unchanged.
func (c *Controller) SetInput(name string, value float64) error {
	if err := c.validate(name, value); err != nil {
		return err
	}

	c.mu.Lock()
	c.inputs[name] = value
	c.mu.Unlock()
	return nil
}

// SetInputs validates every value first and applies them only if all pass.
func (c *Controller) SetInputs(values map[string]float64) error {
	for name, v := range values {
		if err := c.validate(name, v); err != nil {
			return err
		}
	}

	c.mu.Lock()
	for name, v := range values {
		c.inputs[name] = v
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller) validate(name string, value float64) error {
	f, ok := c.model.Lookup(name)
	if !ok {
		return &InputError{Factor: name, Value: value, Reason: "unknown factor"}
	}
	if !f.Domain.Contains(value) {
		return &InputError{Factor: name, Value: value, Reason: "outside domain " + f.Domain.String()}
	}
	return nil
}

// Inputs returns a copy of the live input vector.
func (c *Controller) Inputs() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyInputs(c.inputs)
}

// #endregion set-input

// #region run

// RunSimulation starts a run over a snapshot of the current inputs and returns
// its handle. While a run is in flight, the in-flight handle is returned and
// no second run starts. ctx carries trace context only; the run completes even
// if ctx is cancelled.
func (c *Controller) RunSimulation(ctx context.Context) *Run {
	c.mu.Lock()
	if c.inflight != nil {
		r := c.inflight
		c.mu.Unlock()
		return r
	}
	snap := copyInputs(c.inputs)
	r := newRun(c.newID(), c.now())
	c.inflight = r
	c.state = StateRunning
	c.mu.Unlock()

	c.logger.Debug("run started", "run_id", r.id)
	go c.execute(context.WithoutCancel(ctx), r, snap)
	return r
}

// Run starts (or joins) a run and waits for its result.
// The only error is ctx's, returned when waiting is abandoned.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	return c.RunSimulation(ctx).Wait(ctx)
}

func (c *Controller) execute(ctx context.Context, r *Run, snap map[string]float64) {
	_, span := c.tracer.Start(ctx, "simulation.run", trace.WithAttributes(
		attribute.String("run.id", r.id),
	))
	defer span.End()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	res := c.score(snap)
	res.RunID = r.id
	res.StartedAt = r.startedAt
	res.CompletedAt = c.now()

	span.SetAttributes(
		attribute.Int("run.impact", res.Impact),
		attribute.String("run.status", string(res.Status)),
	)

	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	stored := res.clone()
	c.mu.Lock()
	c.state = StateCompleted
	c.last = &stored
	c.inflight = nil
	c.mu.Unlock()

	c.logger.Info("run completed",
		"run_id", res.RunID, "impact", res.Impact, "status", res.Status)
	c.subs.publish(res)
	r.complete(res)
}

// score is the pure scoring pass: contributions → impact → classification.
func (c *Controller) score(snap map[string]float64) Result {
	names := c.model.Names()
	contribs := make([]Contribution, 0, len(names))
	impact := 0
	for _, name := range names {
		v := snap[name]
		pts, err := c.model.Contribution(name, v)
		if err != nil {
			// names come from the model itself
			panic(err)
		}
		contribs = append(contribs, Contribution{Factor: name, Value: v, Points: pts})
		impact += pts
	}
	d := c.thresholds.Classify(impact)
	return Result{
		Impact:        impact,
		Label:         d.Label,
		Status:        d.Status,
		Contributions: contribs,
		Inputs:        snap,
	}
}

// #endregion run

// #region subscribe

// Subscribe registers fn for every subsequent completed run and returns a
// func that removes it. Callbacks run on the completing goroutine before the
// run's handle resolves; they may call RunSimulation but must not wait on a run.
func (c *Controller) Subscribe(fn Subscriber) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	return c.subs.add(fn)
}

// Subscribers returns the number of registered subscribers.
func (c *Controller) Subscribers() int {
	return c.subs.len()
}

// #endregion subscribe

// #region current-state

// CurrentState reports the run state and the live inputs. The last result is
// attached only while the state is completed; a running controller has none.
func (c *Controller) CurrentState() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:  c.state,
		Inputs: copyInputs(c.inputs),
	}
	if c.state == StateCompleted && c.last != nil {
		res := c.last.clone()
		snap.Result = &res
	}
	return snap
}

// Model returns the factor registry the controller scores with.
func (c *Controller) Model() *factor.Model {
	return c.model
}

// #endregion current-state

// #region helpers
func copyInputs(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// #endregion helpers
