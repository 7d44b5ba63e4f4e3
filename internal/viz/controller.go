package viz

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/san-kum/commlab/internal/analysis"
	"github.com/san-kum/commlab/internal/logs"
	"github.com/san-kum/commlab/internal/protocol"
	"github.com/san-kum/commlab/internal/synth"
)

var (
	ErrUnknownParameter = errors.New("viz: unknown parameter")
	ErrNotSimulatable   = errors.New("viz: descriptor is not simulatable")
	ErrUnsupported      = errors.New("viz: unsupported scheme")
	ErrSynthesis        = errors.New("viz: synthesis failed")
)

type State int

const (
	Uninitialized State = iota
	Idle
	Refreshing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	}
	return "uninitialized"
}

// Chart is the bound plot data. A controller hands out one *Chart for its
// whole life and rewrites its slices on every refresh.
type Chart struct {
	Times     []float64
	Signal    []float64
	Reference []float64
	Revision  int
}

type Readout struct {
	Name  string
	Label string
	Value string
}

func (r Readout) String() string { return r.Label + ": " + r.Value }

// RenderSink draws a refreshed chart. Draw is called with the controller
// lock held and must not call back into the controller.
type RenderSink interface {
	Draw(chart *Chart, readouts []Readout)
}

// ChartState is a snapshot of what the controller owns.
type ChartState struct {
	State    State
	Params   []protocol.Parameter
	Chart    *Chart
	Frame    synth.Frame
	Readouts []Readout
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = logs.OrDiscard(l) }
}

func WithSynthesizer(fn synth.Func) Option {
	return func(c *Controller) { c.synthesize = fn }
}

func WithConfig(cfg synth.Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}

// WithParameters replaces the default AM schema. Current values are clamped
// into their ranges.
func WithParameters(params []protocol.Parameter) Option {
	return func(c *Controller) {
		base := clampParams(params)
		c.base = base
		c.defaults = cloneParams(base)
		c.params = cloneParams(base)
	}
}

type Controller struct {
	mu         sync.Mutex
	state      State
	base       []protocol.Parameter // configured schema, fixed after NewController
	defaults   []protocol.Parameter
	params     []protocol.Parameter
	chart      *Chart
	frame      synth.Frame
	cfg        synth.Config
	sink       RenderSink
	synthesize synth.Func
	logger     *slog.Logger
}

func NewController(sink RenderSink, opts ...Option) *Controller {
	c := &Controller{
		base:       protocol.AMParameters(),
		defaults:   protocol.AMParameters(),
		params:     protocol.AMParameters(),
		cfg:        synth.DefaultConfig(),
		sink:       sink,
		synthesize: synth.Synthesize,
		logger:     logs.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Activate binds the chart on first use and redraws it from the current
// parameters.
func (c *Controller) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked()
}

// OnParameterChange clamps value into the parameter's range and refreshes a
// bound chart. Before activation only the parameter is updated.
func (c *Controller) OnParameterChange(name string, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	return c.setLocked(i, value)
}

// Step moves a parameter by n slider ticks, snapping to the step grid.
func (c *Controller) Step(name string, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	p := c.params[i]
	ticks := math.Round((p.Current-p.Min)/p.Step) + float64(n)
	return c.setLocked(i, p.Min+ticks*p.Step)
}

func (c *Controller) setLocked(i int, value float64) error {
	prev := c.params[i].Current
	c.params[i].Current = c.params[i].Clamp(value)
	if c.state == Uninitialized {
		return nil
	}
	if err := c.refreshLocked(); err != nil {
		c.params[i].Current = prev
		return err
	}
	return nil
}

// Reset restores the armed defaults.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.params
	c.params = cloneParams(c.defaults)
	if c.state == Uninitialized {
		return nil
	}
	if err := c.refreshLocked(); err != nil {
		c.params = prev
		return err
	}
	return nil
}

// Arm installs the parameter schema of an AM descriptor without activating.
// Parameters the descriptor leaves out keep the configured schema; names
// the engine does not know are ignored. A bound chart is redrawn.
func (c *Controller) Arm(d *protocol.Descriptor) error {
	if d == nil || !d.IsSimulatable {
		return ErrNotSimulatable
	}
	if !d.IsAM() {
		return fmt.Errorf("%w: %s", ErrUnsupported, d.Scheme)
	}
	if err := d.Validate(); err != nil {
		return err
	}

	params := cloneParams(c.base)
	for _, p := range d.Parameters {
		matched := false
		for i := range params {
			if params[i].Name == p.Name {
				if p.Label == "" {
					p.Label = params[i].Label
				}
				if p.Unit == "" {
					p.Unit = params[i].Unit
				}
				p.Current = p.Clamp(p.Current)
				params[i] = p
				matched = true
			}
		}
		if !matched {
			c.logger.Warn("ignoring unknown simulation parameter", "name", p.Name)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prevDefaults, prevParams := c.defaults, c.params
	c.defaults = params
	c.params = cloneParams(params)
	if c.state == Uninitialized {
		return nil
	}
	if err := c.refreshLocked(); err != nil {
		c.defaults, c.params = prevDefaults, prevParams
		return err
	}
	return nil
}

// SetConfig changes the sampling grid and redraws a bound chart.
func (c *Controller) SetConfig(cfg synth.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.cfg
	c.cfg = cfg
	if c.state == Uninitialized {
		return nil
	}
	if err := c.refreshLocked(); err != nil {
		c.cfg = prev
		return err
	}
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Chart returns the bound chart, or nil before activation.
func (c *Controller) Chart() *Chart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chart
}

func (c *Controller) Params() []protocol.Parameter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneParams(c.params)
}

func (c *Controller) SynthParams() synth.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synthParamsLocked()
}

func (c *Controller) Readouts() []Readout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readoutsLocked()
}

func (c *Controller) Snapshot() ChartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChartState{
		State:    c.state,
		Params:   cloneParams(c.params),
		Chart:    c.chart,
		Frame:    c.frame,
		Readouts: c.readoutsLocked(),
	}
}

func (c *Controller) refreshLocked() error {
	prev := c.state
	c.state = Refreshing

	p := c.synthParamsLocked()
	frame, err := c.safeSynthesize(p)
	if err != nil {
		c.state = prev
		c.logger.Error("synthesis failed, keeping last chart", "error", err,
			"carrier", p.CarrierFreq, "mod", p.ModFreq, "index", p.ModIndex)
		return fmt.Errorf("refresh: %w", err)
	}

	if c.chart == nil {
		c.chart = &Chart{}
	}
	c.chart.Times = fill(c.chart.Times, frame.Signal.Points, func(pt synth.Point) float64 { return pt.T })
	c.chart.Signal = fill(c.chart.Signal, frame.Signal.Points, func(pt synth.Point) float64 { return pt.V })
	c.chart.Reference = fill(c.chart.Reference, frame.Reference.Points, func(pt synth.Point) float64 { return pt.V })
	c.chart.Revision++
	c.frame = frame
	c.state = Idle

	c.logger.Debug("chart refreshed", "revision", c.chart.Revision,
		"carrier", p.CarrierFreq, "mod", p.ModFreq, "index", p.ModIndex)
	if c.sink != nil {
		c.sink.Draw(c.chart, c.readoutsLocked())
	}
	return nil
}

// safeSynthesize turns a panicking synthesizer into an error.
func (c *Controller) safeSynthesize(p synth.Params) (frame synth.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: synthesizer panicked: %v", ErrSynthesis, r)
		}
	}()
	return c.synthesize(p, c.cfg)
}

func (c *Controller) readoutsLocked() []Readout {
	out := make([]Readout, 0, len(c.params)+1)
	for _, p := range c.params {
		out = append(out, Readout{Name: p.Name, Label: p.DisplayName(), Value: p.Format(p.Current)})
	}
	if i := c.indexLocked(protocol.ParamModIndex); i >= 0 {
		eff := analysis.Efficiency(c.params[i].Current)
		out = append(out, Readout{Name: "efficiency", Label: "Efficiency", Value: fmt.Sprintf("%.1f%%", eff*100)})
	}
	return out
}

func (c *Controller) synthParamsLocked() synth.Params {
	var p synth.Params
	for _, param := range c.params {
		switch param.Name {
		case protocol.ParamCarrierFreq:
			p.CarrierFreq = param.Current
		case protocol.ParamModFreq:
			p.ModFreq = param.Current
		case protocol.ParamModIndex:
			p.ModIndex = param.Current
		}
	}
	return p
}

func (c *Controller) indexLocked(name string) int {
	for i, p := range c.params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func fill(dst []float64, pts []synth.Point, get func(synth.Point) float64) []float64 {
	dst = dst[:0]
	for _, pt := range pts {
		dst = append(dst, get(pt))
	}
	return dst
}

func cloneParams(params []protocol.Parameter) []protocol.Parameter {
	return append([]protocol.Parameter(nil), params...)
}

func clampParams(params []protocol.Parameter) []protocol.Parameter {
	out := cloneParams(params)
	for i := range out {
		out[i].Current = out[i].Clamp(out[i].Current)
	}
	return out
}
