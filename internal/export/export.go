// Package export drives one render of a compiled timeline through the
// engine and tracks its progress.
package export

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keagan/splicer/internal/compiler"
	"github.com/keagan/splicer/internal/timeline"
	"github.com/rs/zerolog"
)

// Orchestrator runs exports one at a time
type Orchestrator struct {
	logger zerolog.Logger
	engine Engine
	opts   Options

	mu         sync.Mutex
	state      State
	percentage float64
	err        error
	onUpdate   func(Snapshot)
}

// New creates an idle orchestrator
func New(logger zerolog.Logger, engine Engine, opts Options) *Orchestrator {
	defaults := DefaultOptions()
	if opts.OutputName == "" {
		opts.OutputName = defaults.OutputName
	}
	if opts.ReleaseGrace <= 0 {
		opts.ReleaseGrace = defaults.ReleaseGrace
	}
	return &Orchestrator{
		logger: logger.With().Str("component", "export").Logger(),
		engine: engine,
		opts:   opts,
		state:  StateIdle,
	}
}

// OnUpdate registers a callback fired on every state or progress change.
// It runs on the goroutine that caused the change.
func (o *Orchestrator) OnUpdate(fn func(Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onUpdate = fn
}

// Status returns the current state and progress
func (o *Orchestrator) Status() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot()
}

func (o *Orchestrator) snapshot() Snapshot {
	return Snapshot{State: o.state, Percentage: o.percentage, Err: o.err}
}

// Export compiles the timeline, stages its media and renders it. It fails
// with ErrExportInProgress while another export is running.
func (o *Orchestrator) Export(ctx context.Context, tl *timeline.Timeline) (*Artifact, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	logger := o.logger.With().Str("job", jobID).Logger()
	logger.Info().Str("state", string(StateSetup)).Msg("export started")

	prog, err := o.setup(ctx, logger, tl)
	if err != nil {
		return nil, o.fail(logger, err)
	}

	o.transition(StateExport)
	logger.Info().
		Str("state", string(StateExport)).
		Int("inputs", len(prog.Inputs)).
		Float64("duration", prog.Duration).
		Msg("rendering")

	data, err := o.engine.Render(ctx, prog.Args(), o.opts.OutputName, prog.Duration, o.progress)
	if err != nil {
		return nil, o.fail(logger, &EngineError{Err: err})
	}

	name := o.opts.OutputName
	artifact := &Artifact{
		JobID:    jobID,
		Name:     name,
		Data:     data,
		Duration: prog.Duration,
		release: func() {
			if err := o.engine.Release(name); err != nil {
				logger.Warn().Err(err).Str("file", name).Msg("failed to release output")
				return
			}
			logger.Debug().Str("file", name).Msg("output released")
		},
	}
	time.AfterFunc(o.opts.ReleaseGrace, artifact.Release)

	o.mu.Lock()
	o.state = StateDone
	o.percentage = 1
	snap, fn := o.snapshot(), o.onUpdate
	o.mu.Unlock()
	notify(fn, snap)

	logger.Info().
		Str("state", string(StateDone)).
		Int("bytes", len(data)).
		Msg("export complete")

	return artifact, nil
}

// setup checks the engine, compiles and stages everything the render reads
func (o *Orchestrator) setup(ctx context.Context, logger zerolog.Logger, tl *timeline.Timeline) (*compiler.Program, error) {
	if o.engine == nil || !o.engine.Ready() {
		return nil, ErrEngineNotReady
	}

	prog, err := compiler.Compile(tl, o.opts.Compile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile timeline: %w", err)
	}
	if prog.Duration <= 0 {
		return nil, ErrEmptyTimeline
	}

	logger.Debug().Str("graph", prog.Text()).Msg("compiled filter graph")

	for _, in := range prog.Inputs {
		if err := o.engine.Stage(ctx, in.Media); err != nil {
			return nil, &EngineError{Err: err}
		}
		logger.Debug().Str("media", in.Media.ID).Str("file", in.Name()).Msg("media staged")
	}

	if err := o.engine.SynthesizeBase(ctx, prog.BaseName, prog.Resolution, prog.Duration); err != nil {
		return nil, &EngineError{Err: err}
	}
	return prog, nil
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	if o.state.busy() {
		o.mu.Unlock()
		return ErrExportInProgress
	}
	o.state = StateSetup
	o.percentage = 0
	o.err = nil
	snap, fn := o.snapshot(), o.onUpdate
	o.mu.Unlock()

	notify(fn, snap)
	return nil
}

func (o *Orchestrator) transition(s State) {
	o.mu.Lock()
	o.state = s
	snap, fn := o.snapshot(), o.onUpdate
	o.mu.Unlock()
	notify(fn, snap)
}

func (o *Orchestrator) fail(logger zerolog.Logger, err error) error {
	o.mu.Lock()
	o.state = StateError
	o.err = err
	snap, fn := o.snapshot(), o.onUpdate
	o.mu.Unlock()
	notify(fn, snap)

	logger.Error().Err(err).Str("state", string(StateError)).Msg("export failed")
	return err
}

// progress records an engine ratio. Values are clamped to [0,1] and only
// accepted while rendering and when they move forward.
func (o *Orchestrator) progress(ratio float64) {
	if math.IsNaN(ratio) {
		return
	}
	ratio = math.Min(1, math.Max(0, ratio))

	o.mu.Lock()
	if o.state != StateExport || ratio <= o.percentage {
		o.mu.Unlock()
		return
	}
	o.percentage = ratio
	snap, fn := o.snapshot(), o.onUpdate
	o.mu.Unlock()
	notify(fn, snap)
}

func notify(fn func(Snapshot), snap Snapshot) {
	if fn != nil {
		fn(snap)
	}
}
