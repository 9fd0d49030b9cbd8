package export

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/keagan/splicer/internal/compiler"
	"github.com/keagan/splicer/internal/timeline"
	"github.com/keagan/splicer/pkg/util"
)

// State is the orchestrator's lifecycle position
type State string

const (
	StateIdle   State = "idle"
	StateSetup  State = "setup"
	StateExport State = "export"
	StateDone   State = "done"
	StateError  State = "error"
)

// busy reports whether an export is running
func (s State) busy() bool {
	return s == StateSetup || s == StateExport
}

var (
	// ErrEngineNotReady means the engine was never initialized or has been disposed
	ErrEngineNotReady = errors.New("render engine is not ready")
	// ErrEmptyTimeline means the timeline has nothing to render
	ErrEmptyTimeline = errors.New("timeline is empty")
	// ErrExportInProgress rejects a second export while one is running
	ErrExportInProgress = errors.New("an export is already in progress")
	// ErrEngineExecution matches every *EngineError
	ErrEngineExecution = errors.New("render engine failed")
)

// EngineError carries an engine failure through unchanged
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string { return e.Err.Error() }
func (e *EngineError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrEngineExecution) hold for any engine failure
func (e *EngineError) Is(target error) bool {
	return target == ErrEngineExecution
}

// Engine is the external renderer. Implementations are not assumed to be
// reentrant; the orchestrator never calls them concurrently.
type Engine interface {
	Ready() bool
	// Stage makes a media file available to the engine under its FileName
	Stage(ctx context.Context, media *timeline.Media) error
	// SynthesizeBase writes the black, silent canvas every graph reads as input 0
	SynthesizeBase(ctx context.Context, name string, res timeline.Resolution, duration float64) error
	// Render runs the compiled arguments once, writing output, and returns the
	// encoded bytes. progress receives ratios in [0,1].
	Render(ctx context.Context, args []string, output string, duration float64, progress func(float64)) ([]byte, error)
	// Release frees an engine-side file
	Release(name string) error
}

// Snapshot is the observable export status
type Snapshot struct {
	State      State
	Percentage float64
	Err        error
}

// Options configures an orchestrator
type Options struct {
	// OutputName is the engine-side file the render writes
	OutputName string
	// ReleaseGrace is how long the engine-side output survives after export
	ReleaseGrace time.Duration
	Compile      compiler.Options
}

// DefaultOptions returns the exporter defaults
func DefaultOptions() Options {
	return Options{
		OutputName:   "output.mp4",
		ReleaseGrace: 7 * time.Second,
		Compile:      compiler.DefaultOptions(),
	}
}

// Artifact is the result of a finished export
type Artifact struct {
	JobID    string
	Name     string
	Data     []byte
	Duration float64

	once    sync.Once
	release func()
}

// Release frees the engine-side output file. Safe to call more than once;
// it also runs on its own once the grace period passes.
func (a *Artifact) Release() {
	a.once.Do(func() {
		if a.release != nil {
			a.release()
		}
	})
}

// Save writes the artifact bytes to path, creating parent directories
func (a *Artifact) Save(path string) error {
	if err := util.EnsureParent(path); err != nil {
		return err
	}
	return util.WriteFile(path, a.Data)
}
