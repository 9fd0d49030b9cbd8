package pipeline

import (
	"context"
	"fmt"

	"github.com/keagan/splicer/internal/compiler"
	"github.com/keagan/splicer/internal/config"
	"github.com/keagan/splicer/internal/export"
	"github.com/keagan/splicer/internal/ffmpeg"
	"github.com/keagan/splicer/internal/project"
	"github.com/keagan/splicer/internal/timeline"
	"github.com/rs/zerolog"
)

// Pipeline wires project loading, compilation and export together
type Pipeline struct {
	logger   zerolog.Logger
	cfg      *config.Config
	engine   Engine
	loader   *project.Loader
	exporter *export.Orchestrator
}

// New creates a pipeline backed by an initialized ffmpeg executor
func New(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, ffmpeg.Options{
		BinaryPath: cfg.FFmpeg.BinaryPath,
		ProbePath:  cfg.FFmpeg.ProbePath,
		Threads:    cfg.FFmpeg.Threads,
		TempDir:    cfg.TempDir,
		VideoCodec: cfg.FFmpeg.VideoCodec,
		AudioCodec: cfg.FFmpeg.AudioCodec,
		CRF:        cfg.FFmpeg.CRF,
		Preset:     cfg.FFmpeg.Preset,
		FPS:        cfg.Export.FPS,
		BaseColor:  cfg.Export.BaseColor,
		SampleRate: cfg.Export.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}
	return NewWithEngine(logger, cfg, exec)
}

// NewWithEngine creates a pipeline on top of an existing engine and
// initializes its workspace
func NewWithEngine(logger zerolog.Logger, cfg *config.Config, engine Engine) (*Pipeline, error) {
	if err := engine.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	loader := project.NewLoader(logger, engine, cfg.Concurrency)
	if cfg.Export.Width > 0 && cfg.Export.Height > 0 {
		loader.Fallback = timeline.Resolution{Width: cfg.Export.Width, Height: cfg.Export.Height}
	}

	return &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		cfg:      cfg,
		engine:   engine,
		loader:   loader,
		exporter: export.New(logger, engine, exportOptions(cfg)),
	}, nil
}

func exportOptions(cfg *config.Config) export.Options {
	opts := export.DefaultOptions()
	if cfg.Export.ReleaseGrace > 0 {
		opts.ReleaseGrace = cfg.Export.ReleaseGrace
	}
	opts.Compile.Prescale = cfg.Export.Prescale
	return opts
}

// Close disposes of the engine workspace
func (p *Pipeline) Close() error {
	return p.engine.Dispose()
}

// Load reads a project file, probing media as needed
func (p *Pipeline) Load(ctx context.Context, path string) (*project.Project, error) {
	if path == "" {
		return nil, fmt.Errorf("project path cannot be empty")
	}
	return p.loader.Load(ctx, path)
}

// Compile builds the filter graph for a loaded project with the configured
// compiler options
func (p *Pipeline) Compile(proj *project.Project) (*compiler.Program, error) {
	if proj == nil {
		return nil, fmt.Errorf("project cannot be nil")
	}
	prog, err := compiler.Compile(proj.Timeline, exportOptions(p.cfg).Compile)
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Str("project", proj.Name).
		Int("visual", len(proj.Timeline.Visual())).
		Int("audible", len(proj.Timeline.Audible())).
		Int("inputs", len(prog.Inputs)).
		Msg("project compiled")

	return prog, nil
}

// Status reports the exporter state
func (p *Pipeline) Status() export.Snapshot {
	return p.exporter.Status()
}

// Render exports a project and writes the result to opts.OutputPath. The
// engine-side output is released as soon as it is saved.
func (p *Pipeline) Render(ctx context.Context, proj *project.Project, opts RenderOptions) (*Result, error) {
	if proj == nil {
		return nil, fmt.Errorf("project cannot be nil")
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}

	p.logger.Info().
		Str("project", proj.Name).
		Str("output", opts.OutputPath).
		Msg("starting render pipeline")

	p.exporter.OnUpdate(opts.Progress)
	artifact, err := p.exporter.Export(ctx, proj.Timeline)
	if err != nil {
		return nil, err
	}
	defer artifact.Release()

	if err := artifact.Save(opts.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to save output: %w", err)
	}

	p.logger.Info().
		Str("job", artifact.JobID).
		Str("output", opts.OutputPath).
		Int("bytes", len(artifact.Data)).
		Msg("render pipeline complete")

	return &Result{
		JobID:      artifact.JobID,
		OutputPath: opts.OutputPath,
		Duration:   artifact.Duration,
		Bytes:      len(artifact.Data),
	}, nil
}
