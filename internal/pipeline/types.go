package pipeline

import (
	"github.com/keagan/splicer/internal/export"
	"github.com/keagan/splicer/internal/project"
)

// Engine is everything the pipeline needs from the media engine: export
// staging and rendering, probing, and workspace lifecycle
type Engine interface {
	export.Engine
	project.Prober
	Init() error
	Dispose() error
}

// RenderOptions configures a render
type RenderOptions struct {
	OutputPath string
	// Progress receives every export status change
	Progress func(export.Snapshot)
}

// Result describes a finished render
type Result struct {
	JobID      string
	OutputPath string
	Duration   float64
	Bytes      int
}
