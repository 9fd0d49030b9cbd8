// Package compiler turns a timeline into a single ffmpeg filter graph plus
// the argument list that feeds it. Compilation is pure: the same timeline
// always produces byte-identical output.
package compiler

import (
	"fmt"

	"github.com/keagan/splicer/internal/filtergraph"
	"github.com/keagan/splicer/internal/timeline"
)

const (
	// VideoOut and AudioOut are the graph sinks mapped to the output file
	VideoOut = "vout"
	AudioOut = "aout"

	// DefaultBaseName is the synthesized black/silent canvas, always input 0
	DefaultBaseName = "base.mp4"
)

// Options tunes compilation
type Options struct {
	// BaseName is the file name of the base canvas input
	BaseName string
	// Prescale oversamples visual sources to twice the canvas width before
	// they are split
	Prescale bool
}

// DefaultOptions returns the options used by the exporter
func DefaultOptions() Options {
	return Options{
		BaseName: DefaultBaseName,
		Prescale: true,
	}
}

// Program is a compiled timeline
type Program struct {
	Graph      *filtergraph.Graph
	Inputs     []Input
	BaseName   string
	Duration   float64
	Resolution timeline.Resolution
	// Clips are the compiled clips, indexed from 1 by label names
	Clips []*timeline.Clip
}

// Text is the serialized filter graph
func (p *Program) Text() string {
	return p.Graph.String()
}

// Args returns the engine arguments: the base canvas, every unique media
// file, the filter graph and the two output links. Images are looped for the
// whole program so per-frame expressions keep being evaluated.
func (p *Program) Args() []string {
	args := []string{"-i", p.BaseName}
	for _, in := range p.Inputs {
		if in.Media.Kind == timeline.KindImage {
			args = append(args, "-loop", "1", "-t", filtergraph.Num(p.Duration))
		}
		args = append(args, "-i", in.Name())
	}
	args = append(args,
		"-filter_complex", p.Text(),
		"-map", "["+VideoOut+"]",
		"-map", "["+AudioOut+"]",
	)
	return args
}

type compilation struct {
	opts  Options
	res   timeline.Resolution
	graph *filtergraph.Graph
}

// Compile builds the filter graph for a timeline. Zero-duration clips are
// skipped entirely. The graph is validated before it is returned.
func Compile(tl *timeline.Timeline, opts Options) (*Program, error) {
	if opts.BaseName == "" {
		opts.BaseName = DefaultBaseName
	}

	clips := tl.Ordered()
	for _, clip := range clips {
		if err := clip.Validate(); err != nil {
			return nil, err
		}
	}

	c := &compilation{
		opts:  opts,
		res:   tl.Resolution.Safe(),
		graph: filtergraph.NewGraph(VideoOut, AudioOut),
	}

	inputs := planInputs(clips)
	src := c.fanOut(inputs)

	if err := c.video(clips, src.video); err != nil {
		return nil, fmt.Errorf("compile video graph: %w", err)
	}
	c.audio(clips, src.audio)

	if err := c.graph.Validate(); err != nil {
		return nil, fmt.Errorf("compiled graph is inconsistent: %w", err)
	}

	return &Program{
		Graph:      c.graph,
		Inputs:     inputs,
		BaseName:   opts.BaseName,
		Duration:   tl.TotalDuration(),
		Resolution: c.res,
		Clips:      clips,
	}, nil
}
