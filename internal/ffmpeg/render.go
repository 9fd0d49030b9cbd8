package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/keagan/splicer/internal/timeline"
	"github.com/keagan/splicer/pkg/util"
)

// path resolves a file name inside the workspace
func (e *Executor) path(name string) (string, error) {
	dir := e.Workspace()
	if dir == "" {
		return "", ErrNotInitialized
	}
	return filepath.Join(dir, filepath.Base(name)), nil
}

// Stage copies a media source into the workspace under its FileName. Media
// already staged is left alone.
func (e *Executor) Stage(ctx context.Context, media *timeline.Media) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if media.Source == "" {
		return fmt.Errorf("media %s has no source", media.ID)
	}

	dst, err := e.path(media.FileName())
	if err != nil {
		return err
	}
	if util.FileExists(dst) {
		return nil
	}

	if err := util.CopyFile(media.Source, dst); err != nil {
		return fmt.Errorf("failed to stage media %s: %w", media.ID, err)
	}

	e.logger.Debug().
		Str("media", media.ID).
		Str("source", media.Source).
		Str("file", filepath.Base(dst)).
		Msg("staged media")
	return nil
}

// Release removes a file from the workspace
func (e *Executor) Release(name string) error {
	p, err := e.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SynthesizeBase renders the black, silent canvas of the given size and length
func (e *Executor) SynthesizeBase(ctx context.Context, name string, res timeline.Resolution, duration float64) error {
	if _, err := e.path(name); err != nil {
		return err
	}

	e.logger.Info().
		Int("width", res.Width).
		Int("height", res.Height).
		Float64("duration", duration).
		Msg("synthesizing base canvas")

	runOpts := RunOptions{
		Args:     e.baseArgs(name, res, duration),
		Duration: duration,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("base output")
		},
	}
	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("base canvas failed: %w", err)
	}
	return nil
}

func (e *Executor) baseArgs(name string, res timeline.Resolution, duration float64) []string {
	color := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", e.opts.BaseColor, res.Width, res.Height, e.opts.FPS)
	silence := fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", e.opts.SampleRate)
	return []string{
		"-f", "lavfi", "-i", color,
		"-f", "lavfi", "-i", silence,
		"-t", strconv.FormatFloat(duration, 'f', -1, 64),
		"-c:v", e.opts.VideoCodec,
		"-pix_fmt", "yuv420p",
		"-c:a", e.opts.AudioCodec,
		filepath.Base(name),
	}
}

// Render runs a compiled program once and returns the encoded output.
// progress receives the completed ratio of duration.
func (e *Executor) Render(ctx context.Context, args []string, output string, duration float64, progress func(float64)) ([]byte, error) {
	out, err := e.path(output)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("output", output).
		Float64("duration", duration).
		Msg("starting render")

	runOpts := RunOptions{
		Args:     e.renderArgs(args, output),
		Duration: duration,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("render output")
		},
	}
	if progress != nil {
		runOpts.ProgressHandler = func(p *Progress) {
			progress(p.Percentage)
		}
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read render output: %w", err)
	}

	e.logger.Info().Str("output", output).Int("bytes", len(data)).Msg("render completed")
	return data, nil
}

func (e *Executor) renderArgs(args []string, output string) []string {
	out := append([]string(nil), args...)
	return append(out,
		"-c:v", e.opts.VideoCodec,
		"-crf", strconv.Itoa(e.opts.CRF),
		"-preset", e.opts.Preset,
		"-pix_fmt", "yuv420p",
		"-c:a", e.opts.AudioCodec,
		filepath.Base(output),
	)
}
