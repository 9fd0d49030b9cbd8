package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/keagan/splicer/pkg/util"
	"github.com/rs/zerolog"
)

// ErrNotInitialized is returned by workspace operations before Init or after Dispose
var ErrNotInitialized = errors.New("ffmpeg workspace not initialized")

// Executor handles all ffmpeg operations with progress streaming. It owns a
// private workspace directory that staged media, the base canvas and render
// output live in.
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	opts        Options

	mu        sync.Mutex
	workspace string
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	opts = opts.withDefaults()

	ffmpegPath, err := exec.LookPath(opts.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath(opts.ProbePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		opts:        opts,
	}, nil
}

// Init creates the workspace. Calling it again is a no-op.
func (e *Executor) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.workspace != "" {
		return nil
	}
	if e.opts.TempDir != "" {
		if err := util.EnsureDir(e.opts.TempDir); err != nil {
			return fmt.Errorf("failed to create temp dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(e.opts.TempDir, "splicer-*")
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	e.workspace = dir

	e.logger.Debug().Str("workspace", dir).Msg("workspace ready")
	return nil
}

// Dispose removes the workspace and everything staged in it
func (e *Executor) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.workspace == "" {
		return nil
	}
	dir := e.workspace
	e.workspace = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	e.logger.Debug().Str("workspace", dir).Msg("workspace removed")
	return nil
}

// Ready reports whether the workspace exists
func (e *Executor) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workspace != ""
}

// Workspace returns the workspace directory, empty before Init
func (e *Executor) Workspace() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workspace
}

// Run executes ffmpeg inside the workspace with the given arguments and
// streams progress
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}
	dir := e.Workspace()
	if dir == "" {
		return ErrNotInitialized
	}

	args := append(e.globalArgs(), opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Dir = dir

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	var lastLine string
	wg.Add(2)

	// Stream stderr (progress + logs)
	go func() {
		defer wg.Done()
		lastLine = scanProgress(stderr, opts.Duration, opts.ProgressHandler, opts.LogHandler)
	}()

	// Stream stdout
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if lastLine != "" {
			return fmt.Errorf("ffmpeg execution failed: %w: %s", err, lastLine)
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

func (e *Executor) globalArgs() []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-nostats"}
	if e.opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(e.opts.Threads))
	}
	return append(args, "-progress", "pipe:2")
}

// scanProgress parses ffmpeg -progress key=value blocks, calling the handlers
// as it goes. Other lines go to the log handler; the last of them is
// returned so failures can report ffmpeg's own message.
func scanProgress(r io.Reader, duration float64, progressHandler func(*Progress), logHandler func(string)) string {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	progress := &Progress{}
	var lastLine string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		key, value, ok := progressField(line)
		if !ok {
			lastLine = line
			if logHandler != nil {
				logHandler(line)
			}
			continue
		}

		switch key {
		case "frame":
			progress.Frame, _ = strconv.Atoi(value)
		case "fps":
			progress.FPS, _ = strconv.ParseFloat(value, 64)
		case "bitrate":
			progress.Bitrate = value
		case "out_time_us", "out_time_ms":
			// both are microseconds
			if us, err := strconv.ParseInt(value, 10, 64); err == nil {
				progress.OutTime = float64(us) / 1e6
			}
		case "out_time":
			if progress.OutTime == 0 {
				if s, err := util.ParseTimestamp(value); err == nil {
					progress.OutTime = s
				}
			}
		case "speed":
			progress.Speed = value
		case "progress":
			progress.Done = value == "end"
			progress.Percentage = ratio(progress.OutTime, duration, progress.Done)
			if progressHandler != nil {
				progressHandler(progress)
			}
			progress = &Progress{}
		}
	}
	return lastLine
}

// progressField splits a key=value progress line. Keys are lowercase
// identifiers, which keeps ordinary log lines out.
func progressField(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok || key == "" {
		return "", "", false
	}
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return "", "", false
		}
	}
	return key, strings.TrimSpace(value), true
}

func ratio(outTime, duration float64, done bool) float64 {
	if done {
		return 1
	}
	if duration <= 0 || outTime <= 0 {
		return 0
	}
	return math.Min(1, outTime/duration)
}
