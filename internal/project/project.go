// Package project loads YAML project files into a timeline, probing media
// whose duration or dimensions were left out.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/keagan/splicer/internal/ffmpeg"
	"github.com/keagan/splicer/internal/timeline"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Prober reads media metadata
type Prober interface {
	ProbeMedia(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

// Project is a loaded project file
type Project struct {
	Name     string
	Path     string
	Media    []*timeline.Media
	Timeline *timeline.Timeline
}

type document struct {
	Name       string              `yaml:"name"`
	Resolution timeline.Resolution `yaml:"resolution"`
	Media      []*timeline.Media   `yaml:"media"`
	Clips      []yaml.Node         `yaml:"clips"`
}

type clipHeader struct {
	ID    string `yaml:"id"`
	Media string `yaml:"media"`
}

type clipDocument struct {
	Offset    float64          `yaml:"offset"`
	TrimStart float64          `yaml:"trim_start"`
	TrimEnd   float64          `yaml:"trim_end"`
	Z         int              `yaml:"z"`
	Visual    *timeline.Visual `yaml:"visual"`
	Sound     *timeline.Sound  `yaml:"sound"`
}

// Loader reads project files
type Loader struct {
	logger      zerolog.Logger
	prober      Prober
	concurrency int
	// Fallback is the canvas used when a project sets no resolution
	Fallback timeline.Resolution
}

// NewLoader creates a loader. prober may be nil, in which case media must
// carry their duration and dimensions.
func NewLoader(logger zerolog.Logger, prober Prober, concurrency int) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Loader{
		logger:      logger.With().Str("component", "project").Logger(),
		prober:      prober,
		concurrency: concurrency,
		Fallback:    timeline.Resolution{Width: 1920, Height: 1080},
	}
}

// Load reads and resolves a project file. Relative media sources are
// resolved against the file's directory.
func (l *Loader) Load(ctx context.Context, path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	p, err := l.Parse(ctx, data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse builds a project from YAML. baseDir anchors relative sources.
func (l *Loader) Parse(ctx context.Context, data []byte, baseDir string) (*Project, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}

	media, err := l.resolveMedia(doc.Media, baseDir)
	if err != nil {
		return nil, err
	}
	if err := l.probe(ctx, media); err != nil {
		return nil, err
	}

	res := doc.Resolution
	if res.Width <= 0 || res.Height <= 0 {
		res = l.Fallback
	}
	tl := timeline.New(res)

	byRef := make(map[string]*timeline.Media, len(media)*2)
	for _, m := range media {
		byRef[m.ID] = m
		if m.Source != "" {
			byRef[m.Source] = m
		}
	}

	seen := make(map[string]bool, len(doc.Clips))
	for i := range doc.Clips {
		clip, err := buildClip(&doc.Clips[i], byRef, baseDir)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		if seen[clip.ID] {
			return nil, fmt.Errorf("clip %d: duplicate id %q", i, clip.ID)
		}
		seen[clip.ID] = true
		tl.Add(clip)
	}

	if err := tl.Validate(); err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("project", doc.Name).
		Int("media", len(media)).
		Int("clips", len(tl.All())).
		Float64("duration", tl.TotalDuration()).
		Msg("project loaded")

	return &Project{Name: doc.Name, Media: media, Timeline: tl}, nil
}

func (l *Loader) resolveMedia(media []*timeline.Media, baseDir string) ([]*timeline.Media, error) {
	ids := make(map[string]bool, len(media))
	for i, m := range media {
		if m == nil {
			return nil, fmt.Errorf("media %d is empty", i)
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if ids[m.ID] {
			return nil, fmt.Errorf("duplicate media id %q", m.ID)
		}
		ids[m.ID] = true

		switch m.Kind {
		case timeline.KindVideo, timeline.KindAudio, timeline.KindImage:
		default:
			return nil, fmt.Errorf("media %s: unknown kind %q", m.ID, m.Kind)
		}
		if m.Source != "" && !filepath.IsAbs(m.Source) {
			m.Source = filepath.Join(baseDir, m.Source)
		}
	}
	return media, nil
}

// needsProbe reports whether a media lacks metadata the compiler relies on
func needsProbe(m *timeline.Media) bool {
	if m.Kind != timeline.KindImage && m.Duration <= 0 {
		return true
	}
	return m.Kind.HasVideo() && m.Dimensions == nil
}

// probe fills in missing media metadata, running up to concurrency ffprobe
// processes at once
func (l *Loader) probe(ctx context.Context, media []*timeline.Media) error {
	var pending []*timeline.Media
	for _, m := range media {
		if needsProbe(m) {
			pending = append(pending, m)
		}
	}
	if len(pending) > 0 && l.prober == nil {
		return fmt.Errorf("media %s: duration or dimensions missing and probing is unavailable", pending[0].ID)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for _, m := range pending {
		m := m
		g.Go(func() error {
			info, err := l.prober.ProbeMedia(ctx, m.Source)
			if err != nil {
				return fmt.Errorf("media %s: %w", m.ID, err)
			}
			if m.Duration <= 0 {
				m.Duration = info.Duration
			}
			if m.Dimensions == nil && info.HasVideo {
				m.Dimensions = &timeline.Size{Width: info.Width, Height: info.Height}
			}
			if m.Kind == timeline.KindVideo && !info.HasAudio {
				m.Silent = true
			}

			l.logger.Debug().
				Str("media", m.ID).
				Float64("duration", m.Duration).
				Int("width", info.Width).
				Int("height", info.Height).
				Msg("probed media")
			return nil
		})
	}

	return g.Wait()
}

// buildClip decodes a clip node on top of the defaults for its media kind,
// so omitted fields keep identity values
func buildClip(node *yaml.Node, byRef map[string]*timeline.Media, baseDir string) (*timeline.Clip, error) {
	var header clipHeader
	if err := node.Decode(&header); err != nil {
		return nil, err
	}

	m, ok := byRef[header.Media]
	if !ok {
		m, ok = byRef[filepath.Join(baseDir, header.Media)]
	}
	if !ok {
		return nil, fmt.Errorf("unknown media %q", header.Media)
	}

	id := header.ID
	if id == "" {
		id = uuid.NewString()
	}

	var clip *timeline.Clip
	switch m.Kind {
	case timeline.KindVideo:
		clip = timeline.NewVideoClip(id, m, 0)
	case timeline.KindImage:
		clip = timeline.NewImageClip(id, m, 0)
	default:
		clip = timeline.NewAudioClip(id, m, 0)
	}

	doc := clipDocument{Visual: clip.Visual, Sound: clip.Sound}
	if err := node.Decode(&doc); err != nil {
		return nil, fmt.Errorf("clip %s: %w", id, err)
	}

	clip.Offset = doc.Offset
	clip.TrimStart = doc.TrimStart
	clip.TrimEnd = doc.TrimEnd
	clip.Z = doc.Z
	if m.Kind.HasVideo() {
		clip.Visual = doc.Visual
	}
	if m.Kind.HasAudio() {
		clip.Sound = doc.Sound
	}

	for _, a := range clip.Automations() {
		// curves without a duration span the whole clip
		if a.Duration == 0 && len(a.Curves) > 0 {
			a.Duration = clip.Duration()
		}
		a.Normalize()
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("clip %s: %w", id, err)
		}
	}
	return clip, nil
}
