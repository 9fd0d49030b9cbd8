package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keagan/splicer/internal/compiler"
	"github.com/keagan/splicer/internal/ffmpeg"
	"github.com/keagan/splicer/internal/timeline"
	"github.com/rs/zerolog"
)

type fakeProber struct {
	mu     sync.Mutex
	paths  []string
	active int32
	peak   int32
	fail   bool
	silent bool
}

func (f *fakeProber) ProbeMedia(ctx context.Context, path string) (*ffmpeg.MediaInfo, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()

	if f.fail {
		return nil, errors.New("ffprobe failed: exit status 1")
	}
	return &ffmpeg.MediaInfo{Path: path, Duration: 12, Width: 640, Height: 360, HasVideo: true, HasAudio: !f.silent}, nil
}

const sampleProject = `
name: demo
resolution: {width: 1280, height: 720}
media:
  - id: intro
    kind: video
    source: clips/intro.mp4
    duration: 8
    dimensions: {width: 1920, height: 1080}
  - id: logo
    kind: image
    source: /assets/logo.png
    title: logo.png
    duration: 3
    dimensions: {width: 200, height: 100}
  - id: song
    kind: audio
    source: music/song.mp3
    duration: 30
clips:
  - id: base
    media: intro
    trim_start: 1
    visual:
      eq:
        contrast: {static: 1.3}
  - id: badge
    media: logo
    offset: 2
    z: 4
    visual:
      origin: [0, 0]
      matrix:
        translate_x:
          duration: 2
          curves:
            - {time: 1, value: 100}
            - {time: 0, value: 0}
  - media: song
    sound:
      pan: -0.5
      volume:
        duration: 4
        curves:
          - {time: 0, value: 0}
          - {time: 1, value: 1}
`

func TestParseProject(t *testing.T) {
	l := NewLoader(zerolog.Nop(), nil, 2)
	p, err := l.Parse(context.Background(), []byte(sampleProject), "/work")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if p.Name != "demo" || p.Timeline.Resolution.Width != 1280 {
		t.Errorf("header not read: %+v", p)
	}
	if p.Media[0].Source != filepath.Join("/work", "clips/intro.mp4") {
		t.Errorf("relative source not resolved: %s", p.Media[0].Source)
	}
	if p.Media[1].Source != "/assets/logo.png" {
		t.Errorf("absolute source changed: %s", p.Media[1].Source)
	}

	clips := p.Timeline.All()
	if len(clips) != 3 {
		t.Fatalf("got %d clips, want 3", len(clips))
	}

	base := clips[0]
	if base.Kind != timeline.KindVideo || base.TrimStart != 1 || base.Duration() != 7 {
		t.Errorf("base clip: %+v", base)
	}
	if base.Visual.EQ.Contrast.Static != 1.3 || base.Visual.EQ.Gamma.Static != 1 {
		t.Errorf("eq defaults not merged: %+v", base.Visual.EQ)
	}
	if base.Visual.Matrix.ScaleX.Static != 1 || base.Visual.Origin != [2]float64{0.5, 0.5} {
		t.Errorf("identity transform lost: %+v", base.Visual)
	}

	badge := clips[1]
	tx := badge.Visual.Matrix.TranslateX
	if len(tx.Curves) != 2 || tx.Curves[0].Time != 0 || tx.Curves[1].Value != 100 {
		t.Errorf("curve not normalized: %+v", tx.Curves)
	}
	if badge.Visual.Origin != [2]float64{0, 0} || badge.Z != 4 {
		t.Errorf("badge visual: %+v", badge.Visual)
	}

	music := clips[2]
	if music.ID == "" {
		t.Error("missing clip id should be generated")
	}
	if left, right := music.Sound.Gains(); left != 1 || right != 0.5 {
		t.Errorf("gains = %v, %v", left, right)
	}
	if music.Visual != nil {
		t.Error("audio clip should have no visual payload")
	}

	if p.Timeline.TotalDuration() != 30 {
		t.Errorf("total duration %v, want 30", p.Timeline.TotalDuration())
	}
	if _, err := compiler.Compile(p.Timeline, compiler.DefaultOptions()); err != nil {
		t.Errorf("loaded project does not compile: %v", err)
	}
}

func TestCurveWithoutDurationSpansClip(t *testing.T) {
	doc := `
media:
  - {id: m, kind: video, source: m.mp4, duration: 12, dimensions: {width: 640, height: 360}}
clips:
  - id: slide
    media: m
    offset: 1
    trim_end: 2
    visual:
      matrix:
        translate_x:
          curves: [{time: 0, value: 0}, {time: 1, value: 500}]
`
	p, err := NewLoader(zerolog.Nop(), nil, 1).Parse(context.Background(), []byte(doc), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tx := p.Timeline.Get("slide").Visual.Matrix.TranslateX
	if tx.Duration != 10 || tx.Offset != 0 {
		t.Errorf("curve span = %v+%v, want the 10s clip", tx.Offset, tx.Duration)
	}

	prog, err := compiler.Compile(p.Timeline, compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if want := "0+((500-0)*(t-1)/(11-1))"; !strings.Contains(prog.Text(), want) {
		t.Errorf("missing ramp %q in:\n%s", want, prog.Text())
	}
}

func TestParseProbesMissingMetadata(t *testing.T) {
	doc := `
media:
  - {id: a, kind: video, source: a.mp4}
  - {id: b, kind: video, source: b.mp4}
  - {id: c, kind: audio, source: c.mp3}
  - {id: d, kind: video, source: d.mp4, duration: 3, dimensions: {width: 10, height: 10}}
clips:
  - {media: a}
  - {media: b.mp4}
`
	prober := &fakeProber{}
	l := NewLoader(zerolog.Nop(), prober, 2)
	p, err := l.Parse(context.Background(), []byte(doc), "/src")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(prober.paths) != 3 {
		t.Errorf("probed %v, want a, b and c only", prober.paths)
	}
	if prober.peak > 2 {
		t.Errorf("ran %d probes at once, limit is 2", prober.peak)
	}

	a := p.Media[0]
	if a.Duration != 12 || a.Dimensions == nil || a.Dimensions.Width != 640 {
		t.Errorf("probe results not applied: %+v", a)
	}
	if p.Media[3].Duration != 3 {
		t.Error("known metadata should not be overwritten")
	}
	if p.Timeline.Resolution != (timeline.Resolution{Width: 1920, Height: 1080}) {
		t.Errorf("fallback resolution not used: %+v", p.Timeline.Resolution)
	}
	if got := p.Timeline.All()[1].Media.ID; got != "b" {
		t.Errorf("clip should resolve media by source, got %s", got)
	}
}

func TestProbeMarksSilentVideo(t *testing.T) {
	doc := `
media:
  - {id: a, kind: video, source: a.mp4}
  - {id: b, kind: video, source: b.mp4, duration: 3, dimensions: {width: 10, height: 10}, silent: true}
  - {id: c, kind: video, source: c.mp4, duration: 3, dimensions: {width: 10, height: 10}}
`
	p, err := NewLoader(zerolog.Nop(), &fakeProber{silent: true}, 1).Parse(context.Background(), []byte(doc), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.Media[0].Silent || p.Media[0].HasAudio() {
		t.Error("probed video without audio should be marked silent")
	}
	if !p.Media[1].Silent {
		t.Error("silent flag from the project file was lost")
	}
	if p.Media[2].Silent {
		t.Error("unprobed media should keep its audio")
	}
}

func TestParseProbeFailure(t *testing.T) {
	doc := `
media:
  - {id: a, kind: video, source: a.mp4}
`
	l := NewLoader(zerolog.Nop(), &fakeProber{fail: true}, 1)
	_, err := l.Parse(context.Background(), []byte(doc), "")
	if err == nil || !strings.Contains(err.Error(), "media a") {
		t.Fatalf("got %v, want probe failure naming the media", err)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown media":   "media: []\nclips:\n  - {media: ghost}\n",
		"unknown kind":    "media:\n  - {id: x, kind: hologram, duration: 1}\n",
		"duplicate media": "media:\n  - {id: x, kind: audio, duration: 1}\n  - {id: x, kind: audio, duration: 1}\n",
		"duplicate clip":  "media:\n  - {id: x, kind: audio, duration: 1}\nclips:\n  - {id: c, media: x}\n  - {id: c, media: x}\n",
		"no probe":        "media:\n  - {id: x, kind: video, source: x.mp4}\n",
		"bad curve":       "media:\n  - {id: x, kind: audio, duration: 1}\nclips:\n  - {media: x, sound: {volume: {curves: [{time: 2, value: 1}]}}}\n",
		"bad yaml":        "media: [",
	}
	l := NewLoader(zerolog.Nop(), nil, 1)
	for name, doc := range cases {
		if _, err := l.Parse(context.Background(), []byte(doc), ""); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	doc := "media:\n  - {id: s, kind: audio, source: s.mp3, duration: 2}\nclips:\n  - {id: c, media: s}\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := NewLoader(zerolog.Nop(), nil, 1).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Path != path || p.Media[0].Source != filepath.Join(dir, "s.mp3") {
		t.Errorf("paths not resolved: %+v", p.Media[0])
	}

	if _, err := NewLoader(zerolog.Nop(), nil, 1).Load(context.Background(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
