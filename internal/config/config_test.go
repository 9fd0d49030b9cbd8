package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splicer.yaml")
	data := []byte(`
concurrency: 2
ffmpeg:
  threads: 8
  crf: 18
export:
  width: 1280
  height: 720
  release_grace: 30s
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Concurrency != 2 || cfg.FFmpeg.Threads != 8 || cfg.FFmpeg.CRF != 18 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Export.Width != 1280 || cfg.Export.ReleaseGrace != 30*time.Second {
		t.Errorf("export section not applied: %+v", cfg.Export)
	}
	// untouched keys keep their defaults
	if cfg.FFmpeg.Preset != "medium" || cfg.Export.SampleRate != 44100 || !cfg.Export.Prescale {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Export.ReleaseGrace != 7*time.Second || cfg.FFmpeg.VideoCodec != "libx264" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("ffmpeg: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SPLICER_FFMPEG_PATH":   "/opt/ffmpeg/bin/ffmpeg",
		"SPLICER_THREADS":       "6",
		"SPLICER_RELEASE_GRACE": "1m",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.FFmpeg.BinaryPath != "/opt/ffmpeg/bin/ffmpeg" || cfg.FFmpeg.Threads != 6 {
		t.Errorf("overrides not applied: %+v", cfg.FFmpeg)
	}
	if cfg.Export.ReleaseGrace != time.Minute {
		t.Errorf("grace = %v, want 1m", cfg.Export.ReleaseGrace)
	}

	env = map[string]string{"SPLICER_CRF": "high"}
	if err := Default().applyEnv(func(k string) string { return env[k] }); err == nil {
		t.Error("expected an error for a non-numeric CRF")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Export.FPS = 60
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Export.FPS != 60 || loaded.Export.ReleaseGrace != cfg.Export.ReleaseGrace {
		t.Errorf("round trip lost values: %+v", loaded.Export)
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()).Concurrency != 4 {
		t.Error("missing config should fall back to defaults")
	}
	cfg := Default()
	cfg.Concurrency = 9
	if FromContext(WithConfig(context.Background(), cfg)) != cfg {
		t.Error("config not carried by context")
	}
}
