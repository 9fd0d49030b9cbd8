package timeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MediaKind discriminates media and clip variants
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
	KindImage MediaKind = "image"
)

// HasAudio reports whether media of this kind carries an audio stream
func (k MediaKind) HasAudio() bool {
	return k == KindVideo || k == KindAudio
}

// HasVideo reports whether media of this kind carries a picture
func (k MediaKind) HasVideo() bool {
	return k == KindVideo || k == KindImage
}

// Size is a width/height pair in pixels
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Media is a resolved source file. Several clips may share one Media.
type Media struct {
	ID         string    `yaml:"id"`
	Kind       MediaKind `yaml:"kind"`
	Source     string    `yaml:"source"`
	Title      string    `yaml:"title"`
	Duration   float64   `yaml:"duration"`
	Dimensions *Size     `yaml:"dimensions,omitempty"`
	// Silent marks video files without an audio stream
	Silent bool `yaml:"silent,omitempty"`
}

// HasAudio reports whether the file actually carries an audio stream
func (m *Media) HasAudio() bool {
	return m.Kind.HasAudio() && !m.Silent
}

// FileName is the name the media is staged under inside the engine's workspace
func (m *Media) FileName() string {
	var ext string
	switch m.Kind {
	case KindAudio:
		ext = "mp3"
	case KindVideo:
		ext = "mp4"
	default:
		ext = strings.TrimPrefix(filepath.Ext(m.Title), ".")
		if ext == "" {
			ext = strings.TrimPrefix(filepath.Ext(m.Source), ".")
		}
		if ext == "" {
			ext = "png"
		}
	}
	return fmt.Sprintf("%s.%s", m.ID, strings.ToLower(ext))
}

// Dims returns the media dimensions, zero when unknown
func (m *Media) Dims() Size {
	if m.Dimensions == nil {
		return Size{}
	}
	return *m.Dimensions
}

// Resolution is the output canvas size
type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Safe returns the resolution with odd dimensions decremented to even
func (r Resolution) Safe() Resolution {
	return Resolution{Width: r.Width - r.Width%2, Height: r.Height - r.Height%2}
}
