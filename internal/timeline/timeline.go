package timeline

import (
	"sort"
)

// Timeline holds the placed clips in insertion order plus the output canvas
type Timeline struct {
	clips      []*Clip
	Resolution Resolution
}

// New creates an empty timeline
func New(res Resolution) *Timeline {
	return &Timeline{
		clips:      make([]*Clip, 0),
		Resolution: res,
	}
}

// Add appends a clip; insertion order breaks z-order ties
func (t *Timeline) Add(clips ...*Clip) {
	t.clips = append(t.clips, clips...)
}

// Get retrieves a clip by ID
func (t *Timeline) Get(id string) *Clip {
	for _, clip := range t.clips {
		if clip.ID == id {
			return clip
		}
	}
	return nil
}

// All returns all clips in insertion order
func (t *Timeline) All() []*Clip {
	return t.clips
}

// Validate checks every clip
func (t *Timeline) Validate() error {
	for _, c := range t.clips {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Visual returns the video and image clips with a positive duration,
// ordered by ascending Z with ties kept in insertion order
func (t *Timeline) Visual() []*Clip {
	var out []*Clip
	for _, c := range t.clips {
		if c.Kind.HasVideo() && c.Duration() > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Z < out[j].Z
	})
	return out
}

// Audible returns the video and audio clips with a positive duration in
// insertion order
func (t *Timeline) Audible() []*Clip {
	var out []*Clip
	for _, c := range t.clips {
		if c.Media != nil && c.Media.HasAudio() && c.Duration() > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Ordered returns the clips in compile order: visual clips by Z first, then
// audio-only clips in insertion order. Zero-duration clips are left out.
func (t *Timeline) Ordered() []*Clip {
	out := t.Visual()
	for _, c := range t.clips {
		if c.Kind == KindAudio && c.Duration() > 0 {
			out = append(out, c)
		}
	}
	return out
}

// TotalDuration is the furthest end position of any non-empty clip
func (t *Timeline) TotalDuration() float64 {
	var d float64
	for _, c := range t.clips {
		if c.Duration() <= 0 {
			continue
		}
		if end := c.End(); end > d {
			d = end
		}
	}
	return d
}
