package automation

import (
	"errors"
	"fmt"
	"sort"
)

// Kind identifies what an automation drives
type Kind string

const (
	KindVolume     Kind = "volume"
	KindScale      Kind = "scale"
	KindPosition   Kind = "position"
	KindContrast   Kind = "contrast"
	KindBrightness Kind = "brightness"
	KindSaturation Kind = "saturation"
	KindGamma      Kind = "gamma"
)

// Anchor is the clip edge an automation is pinned to
type Anchor string

const (
	AnchorStart Anchor = "start"
	AnchorEnd   Anchor = "end"
)

// ErrInvalidCurve is returned by Validate for curves that break ordering or range rules
var ErrInvalidCurve = errors.New("invalid automation curve")

// Keyframe is one control point. Time is normalized to the automation's duration.
type Keyframe struct {
	Time  float64 `yaml:"time"`
	Value float64 `yaml:"value"`
}

// Bounds limits the values an automation may take
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Automation is a time-varying scalar: a keyframe curve with a static fallback.
// An empty curve means the value is Static for the whole span.
type Automation struct {
	ID       string     `yaml:"id"`
	Kind     Kind       `yaml:"kind"`
	Anchor   Anchor     `yaml:"anchor"`
	Offset   float64    `yaml:"offset"`
	Duration float64    `yaml:"duration"`
	Curves   []Keyframe `yaml:"curves"`
	Static   float64    `yaml:"static"`
	Bounds   *Bounds    `yaml:"bounds,omitempty"`
}

// Constant returns an automation with no keyframes
func Constant(kind Kind, value float64) Automation {
	return Automation{Kind: kind, Anchor: AnchorStart, Static: value}
}

// IsConstant reports whether the automation has no keyframes
func (a Automation) IsConstant() bool {
	return len(a.Curves) == 0
}

// Clone returns a deep copy
func (a Automation) Clone() Automation {
	c := a
	if a.Curves != nil {
		c.Curves = make([]Keyframe, len(a.Curves))
		copy(c.Curves, a.Curves)
	}
	if a.Bounds != nil {
		b := *a.Bounds
		c.Bounds = &b
	}
	return c
}

// At converts a normalized curve time to the clip-local clock
func (a Automation) At(n float64) float64 {
	return a.Offset + n*a.Duration
}

// Validate checks ordering, range and bounds of the curve
func (a Automation) Validate() error {
	if a.Duration < 0 {
		return fmt.Errorf("%w: negative duration %v", ErrInvalidCurve, a.Duration)
	}
	for i, k := range a.Curves {
		if k.Time < 0 || k.Time > 1 {
			return fmt.Errorf("%w: keyframe %d time %v outside [0,1]", ErrInvalidCurve, i, k.Time)
		}
		if i > 0 && k.Time <= a.Curves[i-1].Time {
			return fmt.Errorf("%w: keyframe %d not strictly after keyframe %d", ErrInvalidCurve, i, i-1)
		}
		if a.Bounds != nil && (k.Value < a.Bounds.Min || k.Value > a.Bounds.Max) {
			return fmt.Errorf("%w: keyframe %d value %v outside [%v,%v]", ErrInvalidCurve, i, k.Value, a.Bounds.Min, a.Bounds.Max)
		}
	}
	if a.Bounds != nil && (a.Static < a.Bounds.Min || a.Static > a.Bounds.Max) {
		return fmt.Errorf("%w: static value %v outside [%v,%v]", ErrInvalidCurve, a.Static, a.Bounds.Min, a.Bounds.Max)
	}
	return nil
}

// Normalize sorts the curve and drops later duplicates of a keyframe time
func (a *Automation) Normalize() {
	if len(a.Curves) < 2 {
		return
	}
	sort.SliceStable(a.Curves, func(i, j int) bool {
		return a.Curves[i].Time < a.Curves[j].Time
	})
	out := a.Curves[:1]
	for _, k := range a.Curves[1:] {
		if k.Time == out[len(out)-1].Time {
			continue
		}
		out = append(out, k)
	}
	a.Curves = out
}
