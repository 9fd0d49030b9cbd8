package automation

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrMalformedAutomation is returned when Equalize gets mismatched names and tracks
var ErrMalformedAutomation = errors.New("malformed automation")

// Span is the clip-local window shared by equalized tracks
type Span struct {
	Offset   float64
	Duration float64
}

// At converts a normalized time to the clip-local clock
func (s Span) At(n float64) float64 {
	return s.Offset + n*s.Duration
}

// Equalized holds tracks that share one keyframe time-set
type Equalized struct {
	Tracks map[string]Automation
	// Times are the interior keyframe times (excluding 0 and 1), ascending
	Times []float64
	Span  Span
}

// Equalize inserts interpolated keyframes so every track shares an identical,
// sorted set of keyframe times. Constant tracks are expanded to a flat curve,
// every track gets keyframes at 0 and 1, and tracks with differing
// offset/duration are rebased onto their common span. Inputs are not mutated.
func Equalize(names []string, automations []Automation) (*Equalized, error) {
	if len(names) != len(automations) {
		return nil, fmt.Errorf("%w: %d names for %d tracks", ErrMalformedAutomation, len(names), len(automations))
	}

	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: duplicate track name %q", ErrMalformedAutomation, n)
		}
		seen[n] = struct{}{}
	}

	span := commonSpan(automations)
	out := &Equalized{
		Tracks: make(map[string]Automation, len(names)),
		Span:   span,
	}

	tracks := make([]Automation, len(automations))
	for i, a := range automations {
		c := a.Clone()
		c.Normalize()
		if len(c.Curves) == 0 {
			c.Curves = []Keyframe{{Time: 0, Value: c.Static}, {Time: 1, Value: c.Static}}
		}
		rebase(&c, span)
		completeEndpoints(&c)
		tracks[i] = c
	}

	out.Times = interiorTimes(tracks)

	for i := range tracks {
		for _, t := range out.Times {
			insertAt(&tracks[i], t)
		}
		out.Tracks[names[i]] = tracks[i]
	}

	return out, nil
}

func commonSpan(automations []Automation) Span {
	if len(automations) == 0 {
		return Span{}
	}
	start, end := math.Inf(1), math.Inf(-1)
	for _, a := range automations {
		start = math.Min(start, a.Offset)
		end = math.Max(end, a.Offset+a.Duration)
	}
	return Span{Offset: start, Duration: math.Max(0, end-start)}
}

// rebase re-expresses a track's normalized times against span. Tracks already
// on the span are left untouched so equalizing twice is a no-op.
func rebase(a *Automation, span Span) {
	if a.Offset == span.Offset && a.Duration == span.Duration {
		return
	}
	for i, k := range a.Curves {
		local := a.At(k.Time)
		if span.Duration > 0 {
			a.Curves[i].Time = (local - span.Offset) / span.Duration
		} else {
			a.Curves[i].Time = 0
		}
	}
	a.Offset, a.Duration = span.Offset, span.Duration
	a.Normalize()
}

func completeEndpoints(a *Automation) {
	first, last := a.Curves[0], a.Curves[len(a.Curves)-1]
	if first.Time > 0 {
		a.Curves = append([]Keyframe{{Time: 0, Value: first.Value}}, a.Curves...)
	}
	if last.Time < 1 {
		a.Curves = append(a.Curves, Keyframe{Time: 1, Value: last.Value})
	}
}

func interiorTimes(tracks []Automation) []float64 {
	set := make(map[float64]struct{})
	for _, a := range tracks {
		for _, k := range a.Curves {
			if k.Time == 0 || k.Time == 1 {
				continue
			}
			set[k.Time] = struct{}{}
		}
	}
	times := make([]float64, 0, len(set))
	for t := range set {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

func insertAt(a *Automation, t float64) {
	idx := sort.Search(len(a.Curves), func(i int) bool { return a.Curves[i].Time >= t })
	if idx < len(a.Curves) && a.Curves[idx].Time == t {
		return
	}
	k := Keyframe{Time: t, Value: valueAt(a.Curves, t)}
	a.Curves = append(a.Curves, Keyframe{})
	copy(a.Curves[idx+1:], a.Curves[idx:])
	a.Curves[idx] = k
}
