package compiler

import (
	"fmt"
	"strings"

	"github.com/keagan/splicer/internal/automation"
	"github.com/keagan/splicer/internal/filtergraph"
)

// num renders a number for use inside an ffmpeg expression; negatives are
// parenthesized so they compose with surrounding operators
func num(v float64) string {
	s := filtergraph.Num(v)
	if strings.HasPrefix(s, "-") {
		return "(" + s + ")"
	}
	return s
}

// lerp builds an expression interpolating from v0 at t0 to v1 at t1 over the
// render time t
func lerp(t0, v0, t1, v1 float64) string {
	if t1 == t0 || v0 == v1 {
		return num(v0)
	}
	return fmt.Sprintf("%s+((%s-%s)*(t-%s)/(%s-%s))", num(v0), num(v1), num(v0), num(t0), num(t1), num(t0))
}

// window is an absolute time range during which one expression applies.
// seg is the curve segment index, -1 before the curve and len(bounds)-1 after it.
type window struct {
	lo, hi float64
	seg    int
}

// gate renders the enable expression. The first window is closed on both
// ends, later ones are open on the left so exactly one window matches any t.
func (w window) gate(first bool) string {
	if first {
		return fmt.Sprintf("between(t,%s,%s)", num(w.lo), num(w.hi))
	}
	return fmt.Sprintf("gt(t,%s)*lte(t,%s)", num(w.lo), num(w.hi))
}

// windows splits the clip window [start,end] at the curve boundaries. Parts
// of the clip before the first or after the last boundary get their own
// clamp windows; zero-width windows are dropped unless nothing else remains.
func windows(bounds []float64, start, end float64) []window {
	var all []window
	last := len(bounds) - 1
	all = append(all, window{lo: start, hi: bounds[0], seg: -1})
	for j := 0; j < last; j++ {
		all = append(all, window{lo: bounds[j], hi: bounds[j+1], seg: j})
	}
	all = append(all, window{lo: bounds[last], hi: end, seg: last})

	var out []window
	var degenerate []window
	for _, w := range all {
		lo, hi := max(w.lo, start), min(w.hi, end)
		switch {
		case hi > lo:
			out = append(out, window{lo: lo, hi: hi, seg: w.seg})
		case hi == lo && w.seg >= 0 && w.seg < last:
			degenerate = append(degenerate, window{lo: lo, hi: hi, seg: w.seg})
		}
	}
	if len(out) == 0 && len(degenerate) > 0 {
		return degenerate[:1]
	}
	return out
}

// boundaries converts normalized keyframe times to absolute timeline times
func boundaries(curves []automation.Keyframe, at func(float64) float64, clipOffset float64) []float64 {
	out := make([]float64, len(curves))
	for i, k := range curves {
		out[i] = clipOffset + at(k.Time)
	}
	return out
}

// valueIn returns the expression for a curve inside window w
func valueIn(curves []automation.Keyframe, bounds []float64, w window) string {
	switch {
	case w.seg < 0:
		return num(curves[0].Value)
	case w.seg >= len(curves)-1:
		return num(curves[len(curves)-1].Value)
	}
	k0, k1 := curves[w.seg], curves[w.seg+1]
	return lerp(bounds[w.seg], k0.Value, bounds[w.seg+1], k1.Value)
}

// piecewise builds a nested if() selecting the segment expression for the
// current t: constant before the first boundary, [b0,b1] for the first
// segment, (bj,bj+1] for the rest and constant after the last boundary.
// Used where a filter has no enable option.
func piecewise(curves []automation.Keyframe, bounds []float64) string {
	last := len(bounds) - 1
	var b strings.Builder
	fmt.Fprintf(&b, "if(lt(t,%s),%s,", num(bounds[0]), num(curves[0].Value))
	for j := 0; j < last; j++ {
		fmt.Fprintf(&b, "if(lte(t,%s),%s,", num(bounds[j+1]), lerp(bounds[j], curves[j].Value, bounds[j+1], curves[j+1].Value))
	}
	b.WriteString(num(curves[last].Value))
	b.WriteString(strings.Repeat(")", last+1))
	return b.String()
}
