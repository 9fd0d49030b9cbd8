package compiler

import (
	"fmt"
	"math"

	"github.com/keagan/splicer/internal/automation"
	"github.com/keagan/splicer/internal/filtergraph"
	"github.com/keagan/splicer/internal/timeline"
)

var (
	scaleTracks     = []string{"sx", "sy"}
	transformTracks = []string{"sx", "sy", "tx", "ty"}
	colorTracks     = []string{"contrast", "brightness", "saturation", "gamma"}
)

func clipVideoLabel(clip int) string     { return fmt.Sprintf("%dv", clip) }
func compositeLabel(clip int) string     { return fmt.Sprintf("%dcomp", clip) }
func baseLabel(layer int) string         { return fmt.Sprintf("vbase%d", layer) }
func copyLabel(clip, segment int) string { return fmt.Sprintf("%dv_%d", clip, segment) }
func stageLabel(clip, segment int) string {
	return fmt.Sprintf("%dc%d", clip, segment)
}

// video emits the per-clip trim/scale chains and then composites the visual
// clips over the base canvas in z-order as a linear chain ending at vout
func (c *compilation) video(clips []*timeline.Clip, src map[int]string) error {
	var layers []int
	for i, clip := range clips {
		if !clip.Kind.HasVideo() {
			continue
		}
		if err := c.resample(i+1, clip, src[i+1]); err != nil {
			return fmt.Errorf("clip %s: %w", clip.ID, err)
		}
		layers = append(layers, i+1)
	}

	if len(layers) == 0 {
		c.graph.Add(filtergraph.From("0:v").Apply(filtergraph.NewFilter("null")).To(VideoOut))
		return nil
	}

	for k, idx := range layers {
		in := "0:v"
		if k > 0 {
			in = baseLabel(k)
		}
		out := VideoOut
		if k < len(layers)-1 {
			out = baseLabel(k + 1)
		}

		clip := clips[idx-1]
		target := out
		if hasColorStage(clip) {
			target = compositeLabel(idx)
		}
		if err := c.composite(idx, clip, in, target); err != nil {
			return fmt.Errorf("clip %s: %w", clip.ID, err)
		}
		if target != out {
			if err := c.color(clip, target, out); err != nil {
				return fmt.Errorf("clip %s: %w", clip.ID, err)
			}
		}
	}
	return nil
}

// resample trims a video clip to the range that plays on the timeline,
// shifts it to its offset and scales it. Images only get the scale.
func (c *compilation) resample(idx int, clip *timeline.Clip, src string) error {
	chain := filtergraph.From(src)

	if clip.Kind == timeline.KindVideo {
		start, stop := clip.Visible()
		chain.Apply(filtergraph.NewFilter("trim").
			SetNum("start", start).
			SetNum("end", stop))
		chain.Apply(filtergraph.NewFilter("setpts").
			Arg(fmt.Sprintf("PTS-STARTPTS+%s/TB", filtergraph.Num(math.Max(0, clip.Offset)))))
	}

	scale, err := scaleFilter(clip)
	if err != nil {
		return err
	}
	c.graph.Add(chain.Apply(scale).To(clipVideoLabel(idx)))
	return nil
}

func scaleFilter(clip *timeline.Clip) (*filtergraph.Filter, error) {
	m := clip.Visual.Matrix
	dims := clip.Media.Dims()
	dw, dh := float64(dims.Width), float64(dims.Height)

	if m.ScaleIsConstant() {
		return filtergraph.NewFilter("scale").
			SetNum("w", dw*m.ScaleX.Static).
			SetNum("h", dh*m.ScaleY.Static), nil
	}

	eq, err := automation.Equalize(scaleTracks, []automation.Automation{m.ScaleX, m.ScaleY})
	if err != nil {
		return nil, err
	}
	sx, sy := eq.Tracks["sx"].Curves, eq.Tracks["sy"].Curves
	bounds := boundaries(sx, eq.Span.At, clip.Offset)

	// scale has no enable option, so segments are selected inside the expression
	return filtergraph.NewFilter("scale").
		Set("w", fmt.Sprintf("(%s)*%s", piecewise(sx, bounds), num(dw))).
		Set("h", fmt.Sprintf("(%s)*%s", piecewise(sy, bounds), num(dh))).
		Set("eval", "frame"), nil
}

// composite overlays the clip onto the running background. Constant
// transforms use a single overlay gated to the clip; automated ones split the
// clip into one copy per segment window.
func (c *compilation) composite(idx int, clip *timeline.Clip, in, out string) error {
	v := clip.Visual
	m := v.Matrix
	dims := clip.Media.Dims()
	dw, dh := float64(dims.Width), float64(dims.Height)
	clipWindow := window{lo: clip.Offset, hi: clip.End()}

	if m.IsConstant() {
		ox := originOffset(m.ScaleX.Static, dw, v.Origin[0])
		oy := originOffset(m.ScaleY.Static, dh, v.Origin[1])
		overlay := filtergraph.NewFilter("overlay").
			Set("x", "(W-w)/2+"+num(m.TranslateX.Static-ox)).
			Set("y", "(H-h)/2+"+num(m.TranslateY.Static-oy)).
			Set("enable", clipWindow.gate(true))
		c.graph.Add(filtergraph.From(in, clipVideoLabel(idx)).Apply(overlay).To(out))
		return nil
	}

	eq, err := automation.Equalize(transformTracks, []automation.Automation{m.ScaleX, m.ScaleY, m.TranslateX, m.TranslateY})
	if err != nil {
		return err
	}
	curves := make(map[string][]automation.Keyframe, len(transformTracks))
	for _, name := range transformTracks {
		curves[name] = eq.Tracks[name].Curves
	}
	bounds := boundaries(curves["sx"], eq.Span.At, clip.Offset)
	ws := windows(bounds, clipWindow.lo, clipWindow.hi)

	copies := []string{clipVideoLabel(idx)}
	if len(ws) > 1 {
		copies = make([]string, len(ws))
		for k := range ws {
			copies[k] = copyLabel(idx, k)
		}
		c.graph.Add(filtergraph.From(clipVideoLabel(idx)).
			Apply(filtergraph.NewFilter("split").Arg(filtergraph.Int(len(ws)))).
			To(copies...))
	}

	prev := in
	for k, w := range ws {
		sx := valueIn(curves["sx"], bounds, w)
		sy := valueIn(curves["sy"], bounds, w)
		tx := valueIn(curves["tx"], bounds, w)
		ty := valueIn(curves["ty"], bounds, w)

		ox := fmt.Sprintf("((%s-1)*%s/2)*(2*%s-1)", sx, num(dw), num(v.Origin[0]))
		oy := fmt.Sprintf("((%s-1)*%s/2)*(2*%s-1)", sy, num(dh), num(v.Origin[1]))

		next := out
		if k < len(ws)-1 {
			next = stageLabel(idx, k)
		}
		overlay := filtergraph.NewFilter("overlay").
			Set("x", fmt.Sprintf("(W-w)/2+(%s)-(%s)", tx, ox)).
			Set("y", fmt.Sprintf("(H-h)/2+(%s)-(%s)", ty, oy)).
			Set("eval", "frame").
			Set("enable", w.gate(k == 0))
		c.graph.Add(filtergraph.From(prev, copies[k]).Apply(overlay).To(next))
		prev = next
	}
	return nil
}

// originOffset moves the scale pivot from the center to the clip's origin
func originOffset(scale, dim, origin float64) float64 {
	return (scale - 1) * dim / 2 * (2*origin - 1)
}

func hasColorStage(clip *timeline.Clip) bool {
	return clip.Kind == timeline.KindVideo && clip.Visual.EQ != nil && !clip.Visual.EQ.IsIdentity()
}

// color applies the clip's eq adjustments after its composite stage
func (c *compilation) color(clip *timeline.Clip, in, out string) error {
	e := clip.Visual.EQ
	clipWindow := window{lo: clip.Offset, hi: clip.End()}
	chain := filtergraph.From(in)

	if e.IsConstant() {
		c.graph.Add(chain.Apply(filtergraph.NewFilter("eq").
			SetNum("contrast", e.Contrast.Static).
			SetNum("brightness", e.Brightness.Static).
			SetNum("saturation", e.Saturation.Static).
			SetNum("gamma", e.Gamma.Static).
			Set("enable", clipWindow.gate(true))).To(out))
		return nil
	}

	eq, err := automation.Equalize(colorTracks, e.Tracks())
	if err != nil {
		return err
	}
	bounds := boundaries(eq.Tracks["contrast"].Curves, eq.Span.At, clip.Offset)
	for k, w := range windows(bounds, clipWindow.lo, clipWindow.hi) {
		f := filtergraph.NewFilter("eq")
		for _, name := range colorTracks {
			f.Set(name, valueIn(eq.Tracks[name].Curves, bounds, w))
		}
		chain.Apply(f.Set("eval", "frame").Set("enable", w.gate(k == 0)))
	}
	c.graph.Add(chain.To(out))
	return nil
}
