package compiler

import (
	"fmt"
	"math"

	"github.com/keagan/splicer/internal/filtergraph"
	"github.com/keagan/splicer/internal/timeline"
)

func clipAudioLabel(clip int) string { return fmt.Sprintf("%da", clip) }

// audio emits one trim/delay/volume/pan chain per sounding clip and mixes
// them with the base canvas's silent track into aout
func (c *compilation) audio(clips []*timeline.Clip, src map[int]string) {
	mix := []string{"0:a"}

	for i, clip := range clips {
		if !clip.Media.HasAudio() || clip.Sound == nil {
			continue
		}
		idx := i + 1
		chain := filtergraph.From(src[idx])

		start, stop := clip.Visible()
		chain.Apply(filtergraph.NewFilter("atrim").
			SetNum("start", start).
			SetNum("end", stop))
		chain.Apply(filtergraph.NewFilter("asetpts").Arg("PTS-STARTPTS"))

		delay := filtergraph.Int(int(math.Round(math.Max(0, clip.Offset) * 1000)))
		chain.Apply(filtergraph.NewFilter("adelay").Arg(delay + "|" + delay))

		for _, f := range volumeFilters(clip) {
			chain.Apply(f)
		}

		left, right := clip.Sound.Gains()
		chain.Apply(filtergraph.NewFilter("pan").
			Arg(fmt.Sprintf("stereo|c0=%s*c0|c1=%s*c1", filtergraph.Num(left), filtergraph.Num(right))))

		c.graph.Add(chain.To(clipAudioLabel(idx)))
		mix = append(mix, clipAudioLabel(idx))
	}

	c.graph.Add(filtergraph.From(mix...).
		Apply(filtergraph.NewFilter("amix").
			Set("inputs", filtergraph.Int(len(mix))).
			Set("duration", "first")).
		To(AudioOut))
}

// volumeFilters returns a single constant volume filter, or one gated lerp
// per curve segment. Volume is a single track so no equalization is needed.
func volumeFilters(clip *timeline.Clip) []*filtergraph.Filter {
	vol := clip.Sound.Volume
	if vol.IsConstant() {
		return []*filtergraph.Filter{
			filtergraph.NewFilter("volume").SetNum("volume", vol.Static),
		}
	}

	bounds := boundaries(vol.Curves, vol.At, clip.Offset)
	ws := windows(bounds, clip.Offset, clip.End())

	out := make([]*filtergraph.Filter, 0, len(ws))
	for k, w := range ws {
		out = append(out, filtergraph.NewFilter("volume").
			Set("volume", valueIn(vol.Curves, bounds, w)).
			Set("eval", "frame").
			Set("enable", w.gate(k == 0)))
	}
	return out
}
