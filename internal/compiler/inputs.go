package compiler

import (
	"fmt"

	"github.com/keagan/splicer/internal/filtergraph"
	"github.com/keagan/splicer/internal/timeline"
)

// Input is one deduplicated media file passed to the engine with -i
type Input struct {
	// Index is the ffmpeg input index; the base canvas is always 0
	Index int
	Media *timeline.Media
	// Clips are the 1-based clip indices reading this media
	Clips []int
}

// Name is the staged file name of the input
func (in Input) Name() string {
	return in.Media.FileName()
}

func videoSplitLabel(clip int) string { return fmt.Sprintf("v_split%d", clip) }
func audioSplitLabel(clip int) string { return fmt.Sprintf("a_split%d", clip) }

// planInputs assigns ffmpeg input indices in order of first use, one per
// unique media ID
func planInputs(clips []*timeline.Clip) []Input {
	var inputs []Input
	byID := make(map[string]int)

	for i, c := range clips {
		idx, ok := byID[c.Media.ID]
		if !ok {
			idx = len(inputs)
			byID[c.Media.ID] = idx
			inputs = append(inputs, Input{Index: idx + 1, Media: c.Media})
		}
		inputs[idx].Clips = append(inputs[idx].Clips, i+1)
	}
	return inputs
}

// sources fans each input out into one stream per referencing clip and
// returns the labels every clip reads its video and audio from
type sources struct {
	video map[int]string
	audio map[int]string
}

func (c *compilation) fanOut(inputs []Input) sources {
	src := sources{video: make(map[int]string), audio: make(map[int]string)}

	for _, in := range inputs {
		n := len(in.Clips)

		if in.Media.Kind.HasVideo() {
			stream := fmt.Sprintf("%d:v", in.Index)
			chain := filtergraph.From(stream)
			if c.opts.Prescale {
				// oversample so automated scaling stays sharp
				chain.Apply(filtergraph.NewFilter("scale").
					Set("w", filtergraph.Int(c.res.Width*2)).
					Set("h", "-2"))
			}
			switch {
			case n > 1:
				outs := make([]string, n)
				for k, clip := range in.Clips {
					outs[k] = videoSplitLabel(clip)
					src.video[clip] = outs[k]
				}
				c.graph.Add(chain.Apply(filtergraph.NewFilter("split").Arg(filtergraph.Int(n))).To(outs...))
			case c.opts.Prescale:
				clip := in.Clips[0]
				src.video[clip] = videoSplitLabel(clip)
				c.graph.Add(chain.To(src.video[clip]))
			default:
				src.video[in.Clips[0]] = stream
			}
		}

		if in.Media.HasAudio() {
			stream := fmt.Sprintf("%d:a", in.Index)
			if n == 1 {
				src.audio[in.Clips[0]] = stream
				continue
			}
			outs := make([]string, n)
			for k, clip := range in.Clips {
				outs[k] = audioSplitLabel(clip)
				src.audio[clip] = outs[k]
			}
			c.graph.Add(filtergraph.From(stream).
				Apply(filtergraph.NewFilter("asplit").Arg(filtergraph.Int(n))).
				To(outs...))
		}
	}
	return src
}
