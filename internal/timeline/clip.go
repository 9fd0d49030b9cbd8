package timeline

import (
	"fmt"
	"math"

	"github.com/keagan/splicer/internal/automation"
)

// Matrix is the 2D affine transform of a visual clip. Scale and translate
// terms are automated, skews are constant.
type Matrix struct {
	ScaleX     automation.Automation `yaml:"scale_x"`
	SkewX      float64               `yaml:"skew_x"`
	SkewY      float64               `yaml:"skew_y"`
	ScaleY     automation.Automation `yaml:"scale_y"`
	TranslateX automation.Automation `yaml:"translate_x"`
	TranslateY automation.Automation `yaml:"translate_y"`
}

// IdentityMatrix is an unscaled, centered transform
func IdentityMatrix() Matrix {
	return Matrix{
		ScaleX:     automation.Constant(automation.KindScale, 1),
		ScaleY:     automation.Constant(automation.KindScale, 1),
		TranslateX: automation.Constant(automation.KindPosition, 0),
		TranslateY: automation.Constant(automation.KindPosition, 0),
	}
}

// ScaleIsConstant reports whether neither scale term has keyframes
func (m Matrix) ScaleIsConstant() bool {
	return m.ScaleX.IsConstant() && m.ScaleY.IsConstant()
}

// IsConstant reports whether no scale or translate term has keyframes
func (m Matrix) IsConstant() bool {
	return m.ScaleIsConstant() && m.TranslateX.IsConstant() && m.TranslateY.IsConstant()
}

// EQ holds the color adjustment automations of a video clip
type EQ struct {
	Contrast   automation.Automation `yaml:"contrast"`
	Brightness automation.Automation `yaml:"brightness"`
	Saturation automation.Automation `yaml:"saturation"`
	Gamma      automation.Automation `yaml:"gamma"`
}

// IdentityEQ leaves colors untouched
func IdentityEQ() EQ {
	return EQ{
		Contrast:   automation.Constant(automation.KindContrast, 1),
		Brightness: automation.Constant(automation.KindBrightness, 0),
		Saturation: automation.Constant(automation.KindSaturation, 1),
		Gamma:      automation.Constant(automation.KindGamma, 1),
	}
}

// Tracks returns the four automations in eq filter order
func (e EQ) Tracks() []automation.Automation {
	return []automation.Automation{e.Contrast, e.Brightness, e.Saturation, e.Gamma}
}

// IsConstant reports whether no EQ term has keyframes
func (e EQ) IsConstant() bool {
	for _, a := range e.Tracks() {
		if !a.IsConstant() {
			return false
		}
	}
	return true
}

// IsIdentity reports whether the EQ is constant at contrast=1, brightness=0,
// saturation=1, gamma=1
func (e EQ) IsIdentity() bool {
	return e.IsConstant() &&
		e.Contrast.Static == 1 &&
		e.Brightness.Static == 0 &&
		e.Saturation.Static == 1 &&
		e.Gamma.Static == 1
}

// Visual is the payload of video and image clips
type Visual struct {
	Matrix Matrix `yaml:"matrix"`
	// Origin is the scale anchor in [0,1]x[0,1]; {0.5, 0.5} is the center
	Origin [2]float64 `yaml:"origin"`
	// EQ is only used by video clips
	EQ *EQ `yaml:"eq,omitempty"`
}

// Sound is the payload of video and audio clips
type Sound struct {
	Volume automation.Automation `yaml:"volume"`
	// Pan in [-1,1], negative is left
	Pan float64 `yaml:"pan"`
}

// Gains returns the left/right gain pair for the clip's pan as a linear
// cross-fade (not constant-power)
func (s Sound) Gains() (left, right float64) {
	left, right = 1, 1
	if s.Pan > 0 {
		left = 1 - s.Pan
	}
	if s.Pan < 0 {
		right = 1 + s.Pan
	}
	return left, right
}

// Clip is a placed, trimmed instance of a Media on the timeline. Kind
// selects which payloads are populated: video has Visual and Sound, image
// has Visual, audio has Sound.
type Clip struct {
	ID        string
	Kind      MediaKind
	Media     *Media
	Offset    float64
	TrimStart float64
	TrimEnd   float64
	Z         int
	Visual    *Visual
	Sound     *Sound
}

// NewVideoClip creates a video clip with an identity transform, unity volume and no color change
func NewVideoClip(id string, media *Media, offset float64) *Clip {
	eq := IdentityEQ()
	return &Clip{
		ID:     id,
		Kind:   KindVideo,
		Media:  media,
		Offset: offset,
		Visual: &Visual{Matrix: IdentityMatrix(), Origin: [2]float64{0.5, 0.5}, EQ: &eq},
		Sound:  &Sound{Volume: automation.Constant(automation.KindVolume, 1)},
	}
}

// NewImageClip creates an image clip with an identity transform
func NewImageClip(id string, media *Media, offset float64) *Clip {
	return &Clip{
		ID:     id,
		Kind:   KindImage,
		Media:  media,
		Offset: offset,
		Visual: &Visual{Matrix: IdentityMatrix(), Origin: [2]float64{0.5, 0.5}},
	}
}

// NewAudioClip creates an audio clip with unity volume, centered
func NewAudioClip(id string, media *Media, offset float64) *Clip {
	return &Clip{
		ID:     id,
		Kind:   KindAudio,
		Media:  media,
		Offset: offset,
		Sound:  &Sound{Volume: automation.Constant(automation.KindVolume, 1)},
	}
}

// Validate checks that the payloads match the clip kind
func (c *Clip) Validate() error {
	if c.Media == nil {
		return fmt.Errorf("clip %s: media is required", c.ID)
	}
	if c.Media.Kind != c.Kind {
		return fmt.Errorf("clip %s: kind %s does not match media kind %s", c.ID, c.Kind, c.Media.Kind)
	}

	switch c.Kind {
	case KindVideo:
		if c.Visual == nil || c.Sound == nil {
			return fmt.Errorf("clip %s: video clips need visual and sound payloads", c.ID)
		}
		if c.Media.Dimensions == nil {
			return fmt.Errorf("clip %s: video media has no dimensions", c.ID)
		}
	case KindImage:
		if c.Visual == nil {
			return fmt.Errorf("clip %s: image clips need a visual payload", c.ID)
		}
		if c.Media.Dimensions == nil {
			return fmt.Errorf("clip %s: image media has no dimensions", c.ID)
		}
	case KindAudio:
		if c.Sound == nil {
			return fmt.Errorf("clip %s: audio clips need a sound payload", c.ID)
		}
	default:
		return fmt.Errorf("clip %s: unknown kind %q", c.ID, c.Kind)
	}
	return nil
}

// Start is the media time of the first frame played, clamped to zero
func (c *Clip) Start() float64 {
	return math.Max(0, c.TrimStart)
}

// Stop is the media time the clip stops playing at
func (c *Clip) Stop() float64 {
	return c.Start() + c.Duration()
}

// Duration is the effective played length; never negative
func (c *Clip) Duration() float64 {
	if c.Media == nil {
		return 0
	}
	d := c.Media.Duration - c.Start() - math.Max(0, c.TrimEnd)
	return math.Max(0, d)
}

// Lead is how far the clip starts before timeline zero. That much media is
// skipped so the remaining frames keep their place relative to Offset.
func (c *Clip) Lead() float64 {
	return math.Min(math.Max(0, -c.Offset), c.Duration())
}

// Visible is the media range that actually plays on the timeline
func (c *Clip) Visible() (start, stop float64) {
	return c.Start() + c.Lead(), c.Stop()
}

// End is the absolute timeline position the clip stops at
func (c *Clip) End() float64 {
	return c.Offset + c.Duration()
}

// Automations returns pointers to every automation the clip carries
func (c *Clip) Automations() []*automation.Automation {
	var out []*automation.Automation
	if c.Visual != nil {
		m := &c.Visual.Matrix
		out = append(out, &m.ScaleX, &m.ScaleY, &m.TranslateX, &m.TranslateY)
		if c.Visual.EQ != nil {
			e := c.Visual.EQ
			out = append(out, &e.Contrast, &e.Brightness, &e.Saturation, &e.Gamma)
		}
	}
	if c.Sound != nil {
		out = append(out, &c.Sound.Volume)
	}
	return out
}
