package timeline

import (
	"strings"
	"testing"
)

func video(id string, duration float64) *Media {
	return &Media{ID: id, Kind: KindVideo, Title: id + ".mp4", Duration: duration, Dimensions: &Size{Width: 640, Height: 360}}
}

func TestClipDurationNeverNegative(t *testing.T) {
	cases := []struct {
		trimStart, trimEnd, media, want float64
	}{
		{0, 0, 10, 10},
		{2, 3, 10, 5},
		{6, 6, 10, 0},
		{10, 0, 10, 0},
		{-4, 0, 10, 10},
		{0, -1, 10, 10},
		{20, 20, 10, 0},
	}

	for _, tc := range cases {
		c := NewVideoClip("c", video("m", tc.media), 1)
		c.TrimStart, c.TrimEnd = tc.trimStart, tc.trimEnd
		got := c.Duration()
		if got < 0 {
			t.Fatalf("trims %v/%v: negative duration %v", tc.trimStart, tc.trimEnd, got)
		}
		if got != tc.want {
			t.Errorf("trims %v/%v: duration %v, want %v", tc.trimStart, tc.trimEnd, got, tc.want)
		}
		if c.End() != 1+tc.want {
			t.Errorf("end %v, want %v", c.End(), 1+tc.want)
		}
	}
}

func TestVisualStableZOrder(t *testing.T) {
	tl := New(Resolution{Width: 1920, Height: 1080})
	m := video("m", 5)

	a := NewVideoClip("a", m, 0)
	a.Z = 2
	b := NewVideoClip("b", m, 0)
	b.Z = 1
	c := NewVideoClip("c", m, 0)
	c.Z = 2
	d := NewVideoClip("d", m, 0)
	d.Z = 1
	tl.Add(a, b, c, d)

	var ids []string
	for _, clip := range tl.Visual() {
		ids = append(ids, clip.ID)
	}
	if got := strings.Join(ids, ","); got != "b,d,a,c" {
		t.Errorf("visual order = %s, want b,d,a,c", got)
	}
}

func TestTotalDurationSkipsEmptyClips(t *testing.T) {
	tl := New(Resolution{Width: 1280, Height: 720})

	empty := NewVideoClip("empty", video("m1", 10), 50)
	empty.TrimStart, empty.TrimEnd = 6, 6

	valid := NewAudioClip("valid", &Media{ID: "m2", Kind: KindAudio, Duration: 4}, 3)
	tl.Add(empty, valid)

	if got := tl.TotalDuration(); got != 7 {
		t.Errorf("total duration = %v, want 7", got)
	}
	if got := len(tl.Ordered()); got != 1 {
		t.Errorf("ordered clips = %d, want 1", got)
	}
}

func TestTotalDurationEmpty(t *testing.T) {
	if got := New(Resolution{}).TotalDuration(); got != 0 {
		t.Errorf("total duration = %v, want 0", got)
	}
}

func TestResolutionSafe(t *testing.T) {
	got := Resolution{Width: 1921, Height: 1079}.Safe()
	if got.Width != 1920 || got.Height != 1078 {
		t.Errorf("safe resolution = %+v", got)
	}
	even := Resolution{Width: 1280, Height: 720}
	if even.Safe() != even {
		t.Errorf("even resolution changed: %+v", even.Safe())
	}
}

func TestGains(t *testing.T) {
	cases := []struct {
		pan, left, right float64
	}{
		{-1, 1, 0},
		{1, 0, 1},
		{0, 1, 1},
		{0.25, 0.75, 1},
		{-0.5, 1, 0.5},
	}
	for _, tc := range cases {
		l, r := Sound{Pan: tc.pan}.Gains()
		if l != tc.left || r != tc.right {
			t.Errorf("pan %v: gains (%v,%v), want (%v,%v)", tc.pan, l, r, tc.left, tc.right)
		}
	}
}

func TestEQIdentity(t *testing.T) {
	eq := IdentityEQ()
	if !eq.IsIdentity() {
		t.Fatal("IdentityEQ is not identity")
	}
	eq.Gamma.Static = 1.2
	if eq.IsIdentity() {
		t.Error("modified gamma still reported as identity")
	}
	if !eq.IsConstant() {
		t.Error("static EQ reported as automated")
	}
}

func TestClipValidate(t *testing.T) {
	c := NewVideoClip("c", video("m", 3), 0)
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.Sound = nil
	if err := c.Validate(); err == nil {
		t.Error("video clip without sound payload should fail validation")
	}

	img := NewImageClip("i", &Media{ID: "p", Kind: KindImage, Title: "p.png", Duration: 7}, 0)
	if err := img.Validate(); err == nil {
		t.Error("image without dimensions should fail validation")
	}
}

func TestMediaFileName(t *testing.T) {
	cases := map[string]*Media{
		"a.mp3":  {ID: "a", Kind: KindAudio},
		"v.mp4":  {ID: "v", Kind: KindVideo},
		"i.jpeg": {ID: "i", Kind: KindImage, Title: "Holiday.JPEG"},
	}
	for want, m := range cases {
		if got := m.FileName(); got != want {
			t.Errorf("FileName() = %s, want %s", got, want)
		}
	}
}

func TestAudibleAndOrdered(t *testing.T) {
	tl := New(Resolution{Width: 1280, Height: 720})
	song := &Media{ID: "song", Kind: KindAudio, Duration: 30}
	logo := &Media{ID: "logo", Kind: KindImage, Duration: 5, Dimensions: &Size{Width: 100, Height: 100}}

	music := NewAudioClip("music", song, 0)
	overlay := NewImageClip("logo", logo, 0)
	overlay.Z = 3
	base := NewVideoClip("base", video("m", 10), 0)
	silent := NewAudioClip("silent", song, 0)
	silent.TrimStart = 40
	tl.Add(music, overlay, base, silent)

	var audible []string
	for _, c := range tl.Audible() {
		audible = append(audible, c.ID)
	}
	if got := strings.Join(audible, ","); got != "music,base" {
		t.Errorf("audible = %s, want music,base", got)
	}

	var ordered []string
	for _, c := range tl.Ordered() {
		ordered = append(ordered, c.ID)
	}
	if got := strings.Join(ordered, ","); got != "base,logo,music" {
		t.Errorf("ordered = %s, want base,logo,music", got)
	}
}

func TestAudibleSkipsSilentVideo(t *testing.T) {
	tl := New(Resolution{Width: 1280, Height: 720})
	quiet := video("q", 5)
	quiet.Silent = true
	tl.Add(NewVideoClip("quiet", quiet, 0), NewVideoClip("loud", video("l", 5), 0))

	got := tl.Audible()
	if len(got) != 1 || got[0].ID != "loud" {
		t.Errorf("audible = %v, want only loud", got)
	}
	if len(tl.Visual()) != 2 {
		t.Error("silent video is still visual")
	}
}

func TestVisibleSkipsTimeBeforeZero(t *testing.T) {
	cases := []struct {
		offset, trimStart, start, stop float64
	}{
		{3, 1, 1, 10},
		{-2, 1, 3, 10},
		{-20, 0, 10, 10},
	}

	for _, tc := range cases {
		c := NewVideoClip("c", video("m", 10), tc.offset)
		c.TrimStart = tc.trimStart
		start, stop := c.Visible()
		if start != tc.start || stop != tc.stop {
			t.Errorf("offset %v trim %v: visible [%v,%v], want [%v,%v]", tc.offset, tc.trimStart, start, stop, tc.start, tc.stop)
		}
	}
}
