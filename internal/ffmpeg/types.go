package ffmpeg

// MediaInfo contains metadata about a media file
type MediaInfo struct {
	Path string
	// Duration in seconds, zero when the container reports none (still images)
	Duration   float64
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	HasVideo   bool
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// Progress is one block of ffmpeg -progress output
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	// OutTime is the encoded position in seconds
	OutTime float64
	Speed   string
	// Percentage is OutTime over the expected duration, clamped to [0,1]
	Percentage float64
	Done       bool
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args []string
	// Duration is the expected output length used to compute Percentage
	Duration        float64
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
	DefaultFPS        = 30
	DefaultSampleRate = 44100
	DefaultBaseColor  = "black"
)

// Options configures the executor
type Options struct {
	BinaryPath string
	ProbePath  string
	Threads    int
	// TempDir is where Init creates the workspace; empty means the OS default
	TempDir    string
	VideoCodec string
	AudioCodec string
	CRF        int
	Preset     string
	// FPS, BaseColor and SampleRate shape the synthesized base canvas
	FPS        int
	BaseColor  string
	SampleRate int
}

func (o Options) withDefaults() Options {
	if o.BinaryPath == "" {
		o.BinaryPath = "ffmpeg"
	}
	if o.ProbePath == "" {
		o.ProbePath = "ffprobe"
	}
	if o.VideoCodec == "" {
		o.VideoCodec = DefaultVideoCodec
	}
	if o.AudioCodec == "" {
		o.AudioCodec = DefaultAudioCodec
	}
	if o.CRF == 0 {
		o.CRF = DefaultCRF
	}
	if o.Preset == "" {
		o.Preset = DefaultPreset
	}
	if o.FPS == 0 {
		o.FPS = DefaultFPS
	}
	if o.BaseColor == "" {
		o.BaseColor = DefaultBaseColor
	}
	if o.SampleRate == 0 {
		o.SampleRate = DefaultSampleRate
	}
	return o
}
