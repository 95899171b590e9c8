package ports

import (
	"context"
	"io"
	"time"
)

// TrackKind classifies a container track by its handler.
type TrackKind string

const (
	TrackVideo    TrackKind = "video"
	TrackAudio    TrackKind = "audio"
	TrackSubtitle TrackKind = "subtitle"
	TrackOther    TrackKind = "other"
)

// TrackInfo describes one track of the container, including tracks that are
// not decoded. SampleRate and Channels are set for audio tracks only.
type TrackInfo struct {
	ID         uint32
	Kind       TrackKind
	Codec      string
	Language   string
	Supported  bool
	SampleRate int
	Channels   int
}

// TrackLister is implemented by sources that can describe every track.
type TrackLister interface {
	Tracks() []TrackInfo
}

// SampleFormat is the encoding of decoded audio samples.
type SampleFormat int

const (
	// SampleS16 is interleaved signed 16-bit little-endian PCM.
	SampleS16 SampleFormat = iota
	// SampleF32 is interleaved 32-bit little-endian IEEE float.
	SampleF32
)

// BytesPerSample returns the size of one sample of one channel.
func (f SampleFormat) BytesPerSample() int {
	if f == SampleF32 {
		return 4
	}
	return 2
}

// AudioRequest selects decoded audio from the first audio track. A zero End
// reads to the end of the track. Zero SampleRate or Channels keep the source
// values.
type AudioRequest struct {
	Start      time.Duration
	End        time.Duration
	SampleRate int
	Channels   int
	Format     SampleFormat
}

// AudioSource is implemented by sources that can decode audio.
type AudioSource interface {
	// OpenAudio streams decoded samples for req. Closing the reader stops
	// decoding.
	OpenAudio(ctx context.Context, req AudioRequest) (io.ReadCloser, error)
}

// SceneCut is a candidate scene change reported by a detector.
type SceneCut struct {
	Timestamp time.Duration
	Score     float64
}

// SceneDetector is implemented by sources that can score scene changes of
// the primary video stream. Cuts scoring below threshold are omitted.
type SceneDetector interface {
	DetectScenes(ctx context.Context, threshold float64) ([]SceneCut, error)
}
