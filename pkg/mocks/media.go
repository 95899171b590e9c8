package mocks

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	"github.com/user/framesift/pkg/ports"
)

// Media is a Stream that also lists tracks, decodes a synthetic audio track
// and reports fixed scene cuts.
type Media struct {
	*Stream

	TrackList     []ports.TrackInfo
	AudioDuration time.Duration
	Cuts          []ports.SceneCut
	SceneErr      error
	AudioErr      error

	mu       sync.Mutex
	requests []ports.AudioRequest
}

// NewMedia returns a Stream with one video track and a 48 kHz stereo AAC
// track as long as the video.
func NewMedia(frameCount int64) *Media {
	s := NewStream(frameCount)
	return &Media{
		Stream: s,
		TrackList: []ports.TrackInfo{
			{ID: 1, Kind: ports.TrackVideo, Codec: "synthetic", Supported: true},
			{ID: 2, Kind: ports.TrackAudio, Codec: "aac", Supported: true, SampleRate: 48000, Channels: 2},
		},
		AudioDuration: s.Info().Duration,
	}
}

// AudioSample is the value of sample n of every channel.
func AudioSample(n int64) float32 {
	return float32(n%200-100) / 128
}

// Tracks implements ports.TrackLister.
func (m *Media) Tracks() []ports.TrackInfo {
	return append([]ports.TrackInfo(nil), m.TrackList...)
}

// DetectScenes implements ports.SceneDetector.
func (m *Media) DetectScenes(ctx context.Context, threshold float64) ([]ports.SceneCut, error) {
	if m.SceneErr != nil {
		return nil, m.SceneErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []ports.SceneCut
	for _, c := range m.Cuts {
		if c.Score >= threshold {
			out = append(out, c)
		}
	}
	return out, nil
}

// AudioRequests returns every request passed to OpenAudio.
func (m *Media) AudioRequests() []ports.AudioRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.AudioRequest(nil), m.requests...)
}

// OpenAudio implements ports.AudioSource. Sample numbering starts at Start so
// a range decodes the same values as the full track.
func (m *Media) OpenAudio(ctx context.Context, req ports.AudioRequest) (io.ReadCloser, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.AudioErr != nil {
		return nil, m.AudioErr
	}

	rate, channels := 48000, 2
	for _, t := range m.TrackList {
		if t.Kind == ports.TrackAudio {
			rate, channels = t.SampleRate, t.Channels
			break
		}
	}
	if req.SampleRate > 0 {
		rate = req.SampleRate
	}
	if req.Channels > 0 {
		channels = req.Channels
	}
	end := m.AudioDuration
	if req.End > 0 && req.End < end {
		end = req.End
	}
	first := int64(req.Start.Seconds() * float64(rate))
	last := int64(end.Seconds() * float64(rate))

	var buf bytes.Buffer
	for n := first; n < last; n++ {
		v := AudioSample(n)
		for c := 0; c < channels; c++ {
			if req.Format == ports.SampleF32 {
				_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
			} else {
				_ = binary.Write(&buf, binary.LittleEndian, int16(v*math.MaxInt16))
			}
		}
	}
	return io.NopCloser(&buf), nil
}

var (
	_ ports.TrackLister   = (*Media)(nil)
	_ ports.AudioSource   = (*Media)(nil)
	_ ports.SceneDetector = (*Media)(nil)
)
