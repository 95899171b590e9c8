package extract

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"time"

	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
)

const (
	// DefaultChunkSamples is the chunk length used by AudioChunks when none
	// is given.
	DefaultChunkSamples = 1024

	fallbackSampleRate = 48000
	fallbackChannels   = 2
)

// AudioChunk is a run of mono samples starting at Timestamp.
type AudioChunk struct {
	Samples    []float32
	Timestamp  time.Duration
	SampleRate int
}

// Tracks lists every container track, or nil when the source cannot
// describe them.
func (m *MediaFile) Tracks() []ports.TrackInfo {
	if tl, ok := m.source.(ports.TrackLister); ok {
		return tl.Tracks()
	}
	return nil
}

func (m *MediaFile) audioSource() (ports.AudioSource, error) {
	as, ok := m.source.(ports.AudioSource)
	if !ok {
		return nil, fmt.Errorf("audio decoding: %w", mediaerr.ErrUnsupported)
	}
	return as, nil
}

// resolveAudio validates the range and fills in the output layout from the
// first audio track, falling back to 48 kHz stereo when it is unknown.
func (m *MediaFile) resolveAudio(req ports.AudioRequest) (ports.AudioRequest, error) {
	if req.Start < 0 {
		return req, &mediaerr.TimestampError{Timestamp: req.Start, Duration: m.info.Duration}
	}
	if req.End != 0 && req.End <= req.Start {
		return req, &mediaerr.RangeError{Start: req.Start.String(), End: req.End.String()}
	}
	found := false
	for _, t := range m.Tracks() {
		if t.Kind != ports.TrackAudio {
			continue
		}
		found = true
		if req.SampleRate <= 0 {
			req.SampleRate = t.SampleRate
		}
		if req.Channels <= 0 {
			req.Channels = t.Channels
		}
		break
	}
	if !found && m.Tracks() != nil {
		return req, mediaerr.ErrNoAudioStream
	}
	if req.SampleRate <= 0 {
		req.SampleRate = fallbackSampleRate
	}
	if req.Channels <= 0 {
		req.Channels = fallbackChannels
	}
	return req, nil
}

// WriteWAV decodes the requested range of the first audio track and writes
// it to w as a 16-bit PCM WAV file. A zero End reads to the end of the
// track. The decoded audio is held in memory so the header carries exact
// sizes.
func (m *MediaFile) WriteWAV(ctx context.Context, w io.Writer, req ports.AudioRequest) (int64, error) {
	start := time.Now()
	defer m.opts.Metrics.ObserveCall("audio", start)

	as, err := m.audioSource()
	if err != nil {
		return 0, err
	}
	req, err = m.resolveAudio(req)
	if err != nil {
		return 0, err
	}
	req.Format = ports.SampleS16

	r, err := as.OpenAudio(ctx, req)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	var pcm bytes.Buffer
	if _, err := io.Copy(&pcm, r); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("%w: %w", mediaerr.ErrCancelled, ctx.Err())
		}
		return 0, fmt.Errorf("decode audio: %w", err)
	}

	hdr := wavHeader(pcm.Len(), req.SampleRate, req.Channels)
	n, err := w.Write(hdr)
	if err != nil {
		return int64(n), err
	}
	k, err := pcm.WriteTo(w)
	total := int64(n) + k
	if err != nil {
		return total, err
	}
	frames := pcm.Len() / (2 * req.Channels)
	m.logger.Info("Extracted %s of audio (%d Hz, %d ch)", time.Duration(float64(frames)/float64(req.SampleRate)*float64(time.Second)).Round(time.Millisecond), req.SampleRate, req.Channels)
	return total, nil
}

// wavHeader returns the canonical 44 byte RIFF header for 16-bit PCM.
func wavHeader(dataLen, rate, channels int) []byte {
	const bits = 16
	blockAlign := channels * bits / 8
	h := make([]byte, 44)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+dataLen))
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1)
	binary.LittleEndian.PutUint16(h[22:], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:], uint32(rate))
	binary.LittleEndian.PutUint32(h[28:], uint32(rate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:], bits)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(dataLen))
	return h
}

// AudioChunks decodes the requested range as mono float samples and yields
// them lazily in chunks of size samples; the last chunk may be shorter.
// Breaking out of the loop stops the decoder.
func (m *MediaFile) AudioChunks(ctx context.Context, req ports.AudioRequest, size int) iter.Seq2[AudioChunk, error] {
	return func(yield func(AudioChunk, error) bool) {
		if size <= 0 {
			size = DefaultChunkSamples
		}
		as, err := m.audioSource()
		if err != nil {
			yield(AudioChunk{}, err)
			return
		}
		req.Channels = 1
		req, err = m.resolveAudio(req)
		if err != nil {
			yield(AudioChunk{}, err)
			return
		}
		req.Format = ports.SampleF32

		r, err := as.OpenAudio(ctx, req)
		if err != nil {
			yield(AudioChunk{}, err)
			return
		}
		defer r.Close()

		buf := make([]byte, size*4)
		var emitted int64
		for {
			if err := ctx.Err(); err != nil {
				yield(AudioChunk{}, fmt.Errorf("%w: %w", mediaerr.ErrCancelled, err))
				return
			}
			n, err := io.ReadFull(r, buf)
			last := false
			switch {
			case errors.Is(err, io.EOF):
				return
			case errors.Is(err, io.ErrUnexpectedEOF):
				last = true
			case err != nil:
				yield(AudioChunk{}, fmt.Errorf("decode audio: %w", err))
				return
			}
			samples := make([]float32, n/4)
			for i := range samples {
				samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
			}
			chunk := AudioChunk{
				Samples:    samples,
				Timestamp:  req.Start + time.Duration(emitted*int64(time.Second)/int64(req.SampleRate)),
				SampleRate: req.SampleRate,
			}
			emitted += int64(len(samples))
			if len(samples) > 0 && !yield(chunk, nil) {
				return
			}
			if last {
				return
			}
		}
	}
}
