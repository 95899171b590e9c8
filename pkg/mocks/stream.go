// Package mocks provides test doubles for the ports interfaces.
package mocks

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/timebase"
)

// Stream is a synthetic ports.Source. Frames are generated on demand with
// deterministic pixel content, so two decoders over the same Stream produce
// identical bytes. Exported fields may be changed before the first Open.
type Stream struct {
	FrameCount int64
	GOP        int64
	Width      int
	Height     int
	Padding    int
	Format     ports.PixelFormat
	TimeBase   timebase.Rational
	FrameRate  timebase.Rational

	// Durations, when set, cycles packet PTS deltas in time-base ticks.
	Durations []int64
	// NoKeyframes clears the keyframe flag on every packet.
	NoKeyframes bool
	// PictureCycle assigns picture types to non-key frames in turn.
	PictureCycle []ports.PictureType

	// Missing frames are silently dropped by decoders, as a decoder does for
	// corrupt packets.
	Missing map[int64]bool
	// DecodeErrors injects an error when the given frame would be decoded.
	DecodeErrors map[int64]error
	SeekErr      error
	OpenErr      error

	// OnDecode, when set, is called after every decoded frame.
	OnDecode func(index int64)

	mu    sync.Mutex
	seeks []int64
	opens int
}

// NewStream returns a 30 fps stream with a keyframe every 30 frames, 1/90000
// time base and 16x8 RGB24 frames with 5 bytes of row padding.
func NewStream(frameCount int64) *Stream {
	return &Stream{
		FrameCount:   frameCount,
		GOP:          30,
		Width:        16,
		Height:       8,
		Padding:      5,
		Format:       ports.PixelRGB24,
		TimeBase:     timebase.Rational{Num: 1, Den: 90000},
		FrameRate:    timebase.Rational{Num: 30, Den: 1},
		PictureCycle: []ports.PictureType{ports.PictureB, ports.PictureB, ports.PictureP},
	}
}

// TicksPerFrame is the PTS distance between consecutive frames.
func (s *Stream) TicksPerFrame() int64 {
	return (s.TimeBase.Den * s.FrameRate.Den) / (s.TimeBase.Num * s.FrameRate.Num)
}

// PTS returns the presentation timestamp of frame index.
func (s *Stream) PTS(index int64) int64 {
	return index * s.TicksPerFrame()
}

// Info implements ports.Source.
func (s *Stream) Info() ports.StreamInfo {
	d, _ := timebase.TimestampToDuration(s.PTS(s.FrameCount), s.TimeBase)
	return ports.StreamInfo{
		Index:      0,
		Codec:      "synthetic",
		Width:      s.Width,
		Height:     s.Height,
		TimeBase:   s.TimeBase,
		FrameRate:  s.FrameRate,
		FrameCount: s.FrameCount,
		Duration:   d.Round(time.Microsecond),
	}
}

// OpenDecoder implements ports.DecoderFactory.
func (s *Stream) OpenDecoder() (ports.Decoder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.opens++
	return &streamDecoder{stream: s}, nil
}

// OpenPackets implements ports.Source.
func (s *Stream) OpenPackets() (ports.PacketReader, error) {
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	return &packetReader{stream: s}, nil
}

// Close implements ports.Source.
func (s *Stream) Close() error { return nil }

// Seeks returns the PTS of every seek issued so far, across all decoders.
func (s *Stream) Seeks() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.seeks...)
}

// Opens returns the number of decoders opened so far.
func (s *Stream) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *Stream) isKeyframe(index int64) bool {
	return !s.NoKeyframes && s.GOP > 0 && index%s.GOP == 0
}

func (s *Stream) pictureType(index int64) ports.PictureType {
	if s.isKeyframe(index) {
		return ports.PictureI
	}
	if len(s.PictureCycle) == 0 {
		return ports.PictureUnknown
	}
	pos := index
	if s.GOP > 0 {
		pos = index%s.GOP - 1
	}
	return s.PictureCycle[int(pos)%len(s.PictureCycle)]
}

// Pixel is the value of the visible sample at (x, y) of plane in frame index.
func Pixel(index int64, plane, x, y int) byte {
	return byte(int(index)*7 + x*3 + y*5 + plane*11)
}

// PaddingByte fills row padding so stride mistakes show up in output.
const PaddingByte = 0xEE

func (s *Stream) planeGeometry() (widths, heights []int) {
	switch s.Format {
	case ports.PixelYUV420P:
		cw, ch := (s.Width+1)/2, (s.Height+1)/2
		return []int{s.Width, cw, cw}, []int{s.Height, ch, ch}
	default:
		return []int{s.Width * s.Format.BytesPerPixel()}, []int{s.Height}
	}
}

func (s *Stream) frame(index int64) ports.RawFrame {
	rowBytes, rows := s.planeGeometry()
	planes := make([][]byte, len(rowBytes))
	strides := make([]int, len(rowBytes))
	for p := range rowBytes {
		stride := rowBytes[p] + s.Padding
		buf := make([]byte, stride*rows[p])
		for y := 0; y < rows[p]; y++ {
			row := buf[y*stride : (y+1)*stride]
			for x := range row {
				if x < rowBytes[p] {
					row[x] = Pixel(index, p, x, y)
				} else {
					row[x] = PaddingByte
				}
			}
		}
		planes[p] = buf
		strides[p] = stride
	}
	return ports.RawFrame{
		Planes:      planes,
		Strides:     strides,
		Width:       s.Width,
		Height:      s.Height,
		Format:      s.Format,
		PTS:         s.PTS(index),
		Keyframe:    s.isKeyframe(index),
		PictureType: s.pictureType(index),
	}
}

type streamDecoder struct {
	stream *Stream
	pos    int64
	closed bool
}

func (d *streamDecoder) Info() ports.StreamInfo { return d.stream.Info() }

func (d *streamDecoder) SeekToKeyframe(pts int64) error {
	s := d.stream
	s.mu.Lock()
	s.seeks = append(s.seeks, pts)
	s.mu.Unlock()
	if s.SeekErr != nil {
		return s.SeekErr
	}
	if pts < 0 {
		return fmt.Errorf("negative seek target %d", pts)
	}
	target := pts / s.TicksPerFrame()
	if target >= s.FrameCount {
		target = s.FrameCount - 1
	}
	if s.GOP > 0 && !s.NoKeyframes {
		target -= target % s.GOP
	} else {
		target = 0
	}
	d.pos = target
	return nil
}

func (d *streamDecoder) DecodeNext() (ports.RawFrame, error) {
	if d.closed {
		return ports.RawFrame{}, fmt.Errorf("decoder closed")
	}
	s := d.stream
	for d.pos < s.FrameCount && s.Missing[d.pos] {
		d.pos++
	}
	if d.pos >= s.FrameCount {
		return ports.RawFrame{}, io.EOF
	}
	index := d.pos
	if err, ok := s.DecodeErrors[index]; ok {
		return ports.RawFrame{}, err
	}
	d.pos++
	if s.OnDecode != nil {
		s.OnDecode(index)
	}
	return s.frame(index), nil
}

func (d *streamDecoder) Close() error {
	d.closed = true
	return nil
}

type packetReader struct {
	stream *Stream
	pos    int64
	pts    int64
}

func (r *packetReader) Info() ports.StreamInfo { return r.stream.Info() }

func (r *packetReader) ReadPacket() (ports.RawPacket, error) {
	s := r.stream
	if r.pos >= s.FrameCount {
		return ports.RawPacket{}, io.EOF
	}
	index := r.pos
	pts := s.PTS(index)
	if len(s.Durations) > 0 {
		pts = r.pts
		r.pts += s.Durations[int(index)%len(s.Durations)]
	}
	r.pos++
	size := 100
	if s.isKeyframe(index) {
		size = 1000
	}
	return ports.RawPacket{
		StreamIndex: 0,
		PTS:         pts,
		DTS:         pts,
		HasDTS:      true,
		Size:        size,
		Keyframe:    s.isKeyframe(index),
		PictureType: s.pictureType(index),
	}, nil
}

func (r *packetReader) Close() error { return nil }

var (
	_ ports.Source  = (*Stream)(nil)
	_ ports.Decoder = (*streamDecoder)(nil)
)
