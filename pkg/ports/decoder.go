package ports

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/framesift/pkg/timebase"
)

// PixelFormat identifies the plane layout of a raw frame.
type PixelFormat int

const (
	// PixelYUV420P is planar Y, Cb, Cr with 2x2 chroma subsampling.
	PixelYUV420P PixelFormat = iota
	// PixelRGB24 is packed 8-bit R, G, B.
	PixelRGB24
	// PixelRGBA is packed 8-bit R, G, B, A.
	PixelRGBA
	// PixelGray8 is a single 8-bit luma plane.
	PixelGray8
)

func (f PixelFormat) String() string {
	switch f {
	case PixelYUV420P:
		return "yuv420p"
	case PixelRGB24:
		return "rgb24"
	case PixelRGBA:
		return "rgba"
	case PixelGray8:
		return "gray"
	default:
		return "unknown"
	}
}

// ParsePixelFormat accepts the names printed by String plus rgb and gray8.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.ToLower(s) {
	case "rgb", "rgb24":
		return PixelRGB24, nil
	case "rgba":
		return PixelRGBA, nil
	case "gray", "gray8", "grey":
		return PixelGray8, nil
	case "yuv420p", "yuv":
		return PixelYUV420P, nil
	}
	return PixelRGB24, fmt.Errorf("unknown pixel format: %q", s)
}

// BytesPerPixel returns the packed pixel size, or 0 for planar formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelRGB24:
		return 3
	case PixelRGBA:
		return 4
	case PixelGray8:
		return 1
	default:
		return 0
	}
}

// PictureType is the coded picture type of a frame.
type PictureType int

const (
	PictureUnknown PictureType = iota
	PictureI
	PictureP
	PictureB
	PictureOther
)

func (p PictureType) String() string {
	switch p {
	case PictureI:
		return "I"
	case PictureP:
		return "P"
	case PictureB:
		return "B"
	case PictureOther:
		return "other"
	default:
		return "?"
	}
}

// RawFrame is a decoded picture as produced by a Decoder. Each row of a plane
// may carry padding beyond the visible width; Strides holds the byte length of
// one row including that padding.
type RawFrame struct {
	Planes      [][]byte
	Strides     []int
	Width       int
	Height      int
	Format      PixelFormat
	PTS         int64
	Keyframe    bool
	PictureType PictureType
}

// RawPacket is one compressed packet read from the container.
type RawPacket struct {
	StreamIndex int
	PTS         int64
	DTS         int64
	HasDTS      bool
	Size        int
	Keyframe    bool
	PictureType PictureType
}

// StreamInfo describes the primary video stream of an input.
type StreamInfo struct {
	Index      int
	Codec      string
	Width      int
	Height     int
	TimeBase   timebase.Rational
	FrameRate  timebase.Rational
	FrameCount int64
	Duration   time.Duration
}

// Decoder is an exclusively owned demux and decode handle for one stream.
// A Decoder is never shared between goroutines.
type Decoder interface {
	// Info returns the stream parameters.
	Info() StreamInfo

	// SeekToKeyframe positions the decoder at the nearest keyframe whose
	// timestamp is at or before pts. The next DecodeNext returns that keyframe.
	SeekToKeyframe(pts int64) error

	// DecodeNext returns the next frame in presentation order, or io.EOF.
	DecodeNext() (RawFrame, error)

	// Close releases decoder resources.
	Close() error
}

// PacketReader walks compressed packets without decoding them.
type PacketReader interface {
	// Info returns the stream parameters.
	Info() StreamInfo

	// ReadPacket returns the next packet in decode order, or io.EOF.
	ReadPacket() (RawPacket, error)

	// Close releases reader resources.
	Close() error
}

// DecoderFactory opens independent decoders for the same input.
type DecoderFactory interface {
	OpenDecoder() (Decoder, error)
}

// DecoderFactoryFunc adapts a function to DecoderFactory.
type DecoderFactoryFunc func() (Decoder, error)

// OpenDecoder calls f.
func (f DecoderFactoryFunc) OpenDecoder() (Decoder, error) {
	return f()
}

// Source is an opened media input that hands out decoders and packet readers.
type Source interface {
	DecoderFactory

	// Info returns the primary video stream parameters.
	Info() StreamInfo

	// OpenPackets opens a packet reader positioned at the first packet.
	OpenPackets() (PacketReader, error)

	// Close releases resources shared by the source.
	Close() error
}
