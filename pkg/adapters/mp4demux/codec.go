package mp4demux

import (
	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framesift/pkg/ports"
)

// Codec names the coding format of a track.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP9     Codec = "vp9"
	CodecAAC     Codec = "aac"
	CodecOpus    Codec = "opus"
	CodecAC3     Codec = "ac3"
	CodecUnknown Codec = "unknown"
)

// Track describes one track of the container. Supported is false for tracks
// whose sample entry is not recognized; such tracks are ignored.
type Track struct {
	ID        uint32
	Handler   string
	Codec     Codec
	Language  string
	Supported bool
	// SampleRate and Channels come from the audio sample entry. SampleRate
	// falls back to the media timescale, which audio tracks set to the rate.
	SampleRate int
	Channels   int
}

// Kind maps the handler type to a track kind.
func (t Track) Kind() ports.TrackKind {
	switch t.Handler {
	case "vide":
		return ports.TrackVideo
	case "soun":
		return ports.TrackAudio
	case "subt", "text", "sbtl", "clcp":
		return ports.TrackSubtitle
	}
	return ports.TrackOther
}

// Info converts t to the port representation.
func (t Track) Info() ports.TrackInfo {
	return ports.TrackInfo{
		ID:         t.ID,
		Kind:       t.Kind(),
		Codec:      string(t.Codec),
		Language:   t.Language,
		Supported:  t.Supported,
		SampleRate: t.SampleRate,
		Channels:   t.Channels,
	}
}

func detectCodec(trak *mp4.TrakBox) Codec {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264
		case "hvc1", "hev1":
			return CodecHEVC
		case "av01":
			return CodecAV1
		case "vp09":
			return CodecVP9
		case "mp4a":
			return CodecAAC
		case "Opus":
			return CodecOpus
		case "ac-3", "ec-3":
			return CodecAC3
		}
	}
	return CodecUnknown
}

func describeTrack(trak *mp4.TrakBox) Track {
	t := Track{Codec: detectCodec(trak)}
	if trak.Tkhd != nil {
		t.ID = trak.Tkhd.TrackID
	}
	if trak.Mdia != nil && trak.Mdia.Hdlr != nil {
		t.Handler = trak.Mdia.Hdlr.HandlerType
	}
	if trak.Mdia != nil && trak.Mdia.Mdhd != nil {
		t.Language = trak.Mdia.Mdhd.GetLanguage()
	}
	if t.Handler == "soun" {
		t.SampleRate, t.Channels = audioParams(trak)
	}
	switch t.Handler {
	case "vide":
		t.Supported = t.Codec == CodecH264 || t.Codec == CodecHEVC || t.Codec == CodecAV1 || t.Codec == CodecVP9
	case "soun":
		t.Supported = t.Codec == CodecAAC || t.Codec == CodecOpus || t.Codec == CodecAC3
	}
	return t
}

func audioParams(trak *mp4.TrakBox) (rate, channels int) {
	if trak.Mdia == nil {
		return 0, 0
	}
	if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil {
		for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
			if ase, ok := child.(*mp4.AudioSampleEntryBox); ok {
				rate, channels = int(ase.SampleRate), int(ase.ChannelCount)
				break
			}
		}
	}
	if rate == 0 && trak.Mdia.Mdhd != nil {
		rate = int(trak.Mdia.Mdhd.Timescale)
	}
	return rate, channels
}

// ClassifySample returns the picture type of a length-prefixed sample. Only
// H.264 slice headers are parsed; other codecs report I for keyframes and
// unknown otherwise.
func ClassifySample(codec Codec, data []byte, keyframe bool) ports.PictureType {
	fallback := ports.PictureUnknown
	if keyframe {
		fallback = ports.PictureI
	}
	if codec != CodecH264 || len(data) == 0 {
		return fallback
	}
	nalus, err := avc.GetNalusFromSample(data)
	if err != nil {
		return fallback
	}
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch avc.GetNaluType(nalu[0]) {
		case avc.NALU_IDR:
			return ports.PictureI
		case avc.NALU_NON_IDR:
			st, err := avc.GetSliceTypeFromNALU(nalu)
			if err != nil {
				return fallback
			}
			switch st {
			case avc.SLICE_I, avc.SLICE_SI:
				return ports.PictureI
			case avc.SLICE_P, avc.SLICE_SP:
				return ports.PictureP
			case avc.SLICE_B:
				return ports.PictureB
			default:
				return ports.PictureOther
			}
		}
	}
	return fallback
}
