package mp4demux

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
)

func lengthPrefixed(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		l := len(n)
		out = append(out, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
		out = append(out, n...)
	}
	return out
}

func TestClassifySample(t *testing.T) {
	sei := []byte{0x06, 0x05, 0x01, 0x80}
	tests := []struct {
		name     string
		codec    Codec
		data     []byte
		keyframe bool
		want     ports.PictureType
	}{
		{"idr", CodecH264, lengthPrefixed([]byte{0x65, 0x88, 0x80}), true, ports.PictureI},
		{"p slice", CodecH264, lengthPrefixed([]byte{0x41, 0xE0, 0x80}), false, ports.PictureP},
		{"b slice", CodecH264, lengthPrefixed([]byte{0x01, 0xA0, 0x80}), false, ports.PictureB},
		{"i slice", CodecH264, lengthPrefixed([]byte{0x61, 0xB0, 0x80}), false, ports.PictureI},
		{"sei before slice", CodecH264, lengthPrefixed(sei, []byte{0x41, 0xE0, 0x80}), false, ports.PictureP},
		{"av1 keyframe", CodecAV1, []byte{0x12, 0x00}, true, ports.PictureI},
		{"av1 delta", CodecAV1, []byte{0x12, 0x00}, false, ports.PictureUnknown},
		{"empty", CodecH264, nil, true, ports.PictureI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifySample(tt.codec, tt.data, tt.keyframe); got != tt.want {
				t.Errorf("ClassifySample() = %v, want %v", got, tt.want)
			}
		})
	}
}

// reorderedFile builds an I P B B pattern at 30 fps in a 1/15360 time base
// with a composition offset of two frames.
func reorderedFile() *File {
	const tick = 512
	f := &File{
		info: ports.StreamInfo{Index: 0},
	}
	// decode order: I0 P3 B1 B2 I4 P7 B5 B6
	display := []int64{0, 3, 1, 2, 4, 7, 5, 6}
	for i, d := range display {
		f.samples = append(f.samples, Sample{
			Number:   i + 1,
			DTS:      int64(i) * tick,
			PTS:      (d + 2) * tick,
			Duration: tick,
			Size:     100,
			Keyframe: d%4 == 0,
		})
	}
	if err := f.finish(15360); err != nil {
		panic(err)
	}
	return f
}

func TestFinishNormalizesTiming(t *testing.T) {
	f := reorderedFile()
	info := f.Info()

	if info.FrameCount != 8 {
		t.Errorf("FrameCount = %d, want 8", info.FrameCount)
	}
	if info.FrameRate.Num != 30 || info.FrameRate.Den != 1 {
		t.Errorf("FrameRate = %s, want 30/1", info.FrameRate)
	}
	// 4096/15360 s rounds to the nearest nanosecond.
	if info.Duration != 266666667*time.Nanosecond {
		t.Errorf("Duration = %v, want 266.666667ms", info.Duration)
	}

	order := f.PresentationOrder()
	for i, s := range order {
		if s.PTS != int64(i)*512 {
			t.Fatalf("presentation %d has PTS %d, want %d", i, s.PTS, i*512)
		}
	}
	if order[0].Number != 1 || order[1].Number != 3 || order[3].Number != 2 {
		t.Errorf("unexpected presentation order: %+v", order)
	}
}

func TestFinishRejectsOverflowingDuration(t *testing.T) {
	f := &File{}
	for i := 0; i < 3; i++ {
		f.samples = append(f.samples, Sample{Number: i + 1, PTS: int64(i), DTS: int64(i), Duration: math.MaxUint32})
	}
	err := f.finish(1)
	if !errors.Is(err, mediaerr.ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestKeyframeAtOrBefore(t *testing.T) {
	f := reorderedFile()
	tests := []struct {
		pts  int64
		want int
	}{
		{0, 0},
		{3 * 512, 0},
		{4 * 512, 4},
		{7*512 + 100, 4},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := f.KeyframeAtOrBefore(tt.pts); got != tt.want {
			t.Errorf("KeyframeAtOrBefore(%d) = %d, want %d", tt.pts, got, tt.want)
		}
	}
}

func TestPacketReaderDecodeOrder(t *testing.T) {
	f := reorderedFile()
	f.codec = CodecAV1
	r, err := f.OpenPackets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	var pts []int64
	keyframes := 0
	for {
		pkt, err := r.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pts = append(pts, pkt.PTS/512)
		if pkt.Keyframe {
			keyframes++
			if pkt.PictureType != ports.PictureI {
				t.Errorf("keyframe picture type = %v", pkt.PictureType)
			}
		}
	}
	want := []int64{0, 3, 1, 2, 4, 7, 5, 6}
	for i := range want {
		if pts[i] != want[i] {
			t.Fatalf("packet PTS order = %v, want %v", pts, want)
		}
	}
	if keyframes != 2 {
		t.Errorf("keyframes = %d, want 2", keyframes)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not an mp4 file at all"), nil); err == nil {
		t.Fatal("expected error")
	}
}

// auxiliaryTrackFile encodes a fragmented MP4 whose first track carries a
// sample entry the demuxer does not know, followed by a three frame video
// track at 30 fps.
func auxiliaryTrackFile(t *testing.T) []byte {
	t.Helper()
	initSeg := mp4.CreateEmptyInit()
	initSeg.AddEmptyTrack(48000, "audio", "und")
	initSeg.AddEmptyTrack(15360, "video", "und")
	aux, video := initSeg.Moov.Traks[0], initSeg.Moov.Traks[1]
	aux.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateAudioSampleEntryBox("fLaC", 2, 16, 48000, nil))
	video.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateVisualSampleEntryBox("avc1", 64, 48, nil))

	frag, err := mp4.CreateFragment(1, video.Tkhd.TrackID)
	if err != nil {
		t.Fatalf("create fragment: %v", err)
	}
	for i := 0; i < 3; i++ {
		flags := mp4.NonSyncSampleFlags
		if i == 0 {
			flags = mp4.SyncSampleFlags
		}
		data := []byte{0, 0, 0, 1, byte(i)}
		frag.AddFullSample(mp4.FullSample{
			Sample:     mp4.Sample{Flags: flags, Dur: 512, Size: uint32(len(data))},
			DecodeTime: uint64(i) * 512,
			Data:       data,
		})
	}
	seg := mp4.NewMediaSegment()
	seg.AddFragment(frag)

	var buf bytes.Buffer
	if err := initSeg.Encode(&buf); err != nil {
		t.Fatalf("encode init: %v", err)
	}
	if err := seg.Encode(&buf); err != nil {
		t.Fatalf("encode segment: %v", err)
	}
	return buf.Bytes()
}

func TestParseIgnoresUnsupportedTrack(t *testing.T) {
	f, err := Parse(auxiliaryTrackFile(t), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tracks := f.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("Tracks() = %+v, want 2 tracks", tracks)
	}
	if tracks[0].Supported || tracks[0].Handler != "soun" || tracks[0].Codec != CodecUnknown {
		t.Errorf("auxiliary track = %+v, want unsupported soun track", tracks[0])
	}
	if ti := tracks[0].Info(); ti.Kind != ports.TrackAudio || ti.SampleRate != 48000 || ti.Channels != 2 {
		t.Errorf("auxiliary Info() = %+v, want 48 kHz stereo audio", ti)
	}
	if !tracks[1].Supported || tracks[1].Codec != CodecH264 {
		t.Errorf("video track = %+v, want supported h264", tracks[1])
	}

	info := f.Info()
	if info.Index != 1 {
		t.Errorf("Index = %d, want 1", info.Index)
	}
	if info.FrameCount != 3 || info.Width != 64 || info.Height != 48 {
		t.Errorf("Info() = %+v", info)
	}
	if info.FrameRate.Num != 30 || info.FrameRate.Den != 1 {
		t.Errorf("FrameRate = %s, want 30/1", info.FrameRate)
	}
}
