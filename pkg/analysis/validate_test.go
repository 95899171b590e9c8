package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/timebase"
)

func videoInfo() ports.StreamInfo {
	return ports.StreamInfo{
		Codec:      "h264",
		Width:      1920,
		Height:     1080,
		TimeBase:   timebase.Rational{Num: 1, Den: 15360},
		FrameRate:  timebase.Rational{Num: 30, Den: 1},
		FrameCount: 300,
		Duration:   10 * time.Second,
	}
}

var stereoAAC = ports.TrackInfo{ID: 2, Kind: ports.TrackAudio, Codec: "aac", Supported: true, SampleRate: 48000, Channels: 2}

func TestValidateCleanFile(t *testing.T) {
	rep := Validate(videoInfo(), []ports.TrackInfo{
		{ID: 1, Kind: ports.TrackVideo, Codec: "h264", Supported: true},
		stereoAAC,
	})
	assert.True(t, rep.IsValid())
	assert.Zero(t, rep.IssueCount())
	assert.Equal(t, []string{
		"Video: h264 1920x1080 @ 30.00 fps, ~300 frames",
		"Audio: aac 48000Hz 2ch",
	}, rep.Info)
	assert.Equal(t, "[INFO] Video: h264 1920x1080 @ 30.00 fps, ~300 frames\n[INFO] Audio: aac 48000Hz 2ch\nNo issues found.\n", rep.String())
}

func TestValidateEmptyFile(t *testing.T) {
	rep := Validate(ports.StreamInfo{}, nil)
	assert.False(t, rep.IsValid())
	assert.Equal(t, []string{"File contains neither video nor audio streams"}, rep.Errors)
	assert.Len(t, rep.Warnings, 1)
	assert.Equal(t, 2, rep.IssueCount())
}

func TestValidateAudioOnly(t *testing.T) {
	info := ports.StreamInfo{Duration: time.Second}
	rep := Validate(info, []ports.TrackInfo{stereoAAC})
	assert.True(t, rep.IsValid())
	assert.Contains(t, rep.Info, "No video stream found")
}

func TestValidateVideoProblems(t *testing.T) {
	info := videoInfo()
	info.Width = 0
	info.FrameRate = timebase.Rational{Num: 480, Den: 1}
	info.FrameCount = 0
	rep := Validate(info, nil)

	assert.Equal(t, []string{"Invalid video dimensions: 0x1080"}, rep.Errors)
	assert.Equal(t, []string{
		"Unusually high frame rate (480.0 fps); extraction may be slow",
		"Estimated frame count is zero despite non-zero duration",
	}, rep.Warnings)
	assert.Contains(t, rep.Info, "No audio stream found")

	info = videoInfo()
	info.FrameRate = timebase.Rational{}
	info.Duration = 0
	rep = Validate(info, nil)
	assert.Equal(t, []string{
		"Media duration is zero; frame and time based extraction may fail",
		"Video frame rate is zero or negative; frame counting will be unreliable",
	}, rep.Warnings)
}

func TestValidateTracks(t *testing.T) {
	broken := ports.TrackInfo{ID: 3, Kind: ports.TrackAudio, Codec: "opus", Supported: true}
	unknown := ports.TrackInfo{ID: 4, Kind: ports.TrackAudio, Codec: "unknown", SampleRate: 44100}
	subs := []ports.TrackInfo{
		{ID: 5, Kind: ports.TrackSubtitle, Codec: "unknown", Language: "eng"},
		{ID: 6, Kind: ports.TrackSubtitle, Codec: "unknown", Language: "und"},
	}
	rep := Validate(videoInfo(), append([]ports.TrackInfo{stereoAAC, broken, unknown}, subs...))

	assert.Equal(t, []string{
		"Audio track 3 sample rate is zero",
		"Audio track 3 channel count is zero",
	}, rep.Errors)
	assert.Equal(t, []string{"Track 4 (audio, unknown) is not supported and will be ignored"}, rep.Warnings)
	assert.Contains(t, rep.Info, "3 audio tracks available")
	assert.Contains(t, rep.Info, "Subtitle: unknown (eng)")
	assert.Contains(t, rep.Info, "Subtitle: unknown (unknown language)")
	assert.Contains(t, rep.Info, "2 subtitle tracks available")
	assert.Contains(t, rep.String(), "[ERROR] Audio track 3 sample rate is zero\n")
}
