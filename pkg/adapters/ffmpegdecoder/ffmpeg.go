// Package ffmpegdecoder decodes MP4 video through an ffmpeg child process.
// Sample timing and keyframe positions come from mp4demux; ffmpeg only turns
// compressed samples into yuv420p pictures streamed over a pipe.
package ffmpegdecoder

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

var (
	// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
	ErrFFmpegNotFound = errors.New("ffmpegdecoder: ffmpeg not found")
	// ErrNoDimensions is returned for tracks without a visual sample entry.
	ErrNoDimensions = errors.New("ffmpegdecoder: video track has no dimensions")
)

// FindFFmpeg resolves the ffmpeg binary. A non-empty custom path must exist;
// otherwise PATH and common install locations are searched.
func FindFFmpeg(custom string) (string, error) {
	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, custom)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	if runtime.GOOS == "windows" {
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	} else {
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrFFmpegNotFound
}

// decodeArgs builds the ffmpeg command line. A negative start decodes from
// the beginning; otherwise the demuxer seeks to the keyframe at or before
// start seconds and output begins at that keyframe.
func decodeArgs(input string, start float64) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if start >= 0 {
		args = append(args, "-noaccurate_seek", "-ss", strconv.FormatFloat(start, 'f', 6, 64))
	}
	return append(args,
		"-i", input,
		"-map", "0:v:0",
		"-an", "-sn", "-dn",
		"-fps_mode", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"pipe:1",
	)
}

// frameSize returns the byte size of one yuv420p picture and its plane
// layout.
func frameSize(width, height int) (total, luma, chroma, chromaW int) {
	chromaW = (width + 1) / 2
	chromaH := (height + 1) / 2
	luma = width * height
	chroma = chromaW * chromaH
	return luma + 2*chroma, luma, chroma, chromaW
}
