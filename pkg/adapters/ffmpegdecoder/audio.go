package ffmpegdecoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
)

// Tracks lists every track of the container.
func (s *Source) Tracks() []ports.TrackInfo {
	tracks := s.file.Tracks()
	out := make([]ports.TrackInfo, len(tracks))
	for i, t := range tracks {
		out[i] = t.Info()
	}
	return out
}

func (s *Source) hasAudio() bool {
	for _, t := range s.file.Tracks() {
		if t.Kind() == ports.TrackAudio {
			return true
		}
	}
	return false
}

// OpenAudio decodes the first audio track with ffmpeg into raw PCM.
func (s *Source) OpenAudio(ctx context.Context, req ports.AudioRequest) (io.ReadCloser, error) {
	if !s.hasAudio() {
		return nil, mediaerr.ErrNoAudioStream
	}
	r := &audioReader{}
	cmd := exec.CommandContext(ctx, s.ffmpeg, audioArgs(s.path, req)...)
	cmd.Stderr = &r.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	s.logger.Debug("Started ffmpeg audio decode at %.3fs (pid %d)", req.Start.Seconds(), cmd.Process.Pid)
	r.cmd, r.stdout = cmd, stdout
	return r, nil
}

// audioArgs builds the ffmpeg command line for raw PCM output on stdout.
func audioArgs(input string, req ports.AudioRequest) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if req.Start > 0 {
		args = append(args, "-ss", seconds(req.Start))
	}
	args = append(args, "-i", input)
	if req.End > 0 {
		args = append(args, "-t", seconds(req.End-req.Start))
	}
	args = append(args, "-map", "0:a:0", "-vn", "-sn", "-dn")
	if req.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(req.Channels))
	}
	if req.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(req.SampleRate))
	}
	format, codec := "s16le", "pcm_s16le"
	if req.Format == ports.SampleF32 {
		format, codec = "f32le", "pcm_f32le"
	}
	return append(args, "-c:a", codec, "-f", format, "pipe:1")
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}

// audioReader reads PCM from a running ffmpeg. A non-zero exit surfaces on
// the read that reaches the end of the pipe.
type audioReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	done   bool
}

func (r *audioReader) Read(p []byte) (int, error) {
	n, err := r.stdout.Read(p)
	if errors.Is(err, io.EOF) && !r.done {
		r.done = true
		if werr := r.cmd.Wait(); werr != nil {
			return n, fmt.Errorf("ffmpeg audio decode failed: %w\nstderr: %s", werr, r.stderr.String())
		}
	}
	return n, err
}

func (r *audioReader) Close() error {
	if r.done {
		return nil
	}
	r.done = true
	_ = r.cmd.Process.Kill()
	_ = r.cmd.Wait()
	return nil
}

var (
	_ ports.TrackLister = (*Source)(nil)
	_ ports.AudioSource = (*Source)(nil)
)
