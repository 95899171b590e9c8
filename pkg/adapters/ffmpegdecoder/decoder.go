package ffmpegdecoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/user/framesift/pkg/adapters/mp4demux"
	"github.com/user/framesift/pkg/ports"
)

// decoder maps the n-th picture ffmpeg writes after a seek to the n-th
// sample in presentation order from the seek keyframe.
type decoder struct {
	src     *Source
	samples *mp4demux.SampleReader

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	pos    int
	// finished is set once the stream is drained and cleared by a seek.
	finished bool
}

func (d *decoder) Info() ports.StreamInfo { return d.src.Info() }

func (d *decoder) SeekToKeyframe(pts int64) error {
	d.stop()
	k := d.src.file.KeyframeAtOrBefore(pts)
	info := d.src.Info()
	// Aim a quarter frame past the keyframe so float rounding cannot land on
	// the previous one.
	start := float64(d.src.order[k].PTS)*info.TimeBase.Float64() + 0.25/info.FrameRate.Float64()
	if err := d.start(start); err != nil {
		return err
	}
	d.pos = k
	d.finished = false
	return nil
}

func (d *decoder) DecodeNext() (ports.RawFrame, error) {
	if d.finished {
		return ports.RawFrame{}, io.EOF
	}
	if d.cmd == nil {
		if err := d.start(-1); err != nil {
			return ports.RawFrame{}, err
		}
		d.pos = 0
	}
	if d.pos >= len(d.src.order) {
		d.stop()
		d.finished = true
		return ports.RawFrame{}, io.EOF
	}

	info := d.src.Info()
	total, luma, chroma, chromaW := frameSize(info.Width, info.Height)
	buf := make([]byte, total)
	if _, err := io.ReadFull(d.stdout, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if werr := d.wait(); werr != nil {
				return ports.RawFrame{}, werr
			}
			d.finished = true
			return ports.RawFrame{}, io.EOF
		}
		return ports.RawFrame{}, fmt.Errorf("read frame: %w", err)
	}

	s := d.src.order[d.pos]
	d.pos++
	pictureType := mp4demux.ClassifySample(d.src.file.Codec(), nil, s.Keyframe)
	if d.samples != nil {
		if data, err := d.samples.Read(s); err == nil {
			pictureType = mp4demux.ClassifySample(d.src.file.Codec(), data, s.Keyframe)
		}
	}

	return ports.RawFrame{
		Planes: [][]byte{
			buf[:luma],
			buf[luma : luma+chroma],
			buf[luma+chroma:],
		},
		Strides:     []int{info.Width, chromaW, chromaW},
		Width:       info.Width,
		Height:      info.Height,
		Format:      ports.PixelYUV420P,
		PTS:         s.PTS,
		Keyframe:    s.Keyframe,
		PictureType: pictureType,
	}, nil
}

func (d *decoder) Close() error {
	d.stop()
	if d.samples != nil {
		return d.samples.Close()
	}
	return nil
}

func (d *decoder) start(at float64) error {
	d.stderr.Reset()
	cmd := exec.Command(d.src.ffmpeg, decodeArgs(d.src.path, at)...)
	cmd.Stderr = &d.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	d.src.logger.Debug("Started ffmpeg at %.3fs (pid %d)", at, cmd.Process.Pid)
	d.cmd = cmd
	d.stdout = stdout
	return nil
}

func (d *decoder) wait() error {
	if d.cmd == nil {
		return nil
	}
	err := d.cmd.Wait()
	d.cmd = nil
	if err != nil {
		return fmt.Errorf("ffmpeg decode failed: %w\nstderr: %s", err, d.stderr.String())
	}
	return nil
}

func (d *decoder) stop() {
	if d.cmd == nil {
		return
	}
	_ = d.cmd.Process.Kill()
	_ = d.cmd.Wait()
	d.cmd = nil
}

var _ ports.Decoder = (*decoder)(nil)
