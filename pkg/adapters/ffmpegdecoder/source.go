package ffmpegdecoder

import (
	"github.com/user/framesift/pkg/adapters/logger"
	"github.com/user/framesift/pkg/adapters/mp4demux"
	"github.com/user/framesift/pkg/ports"
)

// Options configures a Source.
type Options struct {
	FFmpegPath string
	Logger     ports.Logger
}

// Source is an MP4 file whose video track is decoded by ffmpeg. Each
// OpenDecoder call starts independent child processes.
type Source struct {
	path   string
	ffmpeg string
	file   *mp4demux.File
	order  []mp4demux.Sample
	logger ports.Logger
}

// Open parses path and resolves the ffmpeg binary.
func Open(path string, opts Options) (*Source, error) {
	log := logger.OrNoop(opts.Logger).WithComponent("ffmpeg")
	ffmpeg, err := FindFFmpeg(opts.FFmpegPath)
	if err != nil {
		return nil, err
	}
	file, err := mp4demux.Open(path, opts.Logger)
	if err != nil {
		return nil, err
	}
	info := file.Info()
	if info.Width <= 0 || info.Height <= 0 {
		return nil, ErrNoDimensions
	}
	log.Debug("Using ffmpeg at %s", ffmpeg)
	return &Source{
		path:   path,
		ffmpeg: ffmpeg,
		file:   file,
		order:  file.PresentationOrder(),
		logger: log,
	}, nil
}

// Info implements ports.Source.
func (s *Source) Info() ports.StreamInfo { return s.file.Info() }

// File exposes the parsed container.
func (s *Source) File() *mp4demux.File { return s.file }

// OpenPackets implements ports.Source.
func (s *Source) OpenPackets() (ports.PacketReader, error) {
	return s.file.OpenPackets()
}

// OpenDecoder implements ports.DecoderFactory.
func (s *Source) OpenDecoder() (ports.Decoder, error) {
	d := &decoder{src: s}
	if s.file.Codec() == mp4demux.CodecH264 {
		sr, err := s.file.NewSampleReader()
		if err != nil {
			return nil, err
		}
		d.samples = sr
	}
	return d, nil
}

// Close implements ports.Source. Decoders hold their own handles.
func (s *Source) Close() error { return nil }

var _ ports.Source = (*Source)(nil)
