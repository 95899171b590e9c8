// Package mp4demux reads sample tables of progressive and fragmented MP4
// files and exposes the primary video track as timed, keyframe-flagged
// samples in decode and presentation order.
package mp4demux

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framesift/pkg/adapters/logger"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/timebase"
)

// Sample is one video sample. PTS and DTS are shifted so that the earliest
// presentation timestamp is zero.
type Sample struct {
	Number   int
	DTS      int64
	PTS      int64
	Duration uint32
	Size     uint32
	Offset   int64
	Keyframe bool

	data []byte
}

// File is a parsed MP4 container.
type File struct {
	info    ports.StreamInfo
	codec   Codec
	tracks  []Track
	samples []Sample
	// order holds sample positions sorted by PTS.
	order []int
	open  func() (io.ReadSeekCloser, error)
}

// Open parses the file at path. Sample payloads of progressive files are
// read lazily from path.
func Open(path string, log ports.Logger) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return parse(f, func() (io.ReadSeekCloser, error) { return os.Open(path) }, log)
}

// Parse reads an in-memory MP4.
func Parse(data []byte, log ports.Logger) (*File, error) {
	return parse(bytes.NewReader(data), func() (io.ReadSeekCloser, error) {
		return nopCloser{bytes.NewReader(data)}, nil
	}, log)
}

type nopCloser struct{ io.ReadSeeker }

func (nopCloser) Close() error { return nil }

func parse(r io.ReadSeeker, open func() (io.ReadSeekCloser, error), log ports.Logger) (*File, error) {
	log = logger.OrNoop(log).WithComponent("mp4demux")
	mp4File, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	moov := mp4File.Moov
	if mp4File.IsFragmented() && mp4File.Init != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("no moov box found: %w", mediaerr.ErrNoVideoStream)
	}

	file := &File{open: open}
	var video *mp4.TrakBox
	for i, trak := range moov.Traks {
		t := describeTrack(trak)
		file.tracks = append(file.tracks, t)
		if !t.Supported {
			log.Warn("Ignoring track %d: unsupported %s sample entry", t.ID, t.Handler)
			continue
		}
		if video == nil && t.Handler == "vide" {
			video = trak
			file.codec = t.Codec
			file.info.Index = i
			file.info.Codec = string(t.Codec)
		}
	}
	if video == nil {
		return nil, mediaerr.ErrNoVideoStream
	}
	if video.Mdia.Mdhd == nil || video.Mdia.Mdhd.Timescale == 0 {
		return nil, &mediaerr.TimeBaseError{Num: 1, Den: 0}
	}
	timescale := int64(video.Mdia.Mdhd.Timescale)
	file.info.TimeBase = timebase.Rational{Num: 1, Den: timescale}
	file.info.Width, file.info.Height = visualSize(video)

	if mp4File.IsFragmented() {
		err = file.readFragmented(mp4File, moov, video.Tkhd.TrackID)
	} else {
		err = file.readProgressive(video)
	}
	if err != nil {
		return nil, err
	}
	if len(file.samples) == 0 {
		return nil, fmt.Errorf("video track has no samples: %w", mediaerr.ErrNoVideoStream)
	}
	if err := file.finish(timescale); err != nil {
		return nil, err
	}
	log.Debug("Parsed %s track: %d samples, %dx%d, %s fps", file.codec, len(file.samples), file.info.Width, file.info.Height, file.info.FrameRate)
	return file, nil
}

func visualSize(trak *mp4.TrakBox) (int, int) {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return 0, 0
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			return int(vse.Width), int(vse.Height)
		}
	}
	return 0, 0
}

func (f *File) readProgressive(trak *mp4.TrakBox) error {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return fmt.Errorf("no sample table found")
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stts == nil {
		return fmt.Errorf("missing stsz or stts box")
	}

	sync := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			sync[nr] = true
		}
	}

	count := stbl.Stsz.SampleNumber
	f.samples = make([]Sample, 0, count)
	for nr := uint32(1); nr <= count; nr++ {
		dts, dur := stbl.Stts.GetDecodeTime(nr)
		pts := int64(dts)
		if stbl.Ctts != nil {
			pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}
		offset, err := sampleOffset(stbl, nr)
		if err != nil {
			return fmt.Errorf("sample %d: %w", nr, err)
		}
		f.samples = append(f.samples, Sample{
			Number:   int(nr),
			DTS:      int64(dts),
			PTS:      pts,
			Duration: dur,
			Size:     stbl.Stsz.GetSampleSize(int(nr)),
			Offset:   offset,
			Keyframe: stbl.Stss == nil || sync[nr],
		})
	}
	return nil
}

func sampleOffset(stbl *mp4.StblBox, nr uint32) (int64, error) {
	if stbl.Stsc == nil {
		return 0, fmt.Errorf("missing stsc box")
	}
	chunkNr, firstInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk %d out of range", chunkNr)
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstInChunk); s < nr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return int64(offset), nil
}

func (f *File) readFragmented(mp4File *mp4.File, moov *mp4.MoovBox, trackID uint32) error {
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	number := 0
	var next uint64
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}
				if traf.Tfdt != nil {
					next = traf.Tfdt.BaseMediaDecodeTime()
				}
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return fmt.Errorf("get samples: %w", err)
				}
				for _, s := range samples {
					number++
					f.samples = append(f.samples, Sample{
						Number:   number,
						DTS:      int64(next),
						PTS:      int64(next) + int64(s.CompositionTimeOffset),
						Duration: s.Dur,
						Size:     uint32(len(s.Data)),
						Keyframe: !mp4.DecodeSampleFlags(s.Flags).SampleIsNonSync,
						data:     s.Data,
					})
					next += uint64(s.Dur)
				}
			}
		}
	}
	return nil
}

// finish normalizes timestamps and derives stream-level timing.
func (f *File) finish(timescale int64) error {
	minPTS := f.samples[0].PTS
	for _, s := range f.samples {
		minPTS = min(minPTS, s.PTS)
	}
	var total int64
	for i := range f.samples {
		f.samples[i].PTS -= minPTS
		f.samples[i].DTS -= minPTS
		total += int64(f.samples[i].Duration)
	}

	f.order = make([]int, len(f.samples))
	for i := range f.order {
		f.order[i] = i
	}
	sort.SliceStable(f.order, func(a, b int) bool {
		return f.samples[f.order[a]].PTS < f.samples[f.order[b]].PTS
	})

	count := int64(len(f.samples))
	f.info.FrameCount = count
	if total <= 0 {
		total = count
	}
	f.info.FrameRate = timebase.New(count*timescale, total)
	d, err := timebase.TimestampToDuration(total, timebase.Rational{Num: 1, Den: timescale})
	if err != nil {
		return fmt.Errorf("track duration: %w", err)
	}
	f.info.Duration = d
	return nil
}

// Info returns the primary video stream description.
func (f *File) Info() ports.StreamInfo { return f.info }

// Codec returns the primary video codec.
func (f *File) Codec() Codec { return f.codec }

// Tracks lists every track, including ignored ones.
func (f *File) Tracks() []Track { return append([]Track(nil), f.tracks...) }

// Samples returns the video samples in decode order.
func (f *File) Samples() []Sample { return append([]Sample(nil), f.samples...) }

// PresentationOrder returns the video samples sorted by PTS.
func (f *File) PresentationOrder() []Sample {
	out := make([]Sample, len(f.order))
	for i, pos := range f.order {
		out[i] = f.samples[pos]
	}
	return out
}

// KeyframeAtOrBefore returns the presentation position of the latest
// keyframe whose PTS is not after pts. It returns 0 when there is none.
func (f *File) KeyframeAtOrBefore(pts int64) int {
	n := sort.Search(len(f.order), func(i int) bool {
		return f.samples[f.order[i]].PTS > pts
	})
	for i := n - 1; i >= 0; i-- {
		if f.samples[f.order[i]].Keyframe {
			return i
		}
	}
	return 0
}

// SampleReader reads sample payloads through its own file handle.
type SampleReader struct {
	r io.ReadSeekCloser
}

// NewSampleReader opens an independent handle on the underlying data.
func (f *File) NewSampleReader() (*SampleReader, error) {
	r, err := f.open()
	if err != nil {
		return nil, err
	}
	return &SampleReader{r: r}, nil
}

// Read returns the payload of s.
func (sr *SampleReader) Read(s Sample) ([]byte, error) {
	if s.data != nil {
		return s.data, nil
	}
	if _, err := sr.r.Seek(s.Offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample %d: %w", s.Number, err)
	}
	buf := make([]byte, s.Size)
	if _, err := io.ReadFull(sr.r, buf); err != nil {
		return nil, fmt.Errorf("read sample %d: %w", s.Number, err)
	}
	return buf, nil
}

// Close releases the handle.
func (sr *SampleReader) Close() error { return sr.r.Close() }

// PacketReader walks video samples in decode order as ports.RawPacket values.
type PacketReader struct {
	file   *File
	reader *SampleReader
	pos    int
}

// OpenPackets returns a packet reader. Picture types are parsed from the
// payloads of H.264 tracks.
func (f *File) OpenPackets() (ports.PacketReader, error) {
	pr := &PacketReader{file: f}
	if f.codec == CodecH264 {
		sr, err := f.NewSampleReader()
		if err != nil {
			return nil, err
		}
		pr.reader = sr
	}
	return pr, nil
}

func (p *PacketReader) Info() ports.StreamInfo { return p.file.info }

func (p *PacketReader) ReadPacket() (ports.RawPacket, error) {
	if p.pos >= len(p.file.samples) {
		return ports.RawPacket{}, io.EOF
	}
	s := p.file.samples[p.pos]
	p.pos++

	pictureType := ClassifySample(p.file.codec, nil, s.Keyframe)
	if p.reader != nil {
		data, err := p.reader.Read(s)
		if err != nil {
			return ports.RawPacket{}, err
		}
		pictureType = ClassifySample(p.file.codec, data, s.Keyframe)
	}
	return ports.RawPacket{
		StreamIndex: p.file.info.Index,
		PTS:         s.PTS,
		DTS:         s.DTS,
		HasDTS:      true,
		Size:        int(s.Size),
		Keyframe:    s.Keyframe,
		PictureType: pictureType,
	}, nil
}

func (p *PacketReader) Close() error {
	if p.reader != nil {
		return p.reader.Close()
	}
	return nil
}
