package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/user/framesift/pkg/analysis"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/timebase"
)

// Keyframes scans packets once and caches the keyframe index. A failed or
// cancelled scan is not cached.
func (m *MediaFile) Keyframes(ctx context.Context) (analysis.GopIndex, error) {
	m.gopMu.Lock()
	defer m.gopMu.Unlock()
	if m.gop != nil {
		return *m.gop, nil
	}

	r, err := m.source.OpenPackets()
	if err != nil {
		return analysis.GopIndex{}, err
	}
	defer r.Close()

	g, err := m.analyzer.ScanKeyframes(ctx, r)
	if err != nil {
		return analysis.GopIndex{}, err
	}
	m.logger.Info("Found %d keyframes (average GOP %.1f)", len(g.Keyframes), g.AverageGopSize)
	m.gop = &g
	return g, nil
}

// VFR measures frame timing regularity from packet timestamps.
func (m *MediaFile) VFR(ctx context.Context) (analysis.VfrReport, error) {
	r, err := m.source.OpenPackets()
	if err != nil {
		return analysis.VfrReport{}, err
	}
	defer r.Close()
	return m.analyzer.DetectVFR(ctx, r)
}

// PacketRecord describes one compressed packet of the primary stream.
type PacketRecord struct {
	Ordinal     int64
	PTS         int64
	DTS         int64
	HasDTS      bool
	Timestamp   time.Duration
	Size        int
	Keyframe    bool
	PictureType ports.PictureType
}

// Packets lists packets of the primary stream in decode order without
// decoding them. Packets of other streams are skipped.
func (m *MediaFile) Packets(ctx context.Context) iter.Seq2[PacketRecord, error] {
	return func(yield func(PacketRecord, error) bool) {
		r, err := m.source.OpenPackets()
		if err != nil {
			yield(PacketRecord{}, err)
			return
		}
		defer r.Close()

		primary := r.Info().Index
		var n int64
		for {
			if err := ctx.Err(); err != nil {
				yield(PacketRecord{}, fmt.Errorf("%w: %w", mediaerr.ErrCancelled, err))
				return
			}
			pkt, err := r.ReadPacket()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(PacketRecord{}, err)
				return
			}
			if pkt.StreamIndex != primary {
				continue
			}
			ts, err := timebase.TimestampToDuration(pkt.PTS, m.info.TimeBase)
			if err != nil {
				yield(PacketRecord{}, err)
				return
			}
			rec := PacketRecord{
				Ordinal:     n,
				PTS:         pkt.PTS,
				DTS:         pkt.DTS,
				HasDTS:      pkt.HasDTS,
				Timestamp:   ts,
				Size:        pkt.Size,
				Keyframe:    pkt.Keyframe,
				PictureType: pkt.PictureType,
			}
			n++
			if !yield(rec, nil) {
				return
			}
		}
	}
}
