package analysis

import (
	"context"
	"time"

	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/timebase"
)

// Keyframe is one keyframe packet. Ordinal is its position among the primary
// stream's packets in decode order.
type Keyframe struct {
	Ordinal    int64
	FrameIndex int64
	PTS        int64
	Timestamp  time.Duration
	Size       int
}

// GopIndex summarizes keyframe placement. GopSizes[i] is the number of
// packets from keyframe i up to the next keyframe, and the last entry runs to
// the end of the stream.
type GopIndex struct {
	Keyframes      []Keyframe
	GopSizes       []int64
	TotalPackets   int64
	AverageGopSize float64
	MinGopSize     int64
	MaxGopSize     int64
}

// FrameIndices returns the frame index of every keyframe.
func (g GopIndex) FrameIndices() []int64 {
	out := make([]int64, len(g.Keyframes))
	for i, k := range g.Keyframes {
		out[i] = k.FrameIndex
	}
	return out
}

// ScanKeyframes reads every packet of the primary stream and records
// keyframes. A stream without keyframes yields ErrNoKeyframesFound.
func (a *Analyzer) ScanKeyframes(ctx context.Context, r ports.PacketReader) (GopIndex, error) {
	info := r.Info()
	var (
		idx     GopIndex
		ordinal int64
	)
	err := a.scan(ctx, r, func(pkt ports.RawPacket) {
		if pkt.Keyframe {
			k := Keyframe{Ordinal: ordinal, PTS: pkt.PTS, Size: pkt.Size}
			if fi, err := timebase.TimestampToFrameNumber(pkt.PTS, info.FrameRate, info.TimeBase); err == nil {
				k.FrameIndex = fi
			} else {
				k.FrameIndex = ordinal
			}
			if ts, err := timebase.TimestampToDuration(pkt.PTS, info.TimeBase); err == nil {
				k.Timestamp = ts
			}
			idx.Keyframes = append(idx.Keyframes, k)
		}
		ordinal++
	})
	if err != nil {
		return GopIndex{}, err
	}
	idx.TotalPackets = ordinal
	if len(idx.Keyframes) == 0 {
		return GopIndex{}, mediaerr.ErrNoKeyframesFound
	}

	idx.GopSizes = make([]int64, len(idx.Keyframes))
	for i, k := range idx.Keyframes {
		end := idx.TotalPackets
		if i+1 < len(idx.Keyframes) {
			end = idx.Keyframes[i+1].Ordinal
		}
		size := end - k.Ordinal
		idx.GopSizes[i] = size
		if i == 0 || size < idx.MinGopSize {
			idx.MinGopSize = size
		}
		if size > idx.MaxGopSize {
			idx.MaxGopSize = size
		}
	}
	idx.AverageGopSize = float64(idx.TotalPackets) / float64(len(idx.Keyframes))

	a.logger.Debug("Found %d keyframes in %d packets", len(idx.Keyframes), idx.TotalPackets)
	return idx, nil
}
