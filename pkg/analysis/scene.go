package analysis

import (
	"cmp"
	"slices"
	"time"

	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/timebase"
)

// DefaultSceneThreshold is the scdet score (0-100) at which a frame counts
// as a cut.
const DefaultSceneThreshold = 10.0

// SceneChange is a detected cut at the start of FrameNumber.
type SceneChange struct {
	Timestamp   time.Duration
	FrameNumber int64
	Score       float64
}

// SceneChanges maps detector cuts onto frame indices of the primary stream.
// A cut is assigned to the nearest nominal frame, since detectors report
// timestamps with limited precision. When several cuts land on one frame the
// highest score wins. The result is ordered by frame.
func SceneChanges(cuts []ports.SceneCut, info ports.StreamInfo) ([]SceneChange, error) {
	frame, err := timebase.FrameNumberToDuration(1, info.FrameRate)
	if err != nil {
		return nil, err
	}
	half := frame / 2

	out := make([]SceneChange, 0, len(cuts))
	for _, c := range cuts {
		ts := max(c.Timestamp, 0)
		idx, err := timebase.DurationToFrameNumber(ts+half, info.FrameRate)
		if err != nil {
			return nil, err
		}
		if info.FrameCount > 0 {
			idx = min(idx, info.FrameCount-1)
		}
		out = append(out, SceneChange{Timestamp: ts, FrameNumber: idx, Score: c.Score})
	}

	slices.SortStableFunc(out, func(a, b SceneChange) int {
		if c := cmp.Compare(a.FrameNumber, b.FrameNumber); c != 0 {
			return c
		}
		return cmp.Compare(b.Score, a.Score)
	})
	return slices.CompactFunc(out, func(a, b SceneChange) bool {
		return a.FrameNumber == b.FrameNumber
	}), nil
}
