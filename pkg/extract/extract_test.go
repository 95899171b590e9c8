package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/mocks"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/selection"
)

func openStream(t *testing.T, n int64, mutate func(*Options)) (*MediaFile, *mocks.Stream) {
	t.Helper()
	src := mocks.NewStream(n)
	opts := DefaultOptions()
	opts.Workers = 4
	if mutate != nil {
		mutate(&opts)
	}
	m, err := Open(src, opts)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m, src
}

func indicesOf(frames []engine.FrameRecord) []int64 {
	out := make([]int64, len(frames))
	for i, f := range frames {
		out[i] = f.Index
	}
	return out
}

func TestOpenRejectsEmptyStream(t *testing.T) {
	_, err := Open(mocks.NewStream(0), DefaultOptions())
	assert.ErrorIs(t, err, mediaerr.ErrNoVideoStream)
}

func TestFramesInterval(t *testing.T) {
	m, _ := openStream(t, 300, nil)

	frames, err := m.Frames(context.Background(), selection.Interval(30))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 30, 60, 90, 120, 150, 180, 210, 240, 270}, indicesOf(frames))
	for _, f := range frames {
		assert.True(t, f.Keyframe)
		assert.Equal(t, ports.PixelRGB24, f.Format)
		assert.Len(t, f.Pix, 16*8*3)
	}
}

func TestExecutionModesAgree(t *testing.T) {
	m, _ := openStream(t, 300, nil)
	ctx := context.Background()
	spec := selection.Specific(299, 3, 150, 151, 4, 90)

	want, err := m.Frames(ctx, spec)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 4, 90, 150, 151, 299}, indicesOf(want))

	par, err := m.Parallel(ctx, spec, 0)
	require.NoError(t, err)
	assert.Equal(t, want, par)

	var pushed []engine.FrameRecord
	require.NoError(t, m.ForEach(ctx, spec, func(r engine.FrameRecord) error {
		pushed = append(pushed, r)
		return nil
	}))
	assert.Equal(t, want, pushed)

	var lazy []engine.FrameRecord
	for r, err := range m.All(ctx, spec) {
		require.NoError(t, err)
		lazy = append(lazy, r)
	}
	assert.Equal(t, want, lazy)

	s, err := m.Stream(ctx, spec)
	require.NoError(t, err)
	var streamed []engine.FrameRecord
	for r := range s.All() {
		streamed = append(streamed, r)
	}
	require.NoError(t, s.Err())
	assert.Equal(t, want, streamed)
}

func TestSelectionErrorsSurfaceBeforeDecoding(t *testing.T) {
	m, src := openStream(t, 300, nil)
	ctx := context.Background()

	_, err := m.Frames(ctx, selection.Range(10, 5))
	assert.ErrorIs(t, err, mediaerr.ErrInvalidRange)

	_, err = m.Stream(ctx, selection.Interval(0))
	assert.ErrorIs(t, err, mediaerr.ErrInvalidInterval)

	for _, err := range m.All(ctx, selection.Single(300)) {
		assert.ErrorIs(t, err, mediaerr.ErrFrameOutOfRange)
	}
	assert.Zero(t, src.Opens())
}

func TestAllStopsOnBreak(t *testing.T) {
	m, src := openStream(t, 300, nil)
	var decoded []int64
	src.OnDecode = func(i int64) { decoded = append(decoded, i) }

	for r, err := range m.All(context.Background(), selection.Range(0, 299)) {
		require.NoError(t, err)
		if r.Index == 2 {
			break
		}
	}
	assert.Equal(t, []int64{0, 1, 2}, decoded)
}

func TestFrameAtUsesCache(t *testing.T) {
	m, src := openStream(t, 300, nil)
	ctx := context.Background()

	f, err := m.FrameAt(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 10, f.Index)

	_, err = m.FrameAt(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, src.Opens())
	assert.Len(t, src.Seeks(), 1)

	_, err = m.FrameAt(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Opens())

	_, err = m.FrameAt(ctx, 300)
	var fe *mediaerr.FrameError
	require.ErrorAs(t, err, &fe)
	assert.EqualValues(t, 300, fe.FrameCount)
}

func TestFrameAtWithoutCache(t *testing.T) {
	m, src := openStream(t, 300, func(o *Options) { o.Cache = false })
	ctx := context.Background()

	for _, idx := range []int64{10, 12} {
		f, err := m.FrameAt(ctx, idx)
		require.NoError(t, err)
		assert.Equal(t, idx, f.Index)
	}
	assert.Equal(t, 2, src.Opens())
}

func TestFrameAtTime(t *testing.T) {
	m, _ := openStream(t, 300, nil)
	ctx := context.Background()

	f, err := m.FrameAtTime(ctx, time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 30, f.Index)
	assert.Equal(t, time.Second, f.Timestamp)

	f, err = m.FrameAtTime(ctx, 10*time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 299, f.Index)

	_, err = m.FrameAtTime(ctx, -time.Millisecond)
	assert.ErrorIs(t, err, mediaerr.ErrInvalidTimestamp)
}

func TestKeyframes(t *testing.T) {
	m, _ := openStream(t, 300, nil)
	ctx := context.Background()

	g, err := m.Keyframes(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Keyframes, 10)
	assert.InDelta(t, 30, g.AverageGopSize, 1e-9)

	plan, err := m.Plan(ctx, selection.KeyframesOnly())
	require.NoError(t, err)
	assert.Equal(t, g.FrameIndices(), plan.Indices())
}

func TestKeyframesNotFound(t *testing.T) {
	m, src := openStream(t, 60, nil)
	src.NoKeyframes = true

	_, err := m.Frames(context.Background(), selection.KeyframesOnly())
	assert.ErrorIs(t, err, mediaerr.ErrNoKeyframesFound)
}

func TestVFR(t *testing.T) {
	m, src := openStream(t, 120, nil)
	rep, err := m.VFR(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.IsVariable)
	assert.InDelta(t, 30, rep.MeanFPS, 0.01)

	src.Durations = []int64{3000, 6000}
	rep, err = m.VFR(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.IsVariable)
}

func TestPackets(t *testing.T) {
	m, _ := openStream(t, 90, nil)

	var n, keyframes int
	for p, err := range m.Packets(context.Background()) {
		require.NoError(t, err)
		assert.EqualValues(t, n, p.Ordinal)
		if p.Keyframe {
			keyframes++
			assert.Equal(t, ports.PictureI, p.PictureType)
		}
		n++
	}
	assert.Equal(t, 90, n)
	assert.Equal(t, 3, keyframes)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range m.Packets(ctx) {
		assert.ErrorIs(t, err, mediaerr.ErrCancelled)
	}
}

func TestThumbnails(t *testing.T) {
	m, _ := openStream(t, 300, nil)

	frames, err := m.Thumbnails(context.Background(), 4, 8)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 75, 150, 225}, indicesOf(frames))
	for _, f := range frames {
		assert.Equal(t, 8, f.Width)
		assert.Equal(t, 4, f.Height)
	}

	plan, err := m.ThumbnailPlan(500)
	require.NoError(t, err)
	assert.Equal(t, 300, plan.Len())

	_, err = m.ThumbnailPlan(0)
	assert.ErrorIs(t, err, mediaerr.ErrInvalidInterval)
}

func TestCancelTokenStopsExtraction(t *testing.T) {
	token := &engine.CancelToken{}
	m, src := openStream(t, 300, func(o *Options) { o.Cancel = token })
	src.OnDecode = func(i int64) {
		if i == 4 {
			token.Cancel()
		}
	}

	frames, err := m.Frames(context.Background(), selection.Range(0, 99))
	assert.ErrorIs(t, err, mediaerr.ErrCancelled)
	assert.Equal(t, []int64{0, 1, 2, 3}, indicesOf(frames))
}

func TestProgressReported(t *testing.T) {
	var reports []engine.ProgressInfo
	m, _ := openStream(t, 300, func(o *Options) {
		o.Progress = func(p engine.ProgressInfo) { reports = append(reports, p) }
		o.ProgressBatch = 5
	})

	_, err := m.Frames(context.Background(), selection.Range(0, 19))
	require.NoError(t, err)
	require.Len(t, reports, 4)
	assert.Equal(t, 20, reports[3].Current)
	assert.InDelta(t, 100, reports[3].Percent(), 1e-9)
}

func TestOpenFailurePropagates(t *testing.T) {
	m, src := openStream(t, 300, nil)
	boom := errors.New("no decoder")
	src.OpenErr = boom

	_, err := m.Frames(context.Background(), selection.Single(1))
	assert.ErrorIs(t, err, boom)
}
