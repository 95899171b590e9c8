package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/framesift/pkg/adapters/logger"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/metrics"
	"github.com/user/framesift/pkg/mocks"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/selection"
)

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func plan(t *testing.T, s *mocks.Stream, spec selection.Spec) selection.Plan {
	t.Helper()
	info := s.Info()
	p, err := selection.Resolve(context.Background(), spec, selection.Bounds{
		FrameCount: info.FrameCount,
		Duration:   info.Duration,
		FrameRate:  info.FrameRate,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func collect(t *testing.T, e *Engine, s *mocks.Stream, p selection.Plan) ([]FrameRecord, error) {
	t.Helper()
	dec, err := s.OpenDecoder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer dec.Close()
	var out []FrameRecord
	err = e.Execute(context.Background(), p, dec, func(r FrameRecord) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

func indices(frames []FrameRecord) []int64 {
	out := make([]int64, len(frames))
	for i, f := range frames {
		out[i] = f.Index
	}
	return out
}

func equalIndices(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExecuteSeeksOncePerRun(t *testing.T) {
	s := mocks.NewStream(300)
	e := newEngine(t, DefaultOptions())

	frames, err := collect(t, e, s, plan(t, s, selection.Specific(0, 5, 10, 100, 110)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := indices(frames), []int64{0, 5, 10, 100, 110}; !equalIndices(got, want) {
		t.Errorf("indices = %v, want %v", got, want)
	}
	seeks := s.Seeks()
	if len(seeks) != 2 {
		t.Fatalf("expected 2 seeks, got %d (%v)", len(seeks), seeks)
	}
	if seeks[0] != s.PTS(0) || seeks[1] != s.PTS(100) {
		t.Errorf("seek targets = %v, want [%d %d]", seeks, s.PTS(0), s.PTS(100))
	}
}

func TestExecuteFrameMetadata(t *testing.T) {
	s := mocks.NewStream(90)
	e := newEngine(t, DefaultOptions())

	frames, err := collect(t, e, s, plan(t, s, selection.Specific(30, 31, 32, 33)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !frames[0].Keyframe || frames[0].PictureType != ports.PictureI {
		t.Errorf("frame 30 should be an I keyframe, got %+v", frames[0].PictureType)
	}
	wantTypes := []ports.PictureType{ports.PictureB, ports.PictureB, ports.PictureP}
	for i, want := range wantTypes {
		if got := frames[i+1].PictureType; got != want {
			t.Errorf("frame %d picture type = %v, want %v", frames[i+1].Index, got, want)
		}
	}
	// 31 / 30 s
	if frames[1].Timestamp.Milliseconds() != 1033 {
		t.Errorf("timestamp = %v, want ~1.033s", frames[1].Timestamp)
	}
}

func TestExecuteStripsRowPadding(t *testing.T) {
	s := mocks.NewStream(40)
	s.Padding = 7
	e := newEngine(t, DefaultOptions())

	frames, err := collect(t, e, s, plan(t, s, selection.Single(12)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := frames[0]
	if len(f.Pix) != s.Width*s.Height*3 {
		t.Fatalf("len(Pix) = %d, want %d", len(f.Pix), s.Width*s.Height*3)
	}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width*3; x++ {
			if got, want := f.Pix[y*s.Width*3+x], mocks.Pixel(12, 0, x, y); got != want {
				t.Fatalf("byte (%d,%d) = %#x, want %#x", x, y, got, want)
			}
		}
	}
}

func TestExecuteGrayFromYUV(t *testing.T) {
	s := mocks.NewStream(10)
	s.Format = ports.PixelYUV420P
	opts := DefaultOptions()
	opts.Output.Pixel = ports.PixelGray8
	e := newEngine(t, opts)

	frames, err := collect(t, e, s, plan(t, s, selection.Single(3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := frames[0]
	if f.Format != ports.PixelGray8 || len(f.Pix) != s.Width*s.Height {
		t.Fatalf("unexpected gray frame: format %v len %d", f.Format, len(f.Pix))
	}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			if got, want := f.Pix[y*s.Width+x], mocks.Pixel(3, 0, x, y); got != want {
				t.Fatalf("luma (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestExecuteRGBAFromYUV(t *testing.T) {
	s := mocks.NewStream(10)
	s.Format = ports.PixelYUV420P
	opts := DefaultOptions()
	opts.Output.Pixel = ports.PixelRGBA
	e := newEngine(t, opts)

	frames, err := collect(t, e, s, plan(t, s, selection.Single(0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := frames[0]
	if len(f.Pix) != s.Width*s.Height*4 {
		t.Fatalf("len(Pix) = %d, want %d", len(f.Pix), s.Width*s.Height*4)
	}
	for i := 3; i < len(f.Pix); i += 4 {
		if f.Pix[i] != 0xff {
			t.Fatalf("alpha at %d = %d, want 255", i, f.Pix[i])
		}
	}
}

func TestExecuteScales(t *testing.T) {
	s := mocks.NewStream(10)
	opts := DefaultOptions()
	opts.Output.Width = 8
	e := newEngine(t, opts)

	frames, err := collect(t, e, s, plan(t, s, selection.Single(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := frames[0]
	if f.Width != 8 || f.Height != 4 {
		t.Fatalf("size = %dx%d, want 8x4", f.Width, f.Height)
	}
	if len(f.Pix) != 8*4*3 {
		t.Errorf("len(Pix) = %d, want %d", len(f.Pix), 8*4*3)
	}
	if b := f.Image().Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("image bounds = %v", b)
	}
}

func TestOutputDimensions(t *testing.T) {
	tests := []struct {
		name         string
		out          OutputFormat
		srcW, srcH   int
		wantW, wantH int
	}{
		{"source size", OutputFormat{}, 1920, 1080, 1920, 1080},
		{"width only", OutputFormat{Width: 640}, 1920, 1080, 640, 360},
		{"height only", OutputFormat{Height: 360}, 1920, 1080, 640, 360},
		{"exact box", OutputFormat{Width: 100, Height: 100}, 1920, 1080, 100, 100},
		{"fit box", OutputFormat{Width: 100, Height: 100, KeepAspect: true}, 1920, 1080, 100, 56},
		{"never zero", OutputFormat{Width: 1}, 1920, 1080, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.out.Dimensions(tt.srcW, tt.srcH)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Dimensions() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestNewRejectsPlanarOutput(t *testing.T) {
	opts := DefaultOptions()
	opts.Output.Pixel = ports.PixelYUV420P
	if _, err := New(opts); err == nil {
		t.Fatal("expected error for planar output")
	}
}

func TestExecuteRejectsShortPlanes(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	_, _, _, err := e.opts.Output.convert(ports.RawFrame{
		Planes:  [][]byte{make([]byte, 10)},
		Strides: []int{12},
		Width:   4,
		Height:  4,
		Format:  ports.PixelRGB24,
	})
	if !errors.Is(err, errBadGeometry) {
		t.Fatalf("expected geometry error, got %v", err)
	}
}

func TestExecuteCancelToken(t *testing.T) {
	s := mocks.NewStream(60)
	token := NewCancelToken()
	opts := DefaultOptions()
	opts.Cancel = token
	e := newEngine(t, opts)

	dec, _ := s.OpenDecoder()
	defer dec.Close()
	var got []FrameRecord
	err := e.Execute(context.Background(), plan(t, s, selection.Range(0, 9)), dec, func(r FrameRecord) error {
		got = append(got, r)
		if len(got) == 3 {
			token.Cancel()
		}
		return nil
	})
	if !errors.Is(err, mediaerr.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if mediaerr.KindOf(err) != mediaerr.KindCancelled {
		t.Errorf("kind = %v, want cancelled", mediaerr.KindOf(err))
	}
	if len(got) != 3 {
		t.Errorf("expected 3 frames before stop, got %d", len(got))
	}
}

func TestExecuteContextCancel(t *testing.T) {
	s := mocks.NewStream(60)
	e := newEngine(t, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())

	dec, _ := s.OpenDecoder()
	defer dec.Close()
	count := 0
	err := e.Execute(ctx, plan(t, s, selection.Range(0, 59)), dec, func(r FrameRecord) error {
		count++
		if count == 5 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, mediaerr.ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if count >= 60 {
		t.Errorf("expected fewer than 60 frames, got %d", count)
	}
}

func TestExecuteSeekFailure(t *testing.T) {
	s := mocks.NewStream(60)
	s.SeekErr = errors.New("broken index")
	e := newEngine(t, DefaultOptions())

	_, err := collect(t, e, s, plan(t, s, selection.Single(45)))
	var se *mediaerr.SeekError
	if !errors.As(err, &se) {
		t.Fatalf("expected SeekError, got %v", err)
	}
	if se.PTS != s.PTS(45) {
		t.Errorf("SeekError.PTS = %d, want %d", se.PTS, s.PTS(45))
	}
	if mediaerr.KindOf(err) != mediaerr.KindExecution {
		t.Errorf("kind = %v, want execution", mediaerr.KindOf(err))
	}
}

func TestExecuteDecodeFailure(t *testing.T) {
	s := mocks.NewStream(60)
	s.DecodeErrors = map[int64]error{45: errors.New("corrupt slice")}
	e := newEngine(t, DefaultOptions())

	frames, err := collect(t, e, s, plan(t, s, selection.Range(40, 50)))
	var de *mediaerr.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.FrameIndex != 45 {
		t.Errorf("FrameIndex = %d, want 45", de.FrameIndex)
	}
	if len(frames) != 5 {
		t.Errorf("expected 5 frames before the failure, got %d", len(frames))
	}
}

func TestExecuteEarlyEOF(t *testing.T) {
	s := mocks.NewStream(60)
	s.DecodeErrors = map[int64]error{50: io.EOF}
	e := newEngine(t, DefaultOptions())

	_, err := collect(t, e, s, plan(t, s, selection.Range(48, 55)))
	if !errors.Is(err, mediaerr.ErrDecodeFailed) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected decode failure on truncated stream, got %v", err)
	}
}

func TestExecuteReportsMissingFrames(t *testing.T) {
	s := mocks.NewStream(60)
	s.Missing = map[int64]bool{12: true}
	core, logs := observer.New(zapcore.WarnLevel)
	reg := prometheus.NewRegistry()
	opts := DefaultOptions()
	opts.Logger = logger.NewZapFrom(zap.New(core))
	opts.Metrics = metrics.New(reg)
	e := newEngine(t, opts)

	frames, err := collect(t, e, s, plan(t, s, selection.Range(10, 14)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := indices(frames); !equalIndices(got, []int64{10, 11, 13, 14}) {
		t.Fatalf("frames = %v", got)
	}

	warnings := logs.FilterMessage("Frame 12 was not produced by the decoder").All()
	if len(warnings) != 1 {
		t.Errorf("expected one warning for frame 12, got %v", logs.All())
	}
	expected := `
# HELP framesift_errors_total Execution failures by kind.
# TYPE framesift_errors_total counter
framesift_errors_total{kind="missing"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "framesift_errors_total"); err != nil {
		t.Error(err)
	}
}

func TestExecuteProgress(t *testing.T) {
	s := mocks.NewStream(60)
	var reports []ProgressInfo
	opts := DefaultOptions()
	opts.Progress = func(p ProgressInfo) {
		reports = append(reports, p)
		if p.Current == 2 {
			panic("callback bug")
		}
	}
	e := newEngine(t, opts)

	frames, err := collect(t, e, s, plan(t, s, selection.Interval(10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != len(frames) {
		t.Fatalf("expected %d reports, got %d", len(frames), len(reports))
	}
	final := reports[len(reports)-1]
	if final.Current != final.Total || final.Percent() != 100 || final.ETA != 0 {
		t.Errorf("unexpected final report %+v", final)
	}
}

func TestProgressBatch(t *testing.T) {
	var calls []int
	tr := NewTracker(10, 4, func(p ProgressInfo) { calls = append(calls, p.Current) }, nil)
	for i := 0; i < 10; i++ {
		tr.Advance(int64(i), 0)
	}
	want := []int{4, 8, 10}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
	var nilTracker *Tracker
	nilTracker.Advance(0, 0)
}
