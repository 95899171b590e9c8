// Package contactsheet renders extracted frames as a labelled thumbnail grid.
package contactsheet

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"github.com/fogleman/gg"

	"github.com/user/framesift/pkg/engine"
)

// ErrNoFrames is returned when there is nothing to render.
var ErrNoFrames = errors.New("contactsheet: no frames")

// Options controls the grid layout.
type Options struct {
	Columns    int
	CellWidth  int
	Gap        int
	Padding    int
	Labels     bool
	FontPath   string
	FontSize   float64
	Background color.Color
	LabelColor color.Color
	// KeyframeColor outlines keyframe cells. Nil disables the outline.
	KeyframeColor color.Color
}

// DefaultOptions returns a five column sheet with labels.
func DefaultOptions() Options {
	return Options{
		Columns:       5,
		CellWidth:     240,
		Gap:           8,
		Padding:       16,
		Labels:        true,
		FontSize:      12,
		Background:    color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff},
		LabelColor:    color.White,
		KeyframeColor: color.RGBA{R: 0xff, G: 0xc0, B: 0x00, A: 0xff},
	}
}

const labelHeight = 18

// Layout is the computed geometry of a sheet.
type Layout struct {
	Columns    int
	Rows       int
	CellWidth  int
	CellHeight int
	Width      int
	Height     int
}

// Cell returns the top-left corner of the i-th cell image.
func (l Layout) Cell(i int, opts Options) (int, int) {
	col, row := i%l.Columns, i/l.Columns
	x := opts.Padding + col*(l.CellWidth+opts.Gap)
	y := opts.Padding + row*(l.CellHeight+l.labelBand(opts)+opts.Gap)
	return x, y
}

func (l Layout) labelBand(opts Options) int {
	if opts.Labels {
		return labelHeight
	}
	return 0
}

// ComputeLayout sizes the grid for n frames of the given aspect.
func ComputeLayout(n, frameWidth, frameHeight int, opts Options) Layout {
	cols := max(1, min(opts.Columns, n))
	rows := (n + cols - 1) / cols
	cellH := max(1, opts.CellWidth*frameHeight/max(1, frameWidth))
	l := Layout{
		Columns:    cols,
		Rows:       rows,
		CellWidth:  opts.CellWidth,
		CellHeight: cellH,
	}
	band := l.labelBand(opts)
	l.Width = 2*opts.Padding + cols*opts.CellWidth + (cols-1)*opts.Gap
	l.Height = 2*opts.Padding + rows*(cellH+band) + (rows-1)*opts.Gap
	return l
}

// Render draws frames in order, left to right and top to bottom.
func Render(frames []engine.FrameRecord, opts Options) (image.Image, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if opts.Columns <= 0 || opts.CellWidth <= 0 {
		return nil, fmt.Errorf("contactsheet: invalid grid %d columns x %d px", opts.Columns, opts.CellWidth)
	}

	l := ComputeLayout(len(frames), frames[0].Width, frames[0].Height, opts)
	dc := gg.NewContext(l.Width, l.Height)
	if opts.Background != nil {
		dc.SetColor(opts.Background)
		dc.Clear()
	}
	if opts.Labels && opts.FontPath != "" {
		if err := dc.LoadFontFace(opts.FontPath, opts.FontSize); err != nil {
			return nil, fmt.Errorf("load font: %w", err)
		}
	}

	for i, f := range frames {
		x, y := l.Cell(i, opts)
		drawScaled(dc, f.Image(), x, y, l.CellWidth, l.CellHeight)

		if f.Keyframe && opts.KeyframeColor != nil {
			dc.SetColor(opts.KeyframeColor)
			dc.SetLineWidth(2)
			dc.DrawRectangle(float64(x)+1, float64(y)+1, float64(l.CellWidth)-2, float64(l.CellHeight)-2)
			dc.Stroke()
		}
		if opts.Labels {
			dc.SetColor(opts.LabelColor)
			dc.DrawStringAnchored(Label(f), float64(x), float64(y+l.CellHeight+labelHeight/2), 0, 0.5)
		}
	}
	return dc.Image(), nil
}

func drawScaled(dc *gg.Context, img image.Image, x, y, width, height int) {
	dc.Push()
	defer dc.Pop()
	b := img.Bounds()
	dc.Translate(float64(x), float64(y))
	dc.Scale(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	dc.DrawImage(img, 0, 0)
}

// Label formats the caption drawn under a cell, e.g. "#150 00:05.000 I".
func Label(f engine.FrameRecord) string {
	ts := f.Timestamp
	m := ts / time.Minute
	s := (ts % time.Minute) / time.Second
	ms := (ts % time.Second) / time.Millisecond
	return fmt.Sprintf("#%d %02d:%02d.%03d %s", f.Index, m, s, ms, f.PictureType)
}

// EncodePNG renders frames and returns PNG bytes.
func EncodePNG(frames []engine.FrameRecord, opts Options) ([]byte, error) {
	img, err := Render(frames, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
