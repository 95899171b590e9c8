package engine

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/user/framesift/pkg/ports"
)

var (
	errBadGeometry = errors.New("engine: frame geometry does not match its planes")
	errBadFormat   = errors.New("engine: unsupported pixel format")
)

// OutputFormat is the layout of pixels handed to callers. Zero Width and
// Height keep the decoded size. When only one of them is set the other follows
// the source aspect ratio.
type OutputFormat struct {
	Pixel      ports.PixelFormat
	Width      int
	Height     int
	KeepAspect bool
}

// Validate rejects formats the converter cannot produce.
func (o OutputFormat) Validate() error {
	if o.Pixel.BytesPerPixel() == 0 {
		return fmt.Errorf("%w: %s output", errBadFormat, o.Pixel)
	}
	if o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("engine: negative output size %dx%d", o.Width, o.Height)
	}
	return nil
}

// Dimensions returns the output size for a srcW x srcH frame.
func (o OutputFormat) Dimensions(srcW, srcH int) (int, int) {
	w, h := o.Width, o.Height
	switch {
	case w == 0 && h == 0:
		return srcW, srcH
	case h == 0:
		h = int(math.Round(float64(srcH) * float64(w) / float64(srcW)))
	case w == 0:
		w = int(math.Round(float64(srcW) * float64(h) / float64(srcH)))
	case o.KeepAspect:
		scale := math.Min(float64(w)/float64(srcW), float64(h)/float64(srcH))
		w = int(math.Round(float64(srcW) * scale))
		h = int(math.Round(float64(srcH) * scale))
	}
	return max(w, 1), max(h, 1)
}

// convert turns a decoded frame into tightly packed pixels in o's layout.
// Source row padding never reaches the output.
func (o OutputFormat) convert(raw ports.RawFrame) (pix []byte, w, h int, err error) {
	if err := checkGeometry(raw); err != nil {
		return nil, 0, 0, err
	}
	w, h = o.Dimensions(raw.Width, raw.Height)
	sameSize := w == raw.Width && h == raw.Height

	if sameSize {
		switch {
		case raw.Format == o.Pixel:
			rowBytes := raw.Width * o.Pixel.BytesPerPixel()
			return packPlane(raw.Planes[0], raw.Strides[0], rowBytes, raw.Height), w, h, nil
		case raw.Format == ports.PixelYUV420P && o.Pixel == ports.PixelGray8:
			return packPlane(raw.Planes[0], raw.Strides[0], raw.Width, raw.Height), w, h, nil
		}
	}

	src := sourceImage(raw)
	rect := image.Rect(0, 0, w, h)
	var dst draw.Image
	if o.Pixel == ports.PixelGray8 {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	if sameSize {
		draw.Draw(dst, rect, src, src.Bounds().Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
	}

	switch d := dst.(type) {
	case *image.Gray:
		return d.Pix, w, h, nil
	case *image.RGBA:
		if o.Pixel == ports.PixelRGBA {
			return d.Pix, w, h, nil
		}
		return stripAlpha(d.Pix, w*h), w, h, nil
	}
	return nil, 0, 0, errBadFormat
}

func checkGeometry(raw ports.RawFrame) error {
	if raw.Width <= 0 || raw.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", errBadGeometry, raw.Width, raw.Height)
	}
	var rowBytes, rows []int
	switch raw.Format {
	case ports.PixelYUV420P:
		cw, ch := (raw.Width+1)/2, (raw.Height+1)/2
		rowBytes = []int{raw.Width, cw, cw}
		rows = []int{raw.Height, ch, ch}
	case ports.PixelRGB24, ports.PixelRGBA, ports.PixelGray8:
		rowBytes = []int{raw.Width * raw.Format.BytesPerPixel()}
		rows = []int{raw.Height}
	default:
		return fmt.Errorf("%w: %s", errBadFormat, raw.Format)
	}
	if len(raw.Planes) < len(rowBytes) || len(raw.Strides) < len(rowBytes) {
		return fmt.Errorf("%w: %d planes for %s", errBadGeometry, len(raw.Planes), raw.Format)
	}
	for p := range rowBytes {
		stride := raw.Strides[p]
		if stride < rowBytes[p] || len(raw.Planes[p]) < stride*(rows[p]-1)+rowBytes[p] {
			return fmt.Errorf("%w: plane %d stride %d length %d", errBadGeometry, p, stride, len(raw.Planes[p]))
		}
	}
	return nil
}

// packPlane copies rows of rowBytes out of a plane whose rows are stride
// bytes apart.
func packPlane(plane []byte, stride, rowBytes, rows int) []byte {
	out := make([]byte, rowBytes*rows)
	if stride == rowBytes {
		copy(out, plane[:rowBytes*rows])
		return out
	}
	for y := 0; y < rows; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], plane[y*stride:y*stride+rowBytes])
	}
	return out
}

// sourceImage wraps the decoded planes without copying where the image
// package has a matching type.
func sourceImage(raw ports.RawFrame) image.Image {
	rect := image.Rect(0, 0, raw.Width, raw.Height)
	switch raw.Format {
	case ports.PixelYUV420P:
		cb, cr, cstride := raw.Planes[1], raw.Planes[2], raw.Strides[1]
		if raw.Strides[1] != raw.Strides[2] {
			cw, ch := (raw.Width+1)/2, (raw.Height+1)/2
			cb = packPlane(cb, raw.Strides[1], cw, ch)
			cr = packPlane(cr, raw.Strides[2], cw, ch)
			cstride = cw
		}
		return &image.YCbCr{
			Y:              raw.Planes[0],
			Cb:             cb,
			Cr:             cr,
			YStride:        raw.Strides[0],
			CStride:        cstride,
			SubsampleRatio: image.YCbCrSubsampleRatio420,
			Rect:           rect,
		}
	case ports.PixelGray8:
		return &image.Gray{Pix: raw.Planes[0], Stride: raw.Strides[0], Rect: rect}
	case ports.PixelRGBA:
		return &image.RGBA{Pix: raw.Planes[0], Stride: raw.Strides[0], Rect: rect}
	default:
		img := image.NewRGBA(rect)
		src, stride := raw.Planes[0], raw.Strides[0]
		for y := 0; y < raw.Height; y++ {
			row := src[y*stride:]
			out := img.Pix[y*img.Stride:]
			for x := 0; x < raw.Width; x++ {
				out[x*4+0] = row[x*3+0]
				out[x*4+1] = row[x*3+1]
				out[x*4+2] = row[x*3+2]
				out[x*4+3] = 0xff
			}
		}
		return img
	}
}

func stripAlpha(rgba []byte, pixels int) []byte {
	out := make([]byte, pixels*3)
	for i := 0; i < pixels; i++ {
		out[i*3+0] = rgba[i*4+0]
		out[i*3+1] = rgba[i*4+1]
		out[i*3+2] = rgba[i*4+2]
	}
	return out
}
