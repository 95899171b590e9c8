package engine

import (
	"image"
	"time"

	"github.com/user/framesift/pkg/ports"
)

// FrameRecord is one delivered frame. Pix holds Height rows of
// Width*Format.BytesPerPixel() bytes with no padding. The caller owns Pix.
type FrameRecord struct {
	Index       int64
	Timestamp   time.Duration
	PTS         int64
	Keyframe    bool
	PictureType ports.PictureType
	Width       int
	Height      int
	Format      ports.PixelFormat
	Pix         []byte
}

// Stride is the byte length of one row of Pix.
func (r FrameRecord) Stride() int {
	return r.Width * r.Format.BytesPerPixel()
}

// Image returns a view of the pixels. Gray and RGBA records share Pix;
// RGB24 records are expanded to an opaque *image.RGBA.
func (r FrameRecord) Image() image.Image {
	rect := image.Rect(0, 0, r.Width, r.Height)
	switch r.Format {
	case ports.PixelGray8:
		return &image.Gray{Pix: r.Pix, Stride: r.Stride(), Rect: rect}
	case ports.PixelRGBA:
		return &image.RGBA{Pix: r.Pix, Stride: r.Stride(), Rect: rect}
	default:
		return sourceImage(ports.RawFrame{
			Planes:  [][]byte{r.Pix},
			Strides: []int{r.Stride()},
			Width:   r.Width,
			Height:  r.Height,
			Format:  ports.PixelRGB24,
		})
	}
}
