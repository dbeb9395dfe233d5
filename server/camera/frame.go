// Package camera defines the frame type that flows through the detection
// pipeline, and the interface through which frames are acquired. Actual
// device/stream capture lives behind FrameSource implementations.
package camera

import (
	"time"

	"github.com/bmharper/cimg/v2"
)

// Frame is a single grayscale image from a camera.
// Pixels is row-major, one byte per pixel, no padding.
// A frame is owned by its consumer for the duration of one pipeline step.
// Anybody who needs to keep pixels beyond that must Clone().
type Frame struct {
	Pixels   []uint8
	Width    int
	Height   int
	WallTime time.Time
}

func NewFrame(width, height int, wallTime time.Time) *Frame {
	return &Frame{
		Pixels:   make([]uint8, width*height),
		Width:    width,
		Height:   height,
		WallTime: wallTime,
	}
}

func (f *Frame) Clone() *Frame {
	c := &Frame{
		Pixels:   make([]uint8, len(f.Pixels)),
		Width:    f.Width,
		Height:   f.Height,
		WallTime: f.WallTime,
	}
	copy(c.Pixels, f.Pixels)
	return c
}

// IsDegenerate reports whether the frame is unusable for detection:
// nil, empty, pixel buffer inconsistent with its dimensions, or all-zero.
// An all-zero buffer is a blacked-out or failed capture, not a scene.
func (f *Frame) IsDegenerate() bool {
	if f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Pixels) != f.Width*f.Height {
		return true
	}
	for _, v := range f.Pixels {
		if v != 0 {
			return false
		}
	}
	return true
}

// RGB renders the frame as an RGB raster, for snapshot storage and annotation.
func (f *Frame) RGB() *cimg.Image {
	img := cimg.NewImage(f.Width, f.Height, cimg.PixelFormatRGB)
	for y := 0; y < f.Height; y++ {
		src := f.Pixels[y*f.Width:]
		dst := img.Pixels[y*img.Stride:]
		for x := 0; x < f.Width; x++ {
			v := src[x]
			dst[x*3] = v
			dst[x*3+1] = v
			dst[x*3+2] = v
		}
	}
	return img
}
