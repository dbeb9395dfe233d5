// Package annotate draws detection overlays onto snapshot images.
package annotate

import (
	"image"

	"github.com/bmharper/cimg/v2"
	"github.com/fogleman/gg"
	"github.com/vigilcam/vigil/pkg/geom"
)

// DrawRegions returns a copy of src (RGB) with a rectangle stroked around
// each region. src is not modified.
func DrawRegions(src *cimg.Image, regions []geom.Rect) *cimg.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))
	for y := 0; y < src.Height; y++ {
		srcRow := src.Pixels[y*src.Stride:]
		dstRow := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < src.Width; x++ {
			dstRow[x*4] = srcRow[x*3]
			dstRow[x*4+1] = srcRow[x*3+1]
			dstRow[x*4+2] = srcRow[x*3+2]
			dstRow[x*4+3] = 255
		}
	}

	dc := gg.NewContextForRGBA(rgba)
	dc.SetRGB255(0, 255, 0)
	dc.SetLineWidth(2)
	for _, r := range regions {
		dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
	}
	dc.Stroke()

	dst := cimg.NewImage(src.Width, src.Height, cimg.PixelFormatRGB)
	for y := 0; y < dst.Height; y++ {
		srcRow := rgba.Pix[y*rgba.Stride:]
		dstRow := dst.Pixels[y*dst.Stride:]
		for x := 0; x < dst.Width; x++ {
			dstRow[x*3] = srcRow[x*4]
			dstRow[x*3+1] = srcRow[x*4+1]
			dstRow[x*3+2] = srcRow[x*4+2]
		}
	}
	return dst
}
