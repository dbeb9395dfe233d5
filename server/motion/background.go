// Package motion is the detection core: background model maintenance,
// candidate region extraction, cooldown gating, and the per-frame pipeline
// that ties them together.
package motion

import (
	"github.com/chewxy/math32"

	"github.com/vigilcam/vigil/pkg/gen"
	"github.com/vigilcam/vigil/server/camera"
)

// Variance bounds keep the model from collapsing on a perfectly static scene
// (which would make sensor noise look like motion) or from ballooning on a
// noisy one.
const (
	initialVariance = 225
	minVariance     = 16
	maxVariance     = 5000
)

// Mask is the per-pixel foreground classification of one frame.
// Dimensions always equal the source frame's dimensions.
type Mask struct {
	Fg     []uint8 // 1 = foreground, 0 = background
	Width  int
	Height int
}

func newMask(width, height int) *Mask {
	return &Mask{
		Fg:     make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// CountForeground returns the number of foreground pixels.
func (m *Mask) CountForeground() int {
	n := 0
	for _, v := range m.Fg {
		if v != 0 {
			n++
		}
	}
	return n
}

// BackgroundModel keeps a per-pixel running mean and variance of the scene,
// blended exponentially with every incoming frame so that gradual lighting
// drift is absorbed into the background.
//
// Sensitivity plays two roles, mirroring the MOG2 varThreshold convention:
// the squared-deviation threshold for classifying a pixel as foreground is
// sensitivity * variance, and the blend rate is 1 / sensitivity. A lower
// sensitivity value therefore adapts faster and classifies more pixels as
// foreground for the same change.
type BackgroundModel struct {
	mean        []float32
	variance    []float32
	width       int
	height      int
	sensitivity float32
	alpha       float32 // blend rate, 1/sensitivity
	initialized bool
}

func NewBackgroundModel(sensitivity int) *BackgroundModel {
	if sensitivity < 1 {
		sensitivity = 1
	}
	return &BackgroundModel{
		sensitivity: float32(sensitivity),
		alpha:       1 / float32(sensitivity),
	}
}

// Update classifies every pixel of frame against the current model, then
// blends the frame into the model regardless of classification.
// The first frame initializes the model and yields an all-background mask.
// A degenerate frame also yields an all-background mask and leaves the model
// untouched. Update never fails.
func (b *BackgroundModel) Update(frame *camera.Frame) *Mask {
	if frame.IsDegenerate() {
		if frame != nil && frame.Width > 0 && frame.Height > 0 {
			return newMask(frame.Width, frame.Height)
		}
		return newMask(0, 0)
	}

	mask := newMask(frame.Width, frame.Height)

	if !b.initialized || b.width != frame.Width || b.height != frame.Height {
		b.initialize(frame)
		return mask
	}

	alpha := b.alpha
	threshScale := b.sensitivity
	for i, p := range frame.Pixels {
		v := float32(p)
		d := v - b.mean[i]
		if d*d > threshScale*b.variance[i] {
			mask.Fg[i] = 1
		}
		// Unconditional blend, so the model self-stabilizes against drift
		b.mean[i] += alpha * d
		b.variance[i] = gen.Clamp(b.variance[i]+alpha*(d*d-b.variance[i]), minVariance, maxVariance)
	}
	return mask
}

func (b *BackgroundModel) initialize(frame *camera.Frame) {
	n := frame.Width * frame.Height
	b.mean = make([]float32, n)
	b.variance = make([]float32, n)
	for i, p := range frame.Pixels {
		b.mean[i] = float32(p)
		b.variance[i] = initialVariance
	}
	b.width = frame.Width
	b.height = frame.Height
	b.initialized = true
}

// MeanDeviation returns the average absolute deviation of frame from the
// model, for diagnostics.
func (b *BackgroundModel) MeanDeviation(frame *camera.Frame) float32 {
	if !b.initialized || frame.IsDegenerate() || frame.Width != b.width || frame.Height != b.height {
		return 0
	}
	sum := float32(0)
	for i, p := range frame.Pixels {
		sum += math32.Abs(float32(p) - b.mean[i])
	}
	return sum / float32(len(frame.Pixels))
}
