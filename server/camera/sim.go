package camera

import (
	"io"
	"math/rand"
	"time"

	"github.com/vigilcam/vigil/pkg/gen"
	"github.com/vigilcam/vigil/pkg/geom"
)

// SimSource generates a deterministic synthetic scene: a flat gray background
// with optional bright rectangles scripted to appear on specific frames.
// Useful for the demo mode and for end-to-end tests, where a real camera
// would make results unrepeatable.
type SimSource struct {
	Width      int
	Height     int
	Background uint8
	Noise      uint8 // Per-pixel speckle amplitude, 0 = clean scene

	frameIdx   int
	maxFrames  int // 0 = unlimited
	interval   time.Duration
	baseTime   time.Time
	intrusions []simIntrusion
	rng        *rand.Rand
}

type simIntrusion struct {
	firstFrame int
	lastFrame  int
	box        geom.Rect
	brightness uint8
}

func NewSimSource(width, height, fps, maxFrames int) *SimSource {
	return &SimSource{
		Width:      width,
		Height:     height,
		Background: 64,
		maxFrames:  maxFrames,
		interval:   time.Second / time.Duration(fps),
		baseTime:   time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC),
		rng:        rand.New(rand.NewSource(1)), // fixed seed, runs are repeatable
	}
}

// AddIntrusion scripts a bright rectangle covering box for frames
// [firstFrame, lastFrame] (zero-based, inclusive).
func (s *SimSource) AddIntrusion(firstFrame, lastFrame int, box geom.Rect, brightness uint8) {
	s.intrusions = append(s.intrusions, simIntrusion{
		firstFrame: firstFrame,
		lastFrame:  lastFrame,
		box:        box,
		brightness: brightness,
	})
}

func (s *SimSource) NextFrame() (*Frame, error) {
	if s.maxFrames > 0 && s.frameIdx >= s.maxFrames {
		return nil, io.EOF
	}
	t := s.baseTime.Add(time.Duration(s.frameIdx) * s.interval)
	f := NewFrame(s.Width, s.Height, t)
	for i := range f.Pixels {
		f.Pixels[i] = s.Background
	}
	if s.Noise > 0 {
		span := int(s.Noise)*2 + 1
		for i := range f.Pixels {
			f.Pixels[i] = uint8(gen.Clamp(int(f.Pixels[i])+s.rng.Intn(span)-int(s.Noise), 0, 255))
		}
	}
	for _, in := range s.intrusions {
		if s.frameIdx < in.firstFrame || s.frameIdx > in.lastFrame {
			continue
		}
		// Clip the box to the frame
		y0 := gen.Max(in.box.Y, 0)
		y1 := gen.Min(in.box.Y+in.box.Height, s.Height)
		x0 := gen.Max(in.box.X, 0)
		x1 := gen.Min(in.box.X+in.box.Width, s.Width)
		for y := y0; y < y1; y++ {
			row := f.Pixels[y*s.Width:]
			for x := x0; x < x1; x++ {
				row[x] = in.brightness
			}
		}
	}
	s.frameIdx++
	return f, nil
}

func (s *SimSource) Close() error {
	return nil
}
