package camera

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vigilcam/vigil/pkg/geom"
)

func testTime() time.Time {
	return time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
}

func TestSimSource(t *testing.T) {
	src := NewSimSource(64, 48, 10, 3)
	src.AddIntrusion(1, 1, geom.Rect{X: 10, Y: 10, Width: 8, Height: 8}, 255)

	f0, err := src.NextFrame()
	require.NoError(t, err)
	require.Equal(t, 64, f0.Width)
	require.Equal(t, 48, f0.Height)
	require.False(t, f0.IsDegenerate())
	for _, v := range f0.Pixels {
		require.Equal(t, uint8(64), v)
	}

	f1, err := src.NextFrame()
	require.NoError(t, err)
	require.Equal(t, uint8(255), f1.Pixels[12*64+12])
	require.Equal(t, uint8(64), f1.Pixels[30*64+30])
	require.True(t, f1.WallTime.After(f0.WallTime))

	f2, err := src.NextFrame()
	require.NoError(t, err)
	require.Equal(t, uint8(64), f2.Pixels[12*64+12])

	_, err = src.NextFrame()
	require.Equal(t, io.EOF, err)
}

func TestSimNoiseIsRepeatable(t *testing.T) {
	a := NewSimSource(32, 32, 10, 2)
	b := NewSimSource(32, 32, 10, 2)
	a.Noise = 5
	b.Noise = 5
	fa, err := a.NextFrame()
	require.NoError(t, err)
	fb, err := b.NextFrame()
	require.NoError(t, err)
	require.Equal(t, fa.Pixels, fb.Pixels)

	// Noise stays within its amplitude
	for _, v := range fa.Pixels {
		require.InDelta(t, 64, v, 5)
	}
}

func TestDegenerateFrames(t *testing.T) {
	var nilFrame *Frame
	require.True(t, nilFrame.IsDegenerate())

	f := NewFrame(8, 8, testTime())
	// A frame that is still all-zero is a blackout, not a scene
	require.True(t, f.IsDegenerate())
	f.Pixels[3] = 1
	require.False(t, f.IsDegenerate())

	f.Pixels = f.Pixels[:10]
	require.True(t, f.IsDegenerate())
	f.Pixels = nil
	require.True(t, f.IsDegenerate())
}

func TestFrameClone(t *testing.T) {
	src := NewSimSource(8, 8, 10, 1)
	f, err := src.NextFrame()
	require.NoError(t, err)
	c := f.Clone()
	c.Pixels[0] = 99
	require.Equal(t, uint8(64), f.Pixels[0])
	require.Equal(t, f.WallTime, c.WallTime)
}

func TestFrameRGB(t *testing.T) {
	f := NewFrame(4, 2, testTime())
	f.Pixels[5] = 200
	img := f.RGB()
	require.Equal(t, 4, img.Width)
	require.Equal(t, 2, img.Height)
	require.Equal(t, uint8(200), img.Pixels[1*img.Stride+1*3])
	require.Equal(t, uint8(200), img.Pixels[1*img.Stride+1*3+2])
}
