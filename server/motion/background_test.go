package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vigilcam/vigil/server/camera"
)

func flatFrame(w, h int, v uint8) *camera.Frame {
	f := camera.NewFrame(w, h, time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC))
	for i := range f.Pixels {
		f.Pixels[i] = v
	}
	return f
}

func TestFirstFrameIsAllBackground(t *testing.T) {
	m := NewBackgroundModel(40)
	mask := m.Update(flatFrame(32, 24, 128))
	require.Equal(t, 32, mask.Width)
	require.Equal(t, 24, mask.Height)
	require.Equal(t, 0, mask.CountForeground())
}

func TestStaticSceneStaysBackground(t *testing.T) {
	m := NewBackgroundModel(40)
	for i := 0; i < 100; i++ {
		mask := m.Update(flatFrame(32, 24, 128))
		require.Equal(t, 0, mask.CountForeground(), "frame %v", i)
	}
}

func TestLargeChangeIsForeground(t *testing.T) {
	m := NewBackgroundModel(40)
	for i := 0; i < 30; i++ {
		m.Update(flatFrame(32, 24, 64))
	}
	bright := flatFrame(32, 24, 64)
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			bright.Pixels[y*32+x] = 255
		}
	}
	mask := m.Update(bright)
	require.Equal(t, 100, mask.CountForeground())
	// And the foreground is exactly where the change was
	require.Equal(t, uint8(1), mask.Fg[10*32+10])
	require.Equal(t, uint8(0), mask.Fg[0])
}

// Lower sensitivity must classify at least as many pixels foreground for the
// same change.
func TestSensitivityInverseRelation(t *testing.T) {
	count := func(sensitivity int, delta uint8) int {
		m := NewBackgroundModel(sensitivity)
		for i := 0; i < 50; i++ {
			m.Update(flatFrame(16, 16, 100))
		}
		return m.Update(flatFrame(16, 16, 100+delta)).CountForeground()
	}
	// A moderate change that sits between the two thresholds
	low := count(4, 40)
	high := count(400, 40)
	require.Greater(t, low, high)
}

func TestGradualDriftIsAbsorbed(t *testing.T) {
	m := NewBackgroundModel(20)
	v := uint8(60)
	m.Update(flatFrame(16, 16, v))
	// Brighten by 1 level every frame, as dusk-to-dawn lighting drift would
	for i := 0; i < 120; i++ {
		v++
		mask := m.Update(flatFrame(16, 16, v))
		require.Equal(t, 0, mask.CountForeground(), "frame %v at level %v", i, v)
	}
}

func TestDegenerateFrames(t *testing.T) {
	m := NewBackgroundModel(40)
	m.Update(flatFrame(16, 16, 100))

	// Broken pixel buffer
	broken := flatFrame(16, 16, 100)
	broken.Pixels = broken.Pixels[:10]
	mask := m.Update(broken)
	require.Equal(t, 0, mask.CountForeground())

	// Nil frame
	mask = m.Update(nil)
	require.NotNil(t, mask)
	require.Equal(t, 0, mask.CountForeground())

	// Model is still functional afterwards
	mask = m.Update(flatFrame(16, 16, 100))
	require.Equal(t, 16, mask.Width)
}

// A blacked-out capture (every pixel zero) is degenerate, not a scene change:
// it must not register as motion and must not disturb the model.
func TestBlackoutFrameIsAllBackground(t *testing.T) {
	m := NewBackgroundModel(40)
	for i := 0; i < 30; i++ {
		m.Update(flatFrame(16, 16, 128))
	}

	mask := m.Update(flatFrame(16, 16, 0))
	require.Equal(t, 16, mask.Width)
	require.Equal(t, 16, mask.Height)
	require.Equal(t, 0, mask.CountForeground())

	// The bright scene is still the background afterwards
	mask = m.Update(flatFrame(16, 16, 128))
	require.Equal(t, 0, mask.CountForeground())
}

func TestMeanDeviation(t *testing.T) {
	m := NewBackgroundModel(40)
	// First frame seeds the mean exactly
	m.Update(flatFrame(16, 16, 100))
	require.InDelta(t, 10, m.MeanDeviation(flatFrame(16, 16, 110)), 0.001)
	require.InDelta(t, 0, m.MeanDeviation(flatFrame(16, 16, 100)), 0.001)
	// Degenerate or mismatched frames report zero
	require.Equal(t, float32(0), m.MeanDeviation(nil))
	require.Equal(t, float32(0), m.MeanDeviation(flatFrame(8, 8, 100)))
}

func TestResolutionChangeReinitializes(t *testing.T) {
	m := NewBackgroundModel(40)
	m.Update(flatFrame(16, 16, 100))
	// New resolution: model re-seeds, no spurious motion
	mask := m.Update(flatFrame(32, 32, 200))
	require.Equal(t, 32, mask.Width)
	require.Equal(t, 0, mask.CountForeground())
}
