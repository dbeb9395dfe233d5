package imagestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"github.com/vigilcam/vigil/pkg/geom"
)

func testImage() *cimg.Image {
	img := cimg.NewImage(32, 24, cimg.PixelFormatRGB)
	for i := range img.Pixels {
		img.Pixels[i] = uint8(i * 7)
	}
	return img
}

func baseTime() time.Time {
	return time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
}

func openStore(t *testing.T, root string, opts Options) *Store {
	t.Helper()
	if opts.ImageQuality == 0 {
		opts.ImageQuality = 90
	}
	s, err := Open(logs.NewTestingLog(t), root, opts)
	require.NoError(t, err)
	return s
}

func TestSaveAndRetention(t *testing.T) {
	root := t.TempDir()
	s := openStore(t, root, Options{MaxImages: 5})
	defer s.Close()

	ids := []int64{}
	for i := 0; i < 12; i++ {
		id, path, err := s.Save(testImage(), nil, baseTime().Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.FileExists(t, path)
		ids = append(ids, id)

		count, err := s.Count()
		require.NoError(t, err)
		require.LessOrEqual(t, count, int64(5))
	}

	// Sequence ids are monotonically increasing
	for i := 1; i < len(ids); i++ {
		require.Greater(t, ids[i], ids[i-1])
	}

	// Exactly the 5 most recent remain
	images, err := s.Images()
	require.NoError(t, err)
	require.Len(t, images, 5)
	require.Equal(t, ids[7:], []int64{images[0].ID, images[1].ID, images[2].ID, images[3].ID, images[4].ID})

	// And exactly 5 snapshot files on disk
	files, _ := filepath.Glob(filepath.Join(root, "motion_*.jpg"))
	require.Len(t, files, 5)
}

func TestEvictionTieBreakBySequence(t *testing.T) {
	root := t.TempDir()
	s := openStore(t, root, Options{MaxImages: 3})
	defer s.Close()

	// Four images with the same timestamp: the lowest sequence id goes first
	sameTime := baseTime()
	ids := []int64{}
	for i := 0; i < 4; i++ {
		id, _, err := s.Save(testImage(), nil, sameTime)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	images, err := s.Images()
	require.NoError(t, err)
	require.Len(t, images, 3)
	require.Equal(t, ids[1], images[0].ID)
}

func TestMaxBytesEviction(t *testing.T) {
	root := t.TempDir()
	s := openStore(t, root, Options{MaxImages: 100, MaxBytes: 1})
	defer s.Close()

	// Every save exceeds the byte budget, so only the newest survives
	for i := 0; i < 3; i++ {
		_, _, err := s.Save(testImage(), nil, baseTime().Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	count, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestAnnotatedSave(t *testing.T) {
	root := t.TempDir()
	s := openStore(t, root, Options{MaxImages: 5})
	defer s.Close()

	_, path, err := s.Save(testImage(), []geom.Rect{{X: 2, Y: 2, Width: 10, Height: 8}}, baseTime())
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	// JPEG magic
	require.Equal(t, []byte{0xff, 0xd8}, raw[:2])
}

func TestReconcileAfterCrash(t *testing.T) {
	root := t.TempDir()

	// Phase 1: a store that was allowed to grow to 8 images
	s1 := openStore(t, root, Options{MaxImages: 10})
	for i := 0; i < 8; i++ {
		_, _, err := s1.Save(testImage(), nil, baseTime().Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	s1.Close()

	// Phase 2: simulate a crash that left the store over budget.
	// Reconciliation on Open re-applies eviction.
	s2 := openStore(t, root, Options{MaxImages: 5})
	defer s2.Close()
	count, err := s2.Count()
	require.NoError(t, err)
	require.Equal(t, int64(5), count)
	files, _ := filepath.Glob(filepath.Join(root, "motion_*.jpg"))
	require.Len(t, files, 5)
}

func TestReconcileDropsDanglingRows(t *testing.T) {
	root := t.TempDir()
	s1 := openStore(t, root, Options{MaxImages: 10})
	_, path, err := s1.Save(testImage(), nil, baseTime())
	require.NoError(t, err)
	_, _, err = s1.Save(testImage(), nil, baseTime().Add(time.Second))
	require.NoError(t, err)
	s1.Close()

	// The file behind the first row vanishes (crash between evict steps)
	require.NoError(t, os.Remove(path))

	s2 := openStore(t, root, Options{MaxImages: 10})
	defer s2.Close()
	count, err := s2.Count()
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestReconcileRemovesOrphanFiles(t *testing.T) {
	root := t.TempDir()
	s1 := openStore(t, root, Options{MaxImages: 10})
	_, _, err := s1.Save(testImage(), nil, baseTime())
	require.NoError(t, err)
	s1.Close()

	// A file that is not in the index (crash between write and index repair)
	orphan := filepath.Join(root, "motion_20250101-000000.000_999999.jpg")
	require.NoError(t, os.WriteFile(orphan, []byte{0xff, 0xd8, 0xff}, 0644))

	s2 := openStore(t, root, Options{MaxImages: 10})
	defer s2.Close()
	require.NoFileExists(t, orphan)
	count, err := s2.Count()
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestTotalBytes(t *testing.T) {
	root := t.TempDir()
	s := openStore(t, root, Options{MaxImages: 10})
	defer s.Close()

	total, err := s.TotalBytes()
	require.NoError(t, err)
	require.Equal(t, int64(0), total)

	_, path, err := s.Save(testImage(), nil, baseTime())
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)

	total, err = s.TotalBytes()
	require.NoError(t, err)
	require.Equal(t, info.Size(), total)
}
