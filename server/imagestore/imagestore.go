// Package imagestore persists alert snapshots with a bounded retention
// policy: at most MaxImages (and optionally MaxBytes) are kept, and the
// oldest images are evicted first. The JPEG files live in the store root;
// a SQLite index in the same directory assigns sequence ids and timestamps.
package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"

	"github.com/vigilcam/vigil/pkg/annotate"
	"github.com/vigilcam/vigil/pkg/geom"
	"github.com/vigilcam/vigil/pkg/iox"
	"github.com/vigilcam/vigil/pkg/kibi"
	"github.com/vigilcam/vigil/server/camera"
	"github.com/vigilcam/vigil/server/motion"
)

type Options struct {
	MaxImages    int   // Hard cap on retained image count. Must be positive.
	MaxBytes     int64 // Byte cap on retained images. 0 = no byte limit.
	ImageQuality int   // JPEG quality 1..100
}

type Store struct {
	log  logs.Log
	db   *gorm.DB
	root string
	opts Options

	// Guards save+evict as one critical section, so the retained set never
	// exceeds its bounds even while a reconciliation runs concurrently.
	lock sync.Mutex
}

// Open or create a snapshot store at root. A reconciliation pass runs before
// Open returns: index rows without files and files without index rows are
// dropped, and the retention bound is re-applied, which repairs any crash
// that landed between a write and its eviction.
func Open(logger logs.Log, root string, opts Options) (*Store, error) {
	if opts.MaxImages <= 0 {
		return nil, fmt.Errorf("image store max images must be positive (got %v)", opts.MaxImages)
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0777); err != nil {
		return nil, fmt.Errorf("Failed to create image storage path '%v': %w", root, err)
	}
	// Verify write capability up front, not on the first alert
	probe := filepath.Join(root, ".write-probe")
	if err := os.WriteFile(probe, []byte("probe"), 0600); err != nil {
		return nil, fmt.Errorf("Image storage path '%v' is not writable: %w", root, err)
	}
	os.Remove(probe)

	dbPath := filepath.Join(root, "images.sqlite")
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbPath), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open image index %v: %w", dbPath, err)
	}
	s := &Store{
		log:  logger,
		db:   db,
		root: root,
		opts: opts,
	}
	if err := s.Reconcile(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying index database.
func (s *Store) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// SaveSnapshot renders the frame as a JPEG with the motion regions outlined,
// and retains it. Implements the snapshot interface of the detection pipeline.
func (s *Store) SaveSnapshot(frame *camera.Frame, regions []motion.Region, now time.Time) (int64, string, error) {
	return s.Save(frame.RGB(), motion.Boxes(regions), now)
}

// Save compresses the snapshot and inserts it into the retained set, then
// synchronously evicts the oldest images beyond the configured bounds.
func (s *Store) Save(snapshot *cimg.Image, boxes []geom.Rect, now time.Time) (int64, string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if len(boxes) != 0 {
		snapshot = annotate.DrawRegions(snapshot, boxes)
	}
	jpg, err := cimg.Compress(snapshot, cimg.MakeCompressParams(cimg.Sampling420, s.opts.ImageQuality, 0))
	if err != nil {
		return 0, "", fmt.Errorf("Failed to compress snapshot: %w", err)
	}

	img := &RetainedImage{
		Time:  dbh.MakeIntTime(now),
		Bytes: int64(len(jpg)),
	}
	if err := s.db.Create(img).Error; err != nil {
		return 0, "", fmt.Errorf("Failed to index snapshot: %w", err)
	}
	img.Filename = makeFilename(img.Time, img.ID)
	if err := s.db.Model(img).Update("filename", img.Filename).Error; err != nil {
		s.db.Delete(img)
		return 0, "", fmt.Errorf("Failed to index snapshot: %w", err)
	}
	fullPath := filepath.Join(s.root, img.Filename)
	if err := iox.WriteFileAtomic(fullPath, jpg, 0644); err != nil {
		s.db.Delete(img)
		return 0, "", fmt.Errorf("Failed to write snapshot %v: %w", fullPath, err)
	}

	s.evictExcessHaveLock()
	return img.ID, fullPath, nil
}

// Count returns the number of retained images.
func (s *Store) Count() (int64, error) {
	count := int64(0)
	err := s.db.Model(&RetainedImage{}).Count(&count).Error
	return count, err
}

// TotalBytes returns the byte size of the retained set.
func (s *Store) TotalBytes() (int64, error) {
	total := int64(0)
	err := s.db.Model(&RetainedImage{}).Select("COALESCE(SUM(bytes), 0)").Scan(&total).Error
	return total, err
}

// Images returns the retained set, oldest first.
func (s *Store) Images() ([]*RetainedImage, error) {
	var images []*RetainedImage
	if err := s.db.Order("time, id").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// FullPath returns the on-disk path of a retained image.
func (s *Store) FullPath(img *RetainedImage) string {
	return filepath.Join(s.root, img.Filename)
}

// Reconcile repairs the index after an unclean shutdown: rows whose file is
// gone are removed, orphan files are deleted, and eviction is re-applied.
func (s *Store) Reconcile() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	images, err := s.Images()
	if err != nil {
		return fmt.Errorf("Failed to scan image index: %w", err)
	}
	indexed := map[string]bool{}
	for _, img := range images {
		if img.Filename == "" {
			// Crash between insert and filename assignment
			s.db.Delete(img)
			continue
		}
		full := s.FullPath(img)
		if _, err := os.Stat(full); err != nil {
			s.log.Warnf("Retained image %v is missing its file %v, dropping index row", img.ID, img.Filename)
			s.db.Delete(img)
			continue
		}
		indexed[img.Filename] = true
	}

	onDisk, _ := filepath.Glob(filepath.Join(s.root, "motion_*.jpg"))
	for _, full := range onDisk {
		if !indexed[filepath.Base(full)] {
			s.log.Warnf("Deleting orphan snapshot file %v", filepath.Base(full))
			os.Remove(full)
		}
	}

	s.evictExcessHaveLock()
	return nil
}

// Caller must hold s.lock.
// Evicts oldest-first by timestamp, ties broken by sequence id ascending,
// until both the count bound and the byte bound hold.
func (s *Store) evictExcessHaveLock() {
	images, err := s.Images()
	if err != nil {
		s.log.Errorf("Eviction scan failed: %v", err)
		return
	}
	count := int64(len(images))
	total := int64(0)
	for _, img := range images {
		total += img.Bytes
	}

	// The newest image is never evicted, even if it alone exceeds the byte
	// budget. The count bound still holds because MaxImages >= 1.
	candidates := images
	if len(candidates) > 0 {
		candidates = candidates[:len(candidates)-1]
	}

	evicted := 0
	freed := int64(0)
	for _, img := range candidates {
		overCount := count > int64(s.opts.MaxImages)
		overBytes := s.opts.MaxBytes > 0 && total > s.opts.MaxBytes
		if !overCount && !overBytes {
			break
		}
		// Delete the file first. If we crash in between, Reconcile drops the
		// dangling index row on next startup.
		full := s.FullPath(img)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			s.log.Errorf("Failed to evict snapshot %v: %v", full, err)
			break
		}
		if err := s.db.Delete(img).Error; err != nil {
			s.log.Errorf("Failed to remove index row for %v: %v", img.Filename, err)
			break
		}
		count--
		total -= img.Bytes
		freed += img.Bytes
		evicted++
	}
	if evicted > 0 {
		s.log.Infof("Evicted %v snapshot(s), freed %v, %v remain", evicted, kibi.Bytes(freed), count)
	}
}
