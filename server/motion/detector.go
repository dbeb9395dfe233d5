package motion

import (
	"time"

	"github.com/cyclopcam/logs"

	"github.com/vigilcam/vigil/server/camera"
)

// SnapshotStore persists alert snapshots. Implemented by server/imagestore.
type SnapshotStore interface {
	// SaveSnapshot returns the id of the retained image and its on-disk path.
	SaveSnapshot(frame *camera.Frame, regions []Region, now time.Time) (int64, string, error)
}

// Outcome is the result of processing one frame.
type Outcome struct {
	Fired     bool     // An alert is permitted for this frame
	Regions   []Region // Motion regions of this frame, fired or not
	ImageID   int64    // Retained snapshot id. 0 if the snapshot could not be saved.
	ImagePath string   // On-disk path of the retained snapshot, "" if not saved
	TotalArea int      // Sum of region pixel areas
}

type DetectorConfig struct {
	Sensitivity    int
	MinContourArea int
	Cooldown       time.Duration
	WarmupFrames   int // Frames to ignore at startup while the model settles
}

// Detector runs the per-frame decision pipeline:
// model update -> region extraction -> cooldown gate -> snapshot save.
// It performs no I/O other than through the injected SnapshotStore, and is
// not safe for concurrent use: exactly one goroutine drives it.
type Detector struct {
	log   logs.Log
	cfg   DetectorConfig
	model *BackgroundModel
	gate  *CooldownGate
	store SnapshotStore

	frameCount int64
}

func NewDetector(logger logs.Log, cfg DetectorConfig, store SnapshotStore) *Detector {
	return &Detector{
		log:   logger,
		cfg:   cfg,
		model: NewBackgroundModel(cfg.Sensitivity),
		gate:  NewCooldownGate(cfg.Cooldown),
		store: store,
	}
}

// ProcessFrame runs the pipeline on one frame. The frame is only retained
// beyond this call if it is copied into a saved snapshot.
func (d *Detector) ProcessFrame(frame *camera.Frame, now time.Time) Outcome {
	d.frameCount++
	mask := d.model.Update(frame)

	if d.frameCount <= int64(d.cfg.WarmupFrames) {
		// Model is still settling; the frame has been blended in above
		return Outcome{}
	}

	regions := ExtractRegions(mask, d.cfg.MinContourArea)
	hasMotion := len(regions) > 0

	// Suppressed frames still report their regions, for activity summaries
	outcome := Outcome{
		Regions:   regions,
		TotalArea: TotalArea(regions),
	}
	if !d.gate.Evaluate(hasMotion, now) {
		return outcome
	}
	outcome.Fired = true
	if d.store != nil {
		id, path, err := d.store.SaveSnapshot(frame, regions, now)
		if err != nil {
			// The alert still fires with its region data; the dispatch layer
			// sends it without an attachment.
			d.log.Errorf("Failed to save alert snapshot: %v", err)
		} else {
			outcome.ImageID = id
			outcome.ImagePath = path
		}
	}
	return outcome
}

// FrameCount returns the number of frames processed so far.
func (d *Detector) FrameCount() int64 {
	return d.frameCount
}

// MeanDeviation reports the average absolute deviation of frame from the
// background model, for status reporting.
func (d *Detector) MeanDeviation(frame *camera.Frame) float32 {
	return d.model.MeanDeviation(frame)
}
