// Package monitor runs the frame acquisition loop: pull a frame from the
// source, run detection, and hand any fired alert to the notifier queue.
// Detection is strictly sequential; only alert dispatch happens off-loop.
package monitor

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"

	"github.com/vigilcam/vigil/server/camera"
	"github.com/vigilcam/vigil/server/motion"
	"github.com/vigilcam/vigil/server/notifications"
)

// recentActivitySize is the number of recent frame summaries we keep.
// Must be a power of 2.
const recentActivitySize = 256

// How long to wait after a transient acquisition failure before retrying
const acquireRetryDelay = 500 * time.Millisecond

// Emit a status line after this many frames (about a minute at 30 fps)
const statusEveryFrames = 1800

// ActivitySample summarizes detection on one frame.
type ActivitySample struct {
	Time      time.Time
	Regions   int
	TotalArea int
	Fired     bool
}

type Monitor struct {
	Log           logs.Log
	source        camera.FrameSource
	detector      *motion.Detector
	notifier      *notifications.Notifier
	mustStop      atomic.Bool // True if Stop() has been called
	looperStopped chan bool   // Closed when the loop has exited

	recentLock sync.Mutex
	recent     ringbuffer.RingP[ActivitySample]

	alertsFired atomic.Int64
}

func NewMonitor(logger logs.Log, source camera.FrameSource, detector *motion.Detector, notifier *notifications.Notifier) *Monitor {
	return &Monitor{
		Log:      logger,
		source:   source,
		detector: detector,
		notifier: notifier,
		recent:   ringbuffer.NewRingP[ActivitySample](recentActivitySize),
	}
}

// Start the frame loop
func (m *Monitor) Start() {
	m.mustStop.Store(false)
	m.looperStopped = make(chan bool)
	go m.loop()
}

// Stop the frame loop. The current frame finishes processing; we never abort
// mid-frame.
func (m *Monitor) Stop() {
	m.mustStop.Store(true)
	<-m.looperStopped
}

// Done is closed when the loop exits on its own (end of stream).
func (m *Monitor) Done() chan bool {
	return m.looperStopped
}

// AlertsFired returns the number of alerts handed to the notifier.
func (m *Monitor) AlertsFired() int64 {
	return m.alertsFired.Load()
}

// RecentActivity returns summaries of the most recently processed frames,
// oldest first.
func (m *Monitor) RecentActivity() []ActivitySample {
	m.recentLock.Lock()
	defer m.recentLock.Unlock()
	samples := make([]ActivitySample, 0, m.recent.Len())
	for i := 0; i < m.recent.Len(); i++ {
		samples = append(samples, m.recent.Peek(i))
	}
	return samples
}

func (m *Monitor) loop() {
	consecutiveFailures := 0

	for !m.mustStop.Load() {
		frame, err := m.source.NextFrame()
		if err == io.EOF {
			m.Log.Infof("Frame source ended after %v frames", m.detector.FrameCount())
			break
		}
		if err != nil {
			consecutiveFailures++
			if consecutiveFailures == 1 || consecutiveFailures%20 == 0 {
				m.Log.Warnf("Failed to acquire frame (%v consecutive): %v", consecutiveFailures, err)
			}
			time.Sleep(acquireRetryDelay)
			continue
		}
		if consecutiveFailures != 0 {
			m.Log.Infof("Frame acquisition recovered after %v failures", consecutiveFailures)
			consecutiveFailures = 0
		}

		outcome := m.detector.ProcessFrame(frame, frame.WallTime)

		m.recentLock.Lock()
		m.recent.Add(ActivitySample{
			Time:      frame.WallTime,
			Regions:   len(outcome.Regions),
			TotalArea: outcome.TotalArea,
			Fired:     outcome.Fired,
		})
		m.recentLock.Unlock()

		if outcome.Fired {
			m.alertsFired.Add(1)
			m.Log.Infof("Motion detected: %v region(s), %v px", len(outcome.Regions), outcome.TotalArea)
			m.notifier.Enqueue(&notifications.Alert{
				Time:       frame.WallTime,
				Regions:    outcome.Regions,
				Resolution: [2]int{frame.Width, frame.Height},
				ImageID:    outcome.ImageID,
				ImagePath:  outcome.ImagePath,
			})
		}

		if m.detector.FrameCount()%statusEveryFrames == 0 {
			m.Log.Infof("Processed %v frames, %v alerts fired, mean deviation %.1f",
				m.detector.FrameCount(), m.alertsFired.Load(), m.detector.MeanDeviation(frame))
		}
	}
	close(m.looperStopped)
}
