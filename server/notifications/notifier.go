// Package notifications delivers motion alerts out of band. The frame loop
// hands fired alerts to a bounded queue and moves on; a single worker
// goroutine performs the (latency-variable) dispatch, so a slow SMTP server
// can never stall frame processing.
package notifications

import (
	"time"

	"github.com/cyclopcam/logs"

	"github.com/vigilcam/vigil/server/alertdb"
	"github.com/vigilcam/vigil/server/motion"
)

// Alert is one fired detection, queued for dispatch.
type Alert struct {
	RecordID   int64 // alertdb row id
	Time       time.Time
	Regions    []motion.Region
	Resolution [2]int
	ImageID    int64  // 0 if the snapshot could not be saved
	ImagePath  string // "" if the snapshot could not be saved
}

// Dispatcher sends one alert notification. Implementations must tolerate an
// empty ImagePath (storage failure) by sending the alert without attachment.
type Dispatcher interface {
	Notify(alert *Alert) error
}

// Notifier owns the dispatch queue and worker.
// The producer (the frame loop) must be stopped before Close is called.
type Notifier struct {
	ShutdownComplete chan bool // Closed once the queue has been flushed and the worker has exited

	log        logs.Log
	alertDB    *alertdb.AlertDB
	dispatcher Dispatcher // nil means log-only delivery
	queue      chan *Alert
}

func NewNotifier(logger logs.Log, alertDB *alertdb.AlertDB, dispatcher Dispatcher, queueSize int) *Notifier {
	if queueSize < 1 {
		queueSize = 16
	}
	n := &Notifier{
		ShutdownComplete: make(chan bool),
		log:              logger,
		alertDB:          alertDB,
		dispatcher:       dispatcher,
		queue:            make(chan *Alert, queueSize),
	}
	go n.run()
	return n
}

// Enqueue records the alert and hands it to the dispatch worker without
// blocking. If the queue is full, the oldest queued alert is dropped from
// the queue with a warning; its database record stays undelivered, so it is
// never lost silently.
func (n *Notifier) Enqueue(alert *Alert) {
	detail := &alertdb.AlertDetail{
		Resolution: alert.Resolution,
		TotalArea:  motion.TotalArea(alert.Regions),
	}
	for _, r := range alert.Regions {
		detail.Regions = append(detail.Regions, alertdb.RegionJSON{
			X:      r.Box.X,
			Y:      r.Box.Y,
			Width:  r.Box.Width,
			Height: r.Box.Height,
			Area:   r.Area,
		})
	}
	rec, err := n.alertDB.Add(alert.Time, alert.ImageID, detail)
	if err != nil {
		n.log.Errorf("Failed to record alert: %v", err)
	} else {
		alert.RecordID = rec.ID
	}

	for {
		select {
		case n.queue <- alert:
			return
		default:
		}
		select {
		case dropped := <-n.queue:
			n.log.Warnf("Dispatch queue full, dropping alert %v from %v (left undelivered)", dropped.RecordID, dropped.Time)
		default:
		}
	}
}

// Close flushes the queue and waits for the worker to exit.
// Any alert still undelivered after the flush has its failure recorded.
func (n *Notifier) Close() {
	close(n.queue)
	<-n.ShutdownComplete
}

func (n *Notifier) run() {
	for alert := range n.queue {
		n.deliver(alert)
	}
	close(n.ShutdownComplete)
}

func (n *Notifier) deliver(alert *Alert) {
	if n.dispatcher == nil {
		// Log-only delivery: the snapshot on disk and this line are the alert
		n.log.Infof("Motion alert at %v: %v region(s), snapshot %v", alert.Time, len(alert.Regions), alert.ImagePath)
		n.markDelivered(alert)
		return
	}
	if err := n.dispatcher.Notify(alert); err != nil {
		n.log.Errorf("Failed to dispatch alert %v: %v", alert.RecordID, err)
		if alert.RecordID != 0 {
			if dbErr := n.alertDB.MarkFailed(alert.RecordID, err.Error()); dbErr != nil {
				n.log.Errorf("Failed to record dispatch failure for alert %v: %v", alert.RecordID, dbErr)
			}
		}
		return
	}
	n.markDelivered(alert)
}

func (n *Notifier) markDelivered(alert *Alert) {
	if alert.RecordID == 0 {
		return
	}
	if err := n.alertDB.MarkDelivered(alert.RecordID); err != nil {
		n.log.Errorf("Failed to mark alert %v delivered: %v", alert.RecordID, err)
	}
}
