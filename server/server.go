// Package server assembles the pieces of the surveillance service: config,
// image retention, alert records, dispatch, and the frame loop.
package server

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/vigilcam/vigil/server/alertdb"
	"github.com/vigilcam/vigil/server/camera"
	"github.com/vigilcam/vigil/server/config"
	"github.com/vigilcam/vigil/server/imagestore"
	"github.com/vigilcam/vigil/server/monitor"
	"github.com/vigilcam/vigil/server/motion"
	"github.com/vigilcam/vigil/server/notifications"
)

// Size of the alert dispatch queue. Alerts are throttled by the cooldown
// gate, so a deep queue here would only mask a dead SMTP server.
const dispatchQueueSize = 16

type Server struct {
	Log        logs.Log
	Config     *config.Config
	ImageStore *imagestore.Store
	AlertDB    *alertdb.AlertDB
	Monitor    *monitor.Monitor

	source   camera.FrameSource
	notifier *notifications.Notifier
}

// NewServer opens storage and wires the pipeline, but does not start the
// frame loop. The source is owned by the server from here on, and is closed
// during Shutdown.
func NewServer(logger logs.Log, cfg *config.Config, source camera.FrameSource) (*Server, error) {
	images, err := imagestore.Open(logger, cfg.Storage.ImagesDir, imagestore.Options{
		MaxImages:    cfg.Storage.MaxImages,
		MaxBytes:     cfg.MaxStorageBytes,
		ImageQuality: cfg.Storage.ImageQuality,
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to open image store: %w", err)
	}

	alerts, err := alertdb.NewAlertDB(logger, filepath.Join(cfg.Storage.ImagesDir, "alerts.sqlite"))
	if err != nil {
		images.Close()
		return nil, err
	}

	var dispatcher notifications.Dispatcher
	if cfg.Email.Enabled {
		d, err := notifications.NewEmailDispatcher(logger, cfg.Email)
		if err != nil {
			alerts.Close()
			images.Close()
			return nil, err
		}
		dispatcher = d
		logger.Infof("Email alerts enabled, to %v via %v:%v", cfg.Email.To, cfg.Email.SMTPHost, cfg.Email.SMTPPort)
	} else {
		logger.Infof("Email alerts disabled, alerts are logged and retained only")
	}

	notifier := notifications.NewNotifier(logger, alerts, dispatcher, dispatchQueueSize)

	detector := motion.NewDetector(logger, motion.DetectorConfig{
		Sensitivity:    cfg.Motion.Sensitivity,
		MinContourArea: cfg.Motion.MinContourArea,
		Cooldown:       time.Duration(cfg.Motion.CooldownSeconds) * time.Second,
		WarmupFrames:   cfg.Motion.WarmupFrames,
	}, images)
	mon := monitor.NewMonitor(logger, source, detector, notifier)

	return &Server{
		Log:        logger,
		Config:     cfg,
		ImageStore: images,
		AlertDB:    alerts,
		Monitor:    mon,
		source:     source,
		notifier:   notifier,
	}, nil
}

// Start the frame loop
func (s *Server) Start() {
	s.Log.Infof("Monitoring %vx%v @ %v fps, sensitivity %v, min area %v px, cooldown %vs",
		s.Config.Camera.FrameWidth, s.Config.Camera.FrameHeight, s.Config.Camera.FPS,
		s.Config.Motion.Sensitivity, s.Config.Motion.MinContourArea, s.Config.Motion.CooldownSeconds)
	s.Monitor.Start()
}

// Done is closed when the frame loop exits on its own (end of stream).
func (s *Server) Done() chan bool {
	return s.Monitor.Done()
}

// Shutdown stops the frame loop, flushes the dispatch queue, and closes
// storage. Alerts that could not be delivered are called out in the log so
// that nothing disappears silently.
func (s *Server) Shutdown() {
	s.Log.Infof("Shutting down")
	s.Monitor.Stop()
	s.source.Close()
	s.notifier.Close()

	if pending, err := s.AlertDB.Undelivered(); err == nil && len(pending) != 0 {
		s.Log.Warnf("%v alert(s) were not delivered:", len(pending))
		for _, a := range pending {
			s.Log.Warnf("  alert %v at %v: %v", a.ID, a.Time.Get(), a.DeliveryError)
		}
	}

	s.AlertDB.Close()
	s.ImageStore.Close()
	s.Log.Infof("Shutdown complete")
	s.Log.Close()
}
