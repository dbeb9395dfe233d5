package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"

	"github.com/vigilcam/vigil/pkg/geom"
	"github.com/vigilcam/vigil/pkg/loglevel"
	"github.com/vigilcam/vigil/server"
	"github.com/vigilcam/vigil/server/camera"
	"github.com/vigilcam/vigil/server/config"
)

func main() {
	// This is purely for documentation of the cmd-line args
	nominalDefaultConfig := "$HOME/vigil/config.yaml"

	parser := argparse.NewParser("vigil", "Motion detection and alerting service")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Configuration file", Default: nominalDefaultConfig})
	imagesDir := parser.String("", "images", &argparse.Options{Help: "Override the snapshot directory from the config file", Default: ""})
	once := parser.Flag("", "once", &argparse.Options{Help: "Process a fixed number of synthetic frames and exit (demo mode)", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	home, _ := os.UserHomeDir()
	if home == "" {
		home = "/var/lib"
	}
	actualDefaultConfig := filepath.Join(home, "vigil", "config.yaml")
	if *configFile == nominalDefaultConfig {
		*configFile = actualDefaultConfig
	}

	var cfg *config.Config
	if _, statErr := os.Stat(*configFile); os.IsNotExist(statErr) && *configFile == actualDefaultConfig {
		// No config file at the default location: run on built-in defaults
		logger.Infof("No config file at %v, using defaults", *configFile)
		cfg = config.Default()
		if err := cfg.Validate(); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	} else {
		cfg, err = config.Load(*configFile)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	}
	if *imagesDir != "" {
		abs, err := filepath.Abs(*imagesDir)
		if err != nil {
			logger.Errorf("Invalid images directory '%v': %v", *imagesDir, err)
			os.Exit(1)
		}
		cfg.Storage.ImagesDir = abs
	}

	// Level string was validated during config load
	minLevel, _ := loglevel.ParseLevel(cfg.Logging.Level)
	logger = loglevel.NewFilterLogger(logger, minLevel)

	// Frame acquisition is pluggable behind camera.FrameSource. Until a real
	// capture backend is wired in, we run the synthetic scene, which also
	// serves as the demo mode.
	maxFrames := 0
	if *once {
		maxFrames = cfg.Camera.FPS * 30
	}
	source := camera.NewSimSource(cfg.Camera.FrameWidth, cfg.Camera.FrameHeight, cfg.Camera.FPS, maxFrames)
	if *once {
		// Script an intrusion through the middle third of the run
		source.AddIntrusion(maxFrames/3, 2*maxFrames/3, geom.Rect{
			X:      cfg.Camera.FrameWidth / 4,
			Y:      cfg.Camera.FrameHeight / 4,
			Width:  cfg.Camera.FrameWidth / 8,
			Height: cfg.Camera.FrameHeight / 8,
		}, 220)
	}

	srv, err := server.NewServer(logger, cfg, source)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.Start()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-signals:
		logger.Infof("Received signal %v", sig)
	case <-srv.Done():
	}
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	srv.Shutdown()
}
