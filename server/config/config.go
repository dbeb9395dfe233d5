// Package config loads the YAML configuration file and validates it before
// the detection loop starts. The resulting Config is immutable for the
// lifetime of the process; changing a value requires a restart.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vigilcam/vigil/pkg/kibi"
	"github.com/vigilcam/vigil/pkg/loglevel"
)

type CameraConfig struct {
	FrameWidth  int `yaml:"frame_width"`
	FrameHeight int `yaml:"frame_height"`
	FPS         int `yaml:"fps"`
}

type MotionConfig struct {
	// Sensitivity controls the background model's adaptation speed and
	// classification threshold. Lower values adapt faster and classify more
	// pixels as foreground for the same change.
	Sensitivity     int `yaml:"sensitivity"`
	MinContourArea  int `yaml:"min_contour_area"`
	CooldownSeconds int `yaml:"motion_cooldown_seconds"`
	WarmupFrames    int `yaml:"warmup_frames"`
}

type StorageConfig struct {
	ImagesDir    string `yaml:"images_dir"`
	MaxImages    int    `yaml:"max_images"`
	MaxStorage   string `yaml:"max_storage"` // eg "200 MB". Empty = no byte limit.
	ImageQuality int    `yaml:"image_quality"`
}

type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Camera  CameraConfig  `yaml:"camera"`
	Motion  MotionConfig  `yaml:"motion"`
	Storage StorageConfig `yaml:"storage"`
	Email   EmailConfig   `yaml:"email"`
	Logging LoggingConfig `yaml:"logging"`

	// MaxStorageBytes is Storage.MaxStorage parsed. 0 = no byte limit.
	MaxStorageBytes int64 `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			FrameWidth:  640,
			FrameHeight: 480,
			FPS:         30,
		},
		Motion: MotionConfig{
			Sensitivity:     40,
			MinContourArea:  800,
			CooldownSeconds: 45,
			WarmupFrames:    30,
		},
		Storage: StorageConfig{
			ImagesDir:    "images",
			MaxImages:    50,
			ImageQuality: 90,
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads filename and validates the result. Any invariant violation is
// returned as an error here, so that bad configuration can never surface
// mid-stream.
func Load(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("Error parsing %v: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid config %v: %w", filename, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Camera.FrameWidth <= 0 || c.Camera.FrameHeight <= 0 {
		return fmt.Errorf("frame_width and frame_height must be positive (got %vx%v)", c.Camera.FrameWidth, c.Camera.FrameHeight)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("fps must be positive (got %v)", c.Camera.FPS)
	}
	if c.Motion.Sensitivity <= 0 {
		return fmt.Errorf("sensitivity must be positive (got %v)", c.Motion.Sensitivity)
	}
	if c.Motion.MinContourArea < 0 {
		return fmt.Errorf("min_contour_area may not be negative (got %v)", c.Motion.MinContourArea)
	}
	if c.Motion.CooldownSeconds < 0 {
		return fmt.Errorf("motion_cooldown_seconds may not be negative (got %v)", c.Motion.CooldownSeconds)
	}
	if c.Motion.WarmupFrames < 0 {
		return fmt.Errorf("warmup_frames may not be negative (got %v)", c.Motion.WarmupFrames)
	}
	if c.Storage.MaxImages <= 0 {
		return fmt.Errorf("max_images must be positive (got %v)", c.Storage.MaxImages)
	}
	if c.Storage.ImageQuality < 1 || c.Storage.ImageQuality > 100 {
		return fmt.Errorf("image_quality must be in 1..100 (got %v)", c.Storage.ImageQuality)
	}
	if c.Storage.ImagesDir == "" {
		return fmt.Errorf("images_dir may not be empty")
	}
	if c.Storage.MaxStorage != "" {
		n, err := kibi.Parse(c.Storage.MaxStorage)
		if err != nil {
			return fmt.Errorf("max_storage '%v': %w", c.Storage.MaxStorage, err)
		}
		c.MaxStorageBytes = n
	}
	if c.Email.Enabled {
		if c.Email.SMTPHost == "" || c.Email.From == "" || c.Email.To == "" {
			return fmt.Errorf("email is enabled, but smtp_host, from and to are not all set")
		}
		if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
			return fmt.Errorf("smtp_port %v is out of range", c.Email.SMTPPort)
		}
	}
	if _, err := loglevel.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	abs, err := filepath.Abs(c.Storage.ImagesDir)
	if err != nil {
		return fmt.Errorf("images_dir '%v': %w", c.Storage.ImagesDir, err)
	}
	c.Storage.ImagesDir = abs
	return nil
}
