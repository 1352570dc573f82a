package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/queue"
)

// Config holds runtime settings for the boatlog client.
type Config struct {
	ServerURL      string
	HealthAddr     string
	RequestTimeout time.Duration

	DBPath   string
	PhotoDir string
	LogFile  string
	LogLevel string

	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	SyncWorkers         int
	// Metered defers photo uploads until an unmetered network is available.
	Metered bool

	FragmentSize int

	QueueMaxAttempts int
	QueueRetention   time.Duration

	// MetricsAddr serves /metrics from the daemon when set.
	MetricsAddr string
}

// dataDir is where the database, photos and log live by default.
func dataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "boatlog")
	}
	return ".boatlog"
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	dir := dataDir()
	p := queue.DefaultPolicy()

	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.RequestTimeout = 15 * time.Second
	c.DBPath = filepath.Join(dir, "boatlog.db")
	c.PhotoDir = filepath.Join(dir, "photos")
	c.LogFile = filepath.Join(dir, "boatlog.log")
	c.LogLevel = "info"
	c.OnlineCheckInterval = 10 * time.Second
	c.SyncInterval = 5 * time.Minute
	c.SyncWorkers = 4
	c.FragmentSize = 800
	c.QueueMaxAttempts = p.MaxAttempts
	c.QueueRetention = p.Retention
}

// QueuePolicy is the default retry policy with the configured limits.
func (c *Config) QueuePolicy() queue.Policy {
	p := queue.DefaultPolicy()
	if c.QueueMaxAttempts > 0 {
		p.MaxAttempts = c.QueueMaxAttempts
	}
	if c.QueueRetention > 0 {
		p.Retention = c.QueueRetention
	}
	return p
}

// ValidateDaemon checks the settings the background loops depend on.
func (c *Config) ValidateDaemon() error {
	var errs []error
	if c.SyncInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync-interval must be positive, got %s", c.SyncInterval))
	}
	if c.OnlineCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("online-interval must be positive, got %s", c.OnlineCheckInterval))
	}
	return errors.Join(errs...)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the JSON file named by -c/-config in args. Command-line flags are bound
// afterwards with BindFlags and take precedence.
func LoadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	return cfg
}
