package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers every setting on fs with the current values as
// defaults, so flags override JSON which overrides built-in defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to JSON config file")

	fs.StringVarP(&c.ServerURL, "server", "a", c.ServerURL, "base URL of the boatlog server")
	fs.StringVar(&c.HealthAddr, "health-addr", c.HealthAddr, "gRPC health endpoint used for online checks")
	fs.DurationVar(&c.RequestTimeout, "timeout", c.RequestTimeout, "timeout of one server request")

	fs.StringVar(&c.DBPath, "db", c.DBPath, "path to the local database")
	fs.StringVar(&c.PhotoDir, "photo-dir", c.PhotoDir, "directory photos are copied into")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "log file, rotated automatically")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")

	fs.DurationVarP(&c.OnlineCheckInterval, "online-interval", "i", c.OnlineCheckInterval, "online status check interval")
	fs.DurationVar(&c.SyncInterval, "sync-interval", c.SyncInterval, "automatic sync interval of the daemon")
	fs.IntVar(&c.SyncWorkers, "workers", c.SyncWorkers, "entity types synced in parallel")
	fs.BoolVar(&c.Metered, "metered", c.Metered, "treat the network as metered and hold back photo uploads")

	fs.IntVar(&c.FragmentSize, "fragment-size", c.FragmentSize, "payload characters per share chunk")

	fs.IntVar(&c.QueueMaxAttempts, "max-attempts", c.QueueMaxAttempts, "delivery attempts before a change is parked")
	fs.DurationVar(&c.QueueRetention, "retention", c.QueueRetention, "how long delivered changes are kept")

	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve prometheus metrics on this address in daemon mode")
}
