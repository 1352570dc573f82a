package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/flagx"
	"github.com/dmitrijs2005/boatlog/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent or
// zero fields leave the current value alone.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	HealthAddr          string         `json:"health_addr"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	DBPath              string         `json:"db_path"`
	PhotoDir            string         `json:"photo_dir"`
	LogFile             string         `json:"log_file"`
	LogLevel            string         `json:"log_level"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	SyncWorkers         int            `json:"sync_workers"`
	Metered             *bool          `json:"metered"`
	FragmentSize        int            `json:"fragment_size"`
	QueueMaxAttempts    int            `json:"queue_max_attempts"`
	QueueRetention      timex.Duration `json:"queue_retention"`
	MetricsAddr         string         `json:"metrics_addr"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

// parseJson overlays cfg with the JSON file named by -c or -config in args.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.HealthAddr, jc.HealthAddr)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.PhotoDir, jc.PhotoDir)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setInt(&cfg.SyncWorkers, jc.SyncWorkers)
	setInt(&cfg.FragmentSize, jc.FragmentSize)
	setInt(&cfg.QueueMaxAttempts, jc.QueueMaxAttempts)
	if jc.Metered != nil {
		cfg.Metered = *jc.Metered
	}

	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.SyncInterval, jc.SyncInterval)
	setDuration(&cfg.QueueRetention, jc.QueueRetention)
}
