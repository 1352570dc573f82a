package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/flagx"
	"github.com/dmitrijs2005/boatlog/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration file.
// Durations accept "15m" style strings or integer nanoseconds; absent
// fields leave the current value alone.
type JsonConfig struct {
	HTTPAddr              string         `json:"http_addr"`
	HealthAddr            string         `json:"health_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	PhotoURLExpiry        timex.Duration `json:"photo_url_expiry"`
	UserCacheSize         int            `json:"user_cache_size"`
	UserCacheTTL          timex.Duration `json:"user_cache_ttl"`
	DBCheckInterval       timex.Duration `json:"db_check_interval"`
	LogLevel              string         `json:"log_level"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

// parseJson overlays config with the JSON file named by -c or -config in
// args. A missing flag loads nothing; unreadable or invalid files panic.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigPath(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.HealthAddr, c.HealthAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	if c.UserCacheSize > 0 {
		config.UserCacheSize = c.UserCacheSize
	}

	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setDuration(&config.PhotoURLExpiry, c.PhotoURLExpiry)
	setDuration(&config.UserCacheTTL, c.UserCacheTTL)
	setDuration(&config.DBCheckInterval, c.DBCheckInterval)
}
