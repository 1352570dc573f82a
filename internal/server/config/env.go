package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envFile names the dotenv file to load, ".env" unless BOATLOG_ENV_FILE is set.
func envFile() string {
	if p := os.Getenv("BOATLOG_ENV_FILE"); p != "" {
		return p
	}
	return ".env"
}

// parseEnv loads path into the process environment without overriding
// variables that are already set, then overlays cfg with every BOATLOG_*
// variable present. A missing file is not an error.
func parseEnv(cfg *Config, path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
}
