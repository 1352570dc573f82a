// Package config loads runtime configuration for the boatlog client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or --config.
//  3. Command-line flags registered by (*Config).BindFlags.
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "https://boatlog.example",
//	  "health_addr": "boatlog.example:50051",
//	  "db_path": "/var/lib/boatlog/boatlog.db",
//	  "online_check_interval": "10s",
//	  "sync_interval": "5m",
//	  "sync_workers": 4,
//	  "metered": true,
//	  "fragment_size": 800,
//	  "queue_max_attempts": 10,
//	  "queue_retention": "168h"
//	}
package config
