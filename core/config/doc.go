// Package config provides configuration management for envdiff.
//
// It uses Viper with environment variables and an optional .env file loaded
// through godotenv. Defaults live in the 'default' struct tags of each
// section and are registered by reflection so every key can be overridden
// from the environment (console.url -> CONSOLE_URL).
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Console: management console URL, credentials, timeout and verbosity
//   - Sync: default concurrency and check list for reconciliation
//   - Server: HTTP server port, API key and snapshot cache lifetime
//   - Storage: S3/MinIO credentials and the dump bucket
//   - Database: MySQL or SQLite connection for schema inspection
//   - Log: logging level and format
//
// Command-line flags take precedence over every value loaded here.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    return err
//	}
//	client, err := console.NewClient(cfg.Console, logger)
package config
