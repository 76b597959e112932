// Package config provides centralized configuration management for the
// betadrift analyzer. It handles loading configuration from multiple
// sources, validation, and provides a type-safe API for accessing
// configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern BETADRIFT_* for namespacing:
//
//	BETADRIFT_DATA_CSV_PATH=data/pair_prices.csv
//	BETADRIFT_DATA_X_SYMBOL=GFI
//	BETADRIFT_SAMPLER_CHAINS=4
//	BETADRIFT_LOGGING_LEVEL=debug
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Command-line flags in cmd/ binaries override loaded values after Load
// returns, so the precedence seen by the user is flags > env > file >
// defaults.
package config
