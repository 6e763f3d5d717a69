// Package config provides configuration loading and validation for ossd.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (OSSD_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with OSSD_ prefix:
//   - server.port → OSSD_SERVER_PORT
//   - database.type → OSSD_DATABASE_TYPE
//   - storage.path → OSSD_STORAGE_PATH
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port and shutdown_timeout
//   - Engine: cleanup_timeout for orphan cleanup after failed commits
//   - Database: type, DSN, and table name
//   - Storage: content store root path
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level and format
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Database type must be sqlite or postgres (checked at connect time)
//   - Log level must be debug, info, warn, or error
//   - Log format must be text or json
package config
