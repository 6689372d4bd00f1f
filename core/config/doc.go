// Package config provides configuration management for the reconciler.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file. Defaults come from the `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Server: HTTP server settings (port, API key, body limit)
//   - Database: connection details of the reconciled store (mysql or sqlite)
//   - Storage: S3/MinIO credentials and bucket for remote workbooks
//   - Log: Logging level and format
//   - Mapping: mapping document path, default workbook, model cache TTL
//   - Reconcile: report level of detail, report directory, parallel loading
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Mapping.File)
package config
