package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"sheet-reconciler/core/database"
	"sheet-reconciler/core/logger"
	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/report"
	"sheet-reconciler/core/server"
	"sheet-reconciler/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage holding remote workbooks.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the reconciled database.
	Database database.Config `mapstructure:"database"`
	// Mapping locates the mapping document and the default workbook.
	Mapping mapping.Config `mapstructure:"mapping"`
	// Reconcile holds the defaults of reconciliation runs.
	Reconcile reconcile.Config `mapstructure:"reconcile"`
}

// LoadConfig loads configuration from environment variables and the .env file in dir.
// Variables already set in the environment are overridden by the file.
func LoadConfig(dir string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	bindDefaults(v, reflect.TypeOf(Config{}), "")

	// SERVER_PORT -> server.port
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would only fail later, mid-run.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case database.DriverMySQL, database.DriverSQLite:
	default:
		return fmt.Errorf("invalid database.driver %q, expected %s or %s",
			c.Database.Driver, database.DriverMySQL, database.DriverSQLite)
	}
	if _, err := report.ParseLOD(c.Reconcile.LOD); err != nil {
		return fmt.Errorf("invalid reconcile.lod: %w", err)
	}
	if strings.TrimSpace(c.Mapping.File) == "" {
		return fmt.Errorf("mapping.file is required")
	}
	return nil
}

// bindDefaults registers every `mapstructure` key of t with its `default` tag.
// Keys are registered even with an empty default so AutomaticEnv can see them.
func bindDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			bindDefaults(v, field.Type, key)
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
