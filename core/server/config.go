package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// BodyLimitMB caps uploaded workbook size in megabytes.
	BodyLimitMB int `mapstructure:"body_limit_mb" default:"16"`
}

// BodyLimit returns the request body limit in bytes, falling back to 16 MB.
func (c Config) BodyLimit() int {
	if c.BodyLimitMB <= 0 {
		return 16 << 20
	}
	return c.BodyLimitMB << 20
}
