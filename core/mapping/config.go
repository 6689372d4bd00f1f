package mapping

// Config holds the application settings that locate the mapping document.
type Config struct {
	// File is the path of the mapping document.
	File string `mapstructure:"file" default:"mapper.yml"`
	// Workbook is the default workbook location, a local path or s3://bucket/object.
	Workbook string `mapstructure:"workbook" default:"workbook.xlsx"`
	// CacheTTLSeconds is how long the HTTP features reuse a resolved model.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"60"`
}
