package reconcile

// Config holds reconciliation run defaults.
type Config struct {
	// LOD is the report level of detail: ALL_FULL, ALL_MID, MISMATCH or SUMMARY.
	LOD string `mapstructure:"lod" default:"SUMMARY"`
	// ReportDir is where JSON reports are written. Empty disables report files.
	ReportDir string `mapstructure:"report_dir" default:""`
	// ParallelLoad reads the sheet and queries the store concurrently. Off by default.
	ParallelLoad bool `mapstructure:"parallel_load" default:"false"`
}
