package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"sheet-reconciler/core/logger"
	"sheet-reconciler/core/mapping"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X sheet-reconciler/cmd.version=...".
var version = "dev"

// mappingFile overrides the configured mapping document for every command.
var mappingFile string

// errUnresolved marks an import that left records uncommitted.
var errUnresolved = errors.New("records left unresolved")

// Exit codes.
const (
	exitFailure    = 1
	exitConfig     = 2
	exitUnresolved = 3
	exitCanceled   = 130
)

// RootCmd is the sheet-reconciler command tree.
var RootCmd = &cobra.Command{
	Use:   "sheet-reconciler",
	Short: "Spreadsheet reconciliation service",
	Long: `Sheet Reconciler keeps a relational database and spreadsheet workbooks in agreement.
A mapping document declares which tables, fields and relations each sheet holds.
Workbooks are read from local paths or from S3 locations (s3://bucket/object).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and exits with a code describing the failure.
func Execute() {
	err := RootCmd.Execute()
	if err == nil {
		return
	}
	code := exitCode(err)

	l, logErr := logger.New(&logger.Config{Level: "info", Format: "console"})
	if logErr != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
	l.Error("Command failed", zap.Error(err), zap.Int("exit_code", code))
	_ = l.Sync()
	os.Exit(code)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, mapping.ErrInvalidConfig), errors.Is(err, mapping.ErrConfigNotFound):
		return exitConfig
	case errors.Is(err, errUnresolved):
		return exitUnresolved
	case errors.Is(err, context.Canceled):
		return exitCanceled
	default:
		return exitFailure
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&mappingFile, "config", "c", "", "Mapping document (defaults to MAPPING_FILE)")
}
