package cmd

import (
	"sheet-reconciler/core/tabular"
	"sheet-reconciler/feature/exporter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportWorkbook  string
	exportOverwrite bool
)

// exportCmd writes the database content to a workbook.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the database to a workbook",
	Long: `Writes one sheet per mapped sheet, in dependency order, with relations rendered
as natural keys. An existing local file is kept unless --overwrite is given.

Examples:
  export -c mapper.yml -x out.xlsx
  export -c mapper.yml -x s3://workbooks/out.xlsx`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportWorkbook, "workbook", "x", "", "Output path or s3://bucket/object (defaults to MAPPING_WORKBOOK)")
	exportCmd.Flags().BoolVarP(&exportOverwrite, "overwrite", "o", false, "Replace an existing file")
	RootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	raw := exportWorkbook
	if raw == "" {
		raw = a.cfg.Mapping.Workbook
	}
	loc, err := tabular.ParseLocation(raw)
	if err != nil {
		return err
	}
	client, err := a.storageFor(loc)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	svc := exporter.NewService(a.store, a.models(), a.cfg.Mapping.File, a.log)
	stats, err := svc.ExportTo(ctx, client, loc, exportOverwrite)
	if err != nil {
		return err
	}

	total := 0
	for _, s := range stats {
		total += s.Rows
	}
	a.log.Info("Export completed",
		zap.String("workbook", loc.String()),
		zap.Int("sheets", len(stats)),
		zap.Int("rows", total))
	return nil
}
