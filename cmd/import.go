package cmd

import (
	"fmt"
	"os"

	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/report"
	"sheet-reconciler/core/tabular"
	"sheet-reconciler/feature/importer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the import command
	importWorkbook string
	importDryRun   bool
	importUpdate   bool
	importForce    bool
	importLOD      string
	importJSON     bool
)

// importCmd reconciles a workbook against the database.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Reconcile a workbook against the database",
	Long: `Compares every mapped sheet of the workbook with the database, in dependency order.

Without an update flag nothing is written. --update commits new and changed rows whose
references are stable; --force also commits rows referencing records that are changing.

Examples:
  # Report only
  import -c mapper.yml -x book.xlsx

  # Commit changes, full report
  import -c mapper.yml -x book.xlsx -u -l ALL_FULL

  # Workbook in object storage
  import -c mapper.yml -x s3://workbooks/book.xlsx -f --json`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importWorkbook, "workbook", "x", "", "Workbook path or s3://bucket/object (defaults to MAPPING_WORKBOOK)")
	importCmd.Flags().BoolVarP(&importDryRun, "dry-run", "d", false, "Compare only")
	importCmd.Flags().BoolVarP(&importUpdate, "update", "u", false, "Commit new and changed rows")
	importCmd.Flags().BoolVarP(&importForce, "force", "f", false, "Commit even when referenced records are changing")
	importCmd.Flags().StringVarP(&importLOD, "lod", "l", "", "Report level of detail: 0-3 or ALL_FULL, ALL_MID, MISMATCH, SUMMARY")
	importCmd.Flags().BoolVar(&importJSON, "json", false, "Print the report as JSON")
	RootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	opts := reconcile.Options{DryRun: importDryRun, Update: importUpdate, ForceUpdate: importForce}
	if err := opts.Validate(); err != nil {
		return err
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	lodFlag := importLOD
	if lodFlag == "" {
		lodFlag = a.cfg.Reconcile.LOD
	}
	lod, err := report.ParseLOD(lodFlag)
	if err != nil {
		return err
	}

	raw := importWorkbook
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

	wb, err := tabular.Open(ctx, client, loc)
	if err != nil {
		return err
	}
	defer wb.Close()

	svc := importer.NewService(a.store, a.models(), a.cfg.Mapping.File, a.cfg.Reconcile, a.log)
	r, err := svc.Import(ctx, importer.Request{
		Source:   wb,
		Workbook: loc.String(),
		Options:  opts,
		LOD:      lod,
	})
	if err != nil {
		return err
	}

	if importJSON {
		return r.WriteJSON(os.Stdout)
	}
	printReport(a.log, r)
	if r.Totals.Unresolved > 0 {
		return fmt.Errorf("%w: %d record(s) could not be committed", errUnresolved, r.Totals.Unresolved)
	}
	return nil
}

// printReport logs a report, one line per dataset and listed entry.
func printReport(l *zap.Logger, r *report.Report) {
	for _, d := range r.Datasets {
		l.Info("Dataset",
			zap.String("sheet", d.Sheet),
			zap.String("entity", d.Entity),
			zap.Int("sheet_rows", d.TotalExternal),
			zap.Int("store_rows", d.TotalStore),
			zap.Int("issues", d.Issues),
			zap.Int("created", d.Created),
			zap.Int("updated", d.Updated),
			zap.Any("counts", d.Counts))

		for _, e := range d.Entries {
			fields := []zap.Field{
				zap.String("sheet", d.Sheet),
				zap.String("index", e.Index),
				zap.String("status", string(e.Status)),
			}
			if e.Reason != "" {
				fields = append(fields, zap.String("reason", e.Reason))
			}
			for _, m := range e.Mismatches {
				fields = append(fields, zap.String("field."+m.Field, m.Message))
			}
			l.Info("Record", fields...)
		}

		for _, u := range d.Unresolved {
			l.Warn("Not committed",
				zap.String("sheet", d.Sheet),
				zap.String("index", u.Index),
				zap.String("field", u.Field),
				zap.String("reason", u.Reason))
		}
	}

	l.Info("Import summary",
		zap.String("mode", r.Run.Mode),
		zap.String("lod", r.LOD.String()),
		zap.Int("datasets", r.Totals.Datasets),
		zap.Int("issues", r.Totals.Issues),
		zap.Int("created", r.Totals.Created),
		zap.Int("updated", r.Totals.Updated),
		zap.Int("unresolved", r.Totals.Unresolved))
}
