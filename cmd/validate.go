package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/feature/validator"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validateJSON bool

// validateCmd checks a mapping document against the database.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a mapping document",
	Long: `Resolves the mapping document against the database schema and reports every
configuration error, grouped by sheet, together with the processing order.

Examples:
  validate -c mapper.yml
  validate -c mapper.yml --json`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the result as JSON")
	RootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	doc, err := mapping.Load(a.cfg.Mapping.File)
	if err != nil {
		return err
	}
	model, err := schema.NewResolver(a.store, a.log).Resolve(ctx, doc)
	if err != nil {
		return err
	}
	result := validator.Summarize(model, a.cfg.Mapping.File)

	if validateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	}

	for _, label := range result.Labels {
		for _, e := range result.Errors[label] {
			a.log.Error("Configuration error",
				zap.String("sheet", label),
				zap.String("field", e.Field),
				zap.String("message", e.Message),
				zap.Any("extra", e.Extra))
		}
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s has %d error(s)", mapping.ErrInvalidConfig, result.Source, model.Errors.Len())
	}

	a.log.Info("Mapping document is valid",
		zap.String("source", result.Source),
		zap.Strings("order", result.Order))
	return nil
}
