// Package reconcile pairs spreadsheet rows with store rows and classifies their differences.
//
// Sheets are reconciled one at a time in the order computed by the schema resolver, so that
// every sheet referenced by a relation column is already reconciled when the relation is
// checked. For each sheet the engine:
//
//  1. reads the sheet and queries the store (concurrently by default),
//  2. keys both sides by a composite index built from the dataset's index key, rendering
//     relation keys as the referenced record's natural key,
//  3. classifies records as EXTERNAL_ONLY, STORE_ONLY, MATCHED_EQUAL, MATCHED_MISMATCH
//     or UNRESOLVABLE, comparing matched pairs field by field,
//  4. optionally commits sheet-only and mismatched records through an upsert.
//
// Commits never write a relation that failed to resolve. Without ForceUpdate, a relation
// is only written when its target is itself stable. Refused writes are collected in
// DatasetResult.Unresolved.
//
// # Usage
//
//	engine, err := reconcile.NewEngine(st, workbook, logger, reconcile.Options{Update: true})
//	rc, err := engine.Run(ctx, model)
//	for _, result := range rc.Results() {
//	    fmt.Println(result.Sheet, result.Counts())
//	}
package reconcile
