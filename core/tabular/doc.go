// Package tabular reads and writes the spreadsheet side of a reconciliation.
//
// A sheet is seen as a Table: the first row holds the headers and the rows below it are data,
// up to the first row whose first cell is blank. Sheet names match ignoring case.
//
// Workbook implements Reader and Writer over xlsx files using excelize; Memory is the
// in-memory equivalent used by tests. Workbooks can live on disk or in object storage,
// addressed as s3://bucket/object:
//
//	loc, _ := tabular.ParseLocation("s3://workbooks/inventory.xlsx")
//	wb, err := tabular.Open(ctx, client, loc)
package tabular
