// Package exporter writes the store's content to a workbook, one sheet per mapped sheet.
//
// Sheets are written in processing order. Relations are rendered as natural keys,
// so an exported workbook can be edited and imported back. Collections hold one
// "* key" line per referenced record. Columns relating to an earlier exported sheet
// get a drop-down over that sheet's index column.
//
// # HTTP Endpoints
//
//   - GET /export : Downloads the export as an xlsx file.
package exporter
