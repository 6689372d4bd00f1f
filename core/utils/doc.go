// Package utils provides loose value conversions shared by the store adapters,
// the reconciliation engine and the exporter. Spreadsheet cells arrive as strings
// while store values keep their driver types, so every comparison goes through here.
package utils
