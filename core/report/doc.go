// Package report turns reconciliation results into a structured, JSON-encodable report.
//
// The level of detail decides which records are listed: ALL_FULL lists every record with
// its rows, ALL_MID every record without rows, MISMATCH only records that disagree with
// the store, and SUMMARY totals only. Refused commits are always listed.
package report
