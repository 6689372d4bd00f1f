// Package sequence orders sheets so that every referenced sheet is reconciled
// before the sheets that chase references into it.
package sequence
