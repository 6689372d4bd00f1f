// Package validator checks a mapping document against the store.
//
// It resolves the document, groups every configuration error by sheet and
// reports the order in which sheets would be processed.
//
// # HTTP Endpoints
//
//   - GET /mapping : Validates the configured mapping document.
package validator
