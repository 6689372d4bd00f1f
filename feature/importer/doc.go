// Package importer reconciles an uploaded workbook against the store.
//
// The configured mapping document is resolved through the model cache, every
// sheet is reconciled in processing order and the outcome is returned as a
// report at the requested level of detail.
//
// # HTTP Endpoints
//
//   - POST /import : Reconciles the multipart "workbook" file.
//     Query parameters: mode (dry_run, update, force) and lod (0-3 or a level name).
package importer
