// Package middleware groups the HTTP middleware of the Fiber application.
//
//   - auth: API key validation (X-API-Key). An empty configured key disables it.
//   - rayid: tags every request with a ray id, stored in the "ray_id" local and
//     echoed in the X-Ray-ID header, so logger.WithRayID can trace it.
//
// Register rayid first so every later handler and log line carries the id.
package middleware
