// Package loader provides the plugin-like feature loading system.
//
// Each feature implements the Feature interface, which names it, reports whether
// its collaborators are available and registers its routes.
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager keeps features in registration order; LoadAll loads the enabled ones.
// Features such as 'importer' and 'exporter' stay disabled when the server starts
// without a database.
package loader
