// Package store defines the data store collaborator used by the resolver, the
// reconciliation engine and the exporter.
//
// An Entity carries ordered field metadata. Relation fields name their target
// entity, and collection relations are multi-valued. Rows are plain maps: a to-one
// relation holds the target identity and a collection holds a slice of identities.
//
// Two implementations are provided:
//   - memstore: an in-memory store, used by tests and fixtures
//   - dbstore: a GORM-backed store that derives entity metadata from the database catalog
package store
