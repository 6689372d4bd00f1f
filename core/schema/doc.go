// Package schema resolves a mapping document against live entity metadata.
//
// Resolution expands column patterns into concrete fields, resolves reference
// expressions into entity field paths, validates index keys, fans wildcard sheets
// out into one sheet per model and sequences sheets so referenced data is
// reconciled first.
//
// # Column patterns
//
//   - "*" selects every field of the entity in its natural order
//   - "prefix*" selects the fields starting with prefix
//   - any other value selects that one field
//
// A field selected by a later pattern moves to that pattern's position and takes its
// references and formatting.
//
// # References
//
// "$model.<path>" is relative to the field's related entity, "<entity>.<path>" names it
// explicitly. Paths may hop through further relations and may end with "pk", the
// identity marker. Relation fields without a reference get "$model.pk".
//
// # Errors
//
// Only a missing entity or a store failure aborts resolution. Everything else is
// collected in Model.Errors so the whole document can be validated in one pass.
package schema
