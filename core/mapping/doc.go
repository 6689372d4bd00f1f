// Package mapping holds the typed model of the mapping document.
//
// A mapping document declares datasets (entity bindings, index keys and column
// patterns), sheets (named views over a dataset), filters (row views) and formatting
// defaults. Parsing is strict: unknown keys are rejected by the YAML decoder.
//
// Structural problems are recorded in an ErrorCollector, grouped per sheet, so a
// single run reports every problem in the document at once. Entity-dependent
// validation (column patterns, references, index keys) is done by the schema package.
//
// # Example
//
//	datasets:
//	  components:
//	    model_name: component
//	    index_key: [name]
//	    data:
//	      - columns: ["*"]
//	sheets:
//	  - sheet_name: Components
//	    dataset: components
package mapping
