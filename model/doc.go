// Package model defines the entity model: the declarative description of how
// attribute values may be matched against index fields.
//
// # Sections
//
// A model document has four required sections:
//
//   - attributes: logical fields of the entity and their types
//   - matchers: reusable clause templates with {{ field }}, {{ value }}, and
//     named parameter placeholders
//   - resolvers: conjunctions of attributes that link a document to an entity
//   - indices: per-index mappings from index fields to attributes and matchers
//
// # Parsing
//
//	m, err := model.Parse(doc)
//
// Parse validates names (no periods), cross-references (resolver attributes
// must exist), and per-field constraints, returning *ValidationError on any
// violation. A parsed Model is immutable and safe for concurrent use.
package model
