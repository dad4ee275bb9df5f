package model

import (
	"sort"
	"strings"
)

// IndexField maps one field of an index to an attribute, optionally through a
// matcher, with an optional match quality in [0.0, 1.0].
//
// Path is the JSON-pointer form of the dotted field name ("name.keyword"
// becomes "/name/keyword"). PathParent drops the last segment; it is the
// fallback read location for multi-fields, which are not present in a
// document's _source. A single-segment field has no parent path.
type IndexField struct {
	name       string
	attribute  string
	matcher    string
	quality    *float64
	path       string
	pathParent string
}

// NewIndexField creates an index field mapping.
// matcher may be empty (the field is then never queried, only harvested).
// quality may be nil.
func NewIndexField(indexName, fieldName, attribute, matcher string, quality *float64) (*IndexField, error) {
	if strings.TrimSpace(fieldName) == "" {
		return nil, NewValidationError("'indices.%s.fields' has a field with an empty name", indexName)
	}
	if strings.TrimSpace(attribute) == "" {
		return nil, NewValidationError("'indices.%s.fields.%s.attribute' must not be empty", indexName, fieldName)
	}
	if matcher != "" && strings.TrimSpace(matcher) == "" {
		return nil, NewValidationError("'indices.%s.fields.%s.matcher' must not be empty", indexName, fieldName)
	}
	if quality != nil && (*quality < 0.0 || *quality > 1.0) {
		return nil, NewValidationError("'indices.%s.fields.%s.quality' must be in the range of 0.0 - 1.0", indexName, fieldName)
	}
	segments := strings.Split(fieldName, ".")
	path := "/" + strings.Join(segments, "/")
	pathParent := ""
	if len(segments) > 1 {
		pathParent = "/" + strings.Join(segments[:len(segments)-1], "/")
	}
	return &IndexField{
		name:       fieldName,
		attribute:  attribute,
		matcher:    matcher,
		quality:    quality,
		path:       path,
		pathParent: pathParent,
	}, nil
}

// Name returns the index field name.
func (f *IndexField) Name() string { return f.name }

// Attribute returns the attribute this field is mapped to.
func (f *IndexField) Attribute() string { return f.attribute }

// Matcher returns the matcher name, or "" if the field has none.
func (f *IndexField) Matcher() string { return f.matcher }

// Quality returns the optional match quality, or nil.
func (f *IndexField) Quality() *float64 { return f.quality }

// Path returns the JSON pointer into a document's _source.
func (f *IndexField) Path() string { return f.path }

// PathParent returns the JSON pointer with the last segment removed,
// or "" for single-segment fields.
func (f *IndexField) PathParent() string { return f.pathParent }

// Index describes one queryable index: its fields and the derived
// attribute → field-names lookup.
type Index struct {
	name            string
	fields          map[string]*IndexField
	attributeFields map[string][]string
}

// NewIndex creates an index from its field mappings and derives the
// attribute lookup. The derived map holds field names, not field copies;
// the fields map stays the single owner of the field objects.
func NewIndex(name string, fields map[string]*IndexField) (*Index, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewValidationError("'indices' has an index with an empty name")
	}
	if len(fields) == 0 {
		return nil, NewValidationError("'indices.%s.fields' must not be empty", name)
	}
	idx := &Index{
		name:            name,
		fields:          fields,
		attributeFields: map[string][]string{},
	}
	for fieldName, field := range fields {
		a := field.Attribute()
		idx.attributeFields[a] = append(idx.attributeFields[a], fieldName)
	}
	for _, names := range idx.attributeFields {
		sort.Strings(names)
	}
	return idx, nil
}

// Name returns the index name.
func (i *Index) Name() string { return i.name }

// Fields returns the field mappings keyed by field name.
func (i *Index) Fields() map[string]*IndexField { return i.fields }

// FieldNames returns the field names in lexicographic order.
func (i *Index) FieldNames() []string {
	names := make([]string, 0, len(i.fields))
	for name := range i.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldsForAttribute returns the names of the fields mapped to the attribute,
// in lexicographic order. The slice must not be mutated.
func (i *Index) FieldsForAttribute(attribute string) []string {
	return i.attributeFields[attribute]
}
