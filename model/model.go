package model

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/hupe1980/entigo/codec"
)

// Attribute types supported by the engine.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeDate    = "date"
)

func validAttributeType(t string) bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDate:
		return true
	}
	return false
}

// Attribute is a named logical field of an entity with a type.
type Attribute struct {
	name string
	typ  string
}

// NewAttribute creates an attribute definition. An empty type defaults to
// "string".
func NewAttribute(name, typ string) (*Attribute, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewValidationError("'attributes' has an attribute with an empty name")
	}
	if strings.Contains(name, ".") {
		return nil, NewValidationError("'attributes.%s' must not have periods in its name", name)
	}
	if typ == "" {
		typ = TypeString
	}
	if !validAttributeType(typ) {
		return nil, NewValidationError("'attributes.%s.type' has an unsupported type '%s'", name, typ)
	}
	return &Attribute{name: name, typ: typ}, nil
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.name }

// Type returns the attribute type.
func (a *Attribute) Type() string { return a.typ }

// Resolver is a conjunction of attributes that, when all matched on a
// document, links that document to the entity.
type Resolver struct {
	name       string
	attributes []string
}

// NewResolver creates a resolver over an ordered, non-empty attribute list.
func NewResolver(name string, attributes []string) (*Resolver, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewValidationError("'resolvers' has a resolver with an empty name")
	}
	if strings.Contains(name, ".") {
		return nil, NewValidationError("'resolvers.%s' must not have periods in its name", name)
	}
	if len(attributes) == 0 {
		return nil, NewValidationError("'resolvers.%s.attributes' must not be empty", name)
	}
	for _, a := range attributes {
		if strings.TrimSpace(a) == "" {
			return nil, NewValidationError("'resolvers.%s.attributes' must not have empty strings", name)
		}
	}
	return &Resolver{name: name, attributes: attributes}, nil
}

// Name returns the resolver name.
func (r *Resolver) Name() string { return r.name }

// Attributes returns the resolver's attribute names in declaration order.
// The slice must not be mutated.
func (r *Resolver) Attributes() []string { return r.attributes }

// Model is a validated, read-only entity model.
type Model struct {
	attributes map[string]*Attribute
	matchers   map[string]*Matcher
	resolvers  map[string]*Resolver
	indices    map[string]*Index
}

// Attributes returns the attribute definitions keyed by name.
func (m *Model) Attributes() map[string]*Attribute { return m.attributes }

// Matchers returns the matchers keyed by name.
func (m *Model) Matchers() map[string]*Matcher { return m.matchers }

// Resolvers returns the resolvers keyed by name.
func (m *Model) Resolvers() map[string]*Resolver { return m.resolvers }

// Indices returns the indices keyed by name.
func (m *Model) Indices() map[string]*Index { return m.indices }

// IndexNames returns the index names in lexicographic order.
func (m *Model) IndexNames() []string {
	names := make([]string, 0, len(m.indices))
	for name := range m.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolverNames returns the resolver names in lexicographic order.
func (m *Model) ResolverNames() []string {
	names := make([]string, 0, len(m.resolvers))
	for name := range m.resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New assembles a model from already-constructed sections and validates the
// cross-references between them.
func New(attributes map[string]*Attribute, matchers map[string]*Matcher, resolvers map[string]*Resolver, indices map[string]*Index) (*Model, error) {
	m := &Model{
		attributes: attributes,
		matchers:   matchers,
		resolvers:  resolvers,
		indices:    indices,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that all four sections are present and that resolvers
// reference defined attributes. Index fields may reference attributes or
// matchers that the model does not define; such fields are simply inert at
// query time.
func (m *Model) Validate() error {
	if len(m.attributes) == 0 {
		return NewValidationError("'attributes' must not be empty")
	}
	if len(m.matchers) == 0 {
		return NewValidationError("'matchers' must not be empty")
	}
	if len(m.resolvers) == 0 {
		return NewValidationError("'resolvers' must not be empty")
	}
	if len(m.indices) == 0 {
		return NewValidationError("'indices' must not be empty")
	}
	for _, name := range m.ResolverNames() {
		for _, a := range m.resolvers[name].Attributes() {
			if _, ok := m.attributes[a]; !ok {
				return NewValidationError("'resolvers.%s.attributes' references an undefined attribute '%s'", name, a)
			}
		}
	}
	return nil
}

// Parse parses and validates a model document.
func Parse(doc []byte) (*Model, error) {
	var root map[string]json.RawMessage
	if err := codec.Default.Unmarshal(doc, &root); err != nil {
		return nil, NewValidationError("entity model must be valid JSON: %s", err)
	}
	for key := range root {
		switch key {
		case "attributes", "matchers", "resolvers", "indices":
		default:
			return nil, NewValidationError("'%s' is not a recognized field of an entity model", key)
		}
	}

	attributes, err := parseAttributes(root["attributes"])
	if err != nil {
		return nil, err
	}
	matchers, err := parseMatchers(root["matchers"])
	if err != nil {
		return nil, err
	}
	resolvers, err := parseResolvers(root["resolvers"])
	if err != nil {
		return nil, err
	}
	indices, err := parseIndices(root["indices"])
	if err != nil {
		return nil, err
	}
	return New(attributes, matchers, resolvers, indices)
}

func parseAttributes(raw json.RawMessage) (map[string]*Attribute, error) {
	if raw == nil {
		return nil, NewValidationError("'attributes' is missing from the entity model")
	}
	var section map[string]map[string]json.RawMessage
	if err := codec.Default.Unmarshal(raw, &section); err != nil {
		return nil, NewValidationError("'attributes' must be an object of objects")
	}
	out := make(map[string]*Attribute, len(section))
	for name, obj := range section {
		typ := ""
		for key, val := range obj {
			if key != "type" {
				return nil, NewValidationError("'attributes.%s.%s' is not a recognized field", name, key)
			}
			if err := codec.Default.Unmarshal(val, &typ); err != nil {
				return nil, NewValidationError("'attributes.%s.type' must be a string", name)
			}
		}
		a, err := NewAttribute(name, typ)
		if err != nil {
			return nil, err
		}
		out[name] = a
	}
	return out, nil
}

func parseMatchers(raw json.RawMessage) (map[string]*Matcher, error) {
	if raw == nil {
		return nil, NewValidationError("'matchers' is missing from the entity model")
	}
	var section map[string]map[string]json.RawMessage
	if err := codec.Default.Unmarshal(raw, &section); err != nil {
		return nil, NewValidationError("'matchers' must be an object of objects")
	}
	out := make(map[string]*Matcher, len(section))
	for name, obj := range section {
		var clause string
		params := map[string]string{}
		for key, val := range obj {
			switch key {
			case "clause":
				c, err := parseClause(name, val)
				if err != nil {
					return nil, err
				}
				clause = c
			case "params":
				if err := codec.Default.Unmarshal(val, &params); err != nil {
					return nil, NewValidationError("'matchers.%s.params' must be an object of strings", name)
				}
			default:
				return nil, NewValidationError("'matchers.%s.%s' is not a recognized field", name, key)
			}
		}
		if clause == "" {
			return nil, NewValidationError("'matchers.%s.clause' is missing", name)
		}
		m, err := NewMatcher(name, clause, params)
		if err != nil {
			return nil, err
		}
		out[name] = m
	}
	return out, nil
}

// quotedValuePlaceholder matches a {{ value }} placeholder standing alone as
// a JSON string value.
var quotedValuePlaceholder = regexp.MustCompile(`"\{\{\s*value\s*\}\}"`)

// parseClause accepts the clause template either as a JSON object or as a
// JSON string holding the raw template text.
//
// Values are substituted into the template already quoted (strings) or bare
// (numbers, booleans), so the {{ value }} placeholder must be unquoted in the
// template. A clause written as a JSON object cannot express that, so a
// quoted placeholder standing alone as a string value is unwrapped here.
func parseClause(matcherName string, raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := codec.Default.Unmarshal(raw, &s); err != nil {
			return "", NewValidationError("'matchers.%s.clause' must be an object or a string", matcherName)
		}
		return s, nil
	}
	compact := &bytes.Buffer{}
	if err := json.Compact(compact, raw); err != nil {
		return "", NewValidationError("'matchers.%s.clause' must be valid JSON", matcherName)
	}
	return quotedValuePlaceholder.ReplaceAllString(compact.String(), "{{ value }}"), nil
}

func parseResolvers(raw json.RawMessage) (map[string]*Resolver, error) {
	if raw == nil {
		return nil, NewValidationError("'resolvers' is missing from the entity model")
	}
	var section map[string]map[string]json.RawMessage
	if err := codec.Default.Unmarshal(raw, &section); err != nil {
		return nil, NewValidationError("'resolvers' must be an object of objects")
	}
	out := make(map[string]*Resolver, len(section))
	for name, obj := range section {
		var attributes []string
		for key, val := range obj {
			if key != "attributes" {
				return nil, NewValidationError("'resolvers.%s.%s' is not a recognized field", name, key)
			}
			if err := codec.Default.Unmarshal(val, &attributes); err != nil {
				return nil, NewValidationError("'resolvers.%s.attributes' must be an array of strings", name)
			}
		}
		r, err := NewResolver(name, attributes)
		if err != nil {
			return nil, err
		}
		out[name] = r
	}
	return out, nil
}

func parseIndices(raw json.RawMessage) (map[string]*Index, error) {
	if raw == nil {
		return nil, NewValidationError("'indices' is missing from the entity model")
	}
	var section map[string]map[string]json.RawMessage
	if err := codec.Default.Unmarshal(raw, &section); err != nil {
		return nil, NewValidationError("'indices' must be an object of objects")
	}
	out := make(map[string]*Index, len(section))
	for indexName, obj := range section {
		var fieldsRaw map[string]json.RawMessage
		for key, val := range obj {
			if key != "fields" {
				return nil, NewValidationError("'indices.%s.%s' is not a recognized field", indexName, key)
			}
			if err := codec.Default.Unmarshal(val, &fieldsRaw); err != nil {
				return nil, NewValidationError("'indices.%s.fields' must be an object of objects", indexName)
			}
		}
		fields := make(map[string]*IndexField, len(fieldsRaw))
		for fieldName, fieldRaw := range fieldsRaw {
			f, err := ParseIndexField(indexName, fieldName, fieldRaw)
			if err != nil {
				return nil, err
			}
			fields[fieldName] = f
		}
		idx, err := NewIndex(indexName, fields)
		if err != nil {
			return nil, err
		}
		out[indexName] = idx
	}
	return out, nil
}

// ParseIndexField parses one field object of an index mapping. The object
// accepts exactly the keys "attribute" (required string), "matcher"
// (optional string), and "quality" (optional float in [0.0, 1.0] or null).
func ParseIndexField(indexName, fieldName string, raw []byte) (*IndexField, error) {
	var obj map[string]json.RawMessage
	if err := codec.Default.Unmarshal(raw, &obj); err != nil {
		return nil, NewValidationError("'indices.%s.fields.%s' must be an object", indexName, fieldName)
	}
	var attribute, matcher string
	var quality *float64
	for key, val := range obj {
		switch key {
		case "attribute":
			if err := codec.Default.Unmarshal(val, &attribute); err != nil {
				return nil, NewValidationError("'indices.%s.fields.%s.attribute' must be a string", indexName, fieldName)
			}
		case "matcher":
			if err := codec.Default.Unmarshal(val, &matcher); err != nil {
				return nil, NewValidationError("'indices.%s.fields.%s.matcher' must be a string", indexName, fieldName)
			}
			if strings.TrimSpace(matcher) == "" {
				return nil, NewValidationError("'indices.%s.fields.%s.matcher' must not be empty", indexName, fieldName)
			}
		case "quality":
			q, err := parseQuality(indexName, fieldName, val)
			if err != nil {
				return nil, err
			}
			quality = q
		default:
			return nil, NewValidationError("'indices.%s.fields.%s.%s' is not a recognized field", indexName, fieldName, key)
		}
	}
	if _, ok := obj["attribute"]; !ok {
		return nil, NewValidationError("'indices.%s.fields.%s.attribute' is missing", indexName, fieldName)
	}
	if strings.TrimSpace(attribute) == "" {
		return nil, NewValidationError("'indices.%s.fields.%s.attribute' must not be empty", indexName, fieldName)
	}
	return NewIndexField(indexName, fieldName, attribute, matcher, quality)
}

// parseQuality accepts null or a floating-point JSON number in [0.0, 1.0].
// Integer-typed JSON numbers are rejected, matching the strictness of the
// model schema (quality is declared as a fraction, not a count).
func parseQuality(indexName, fieldName string, raw json.RawMessage) (*float64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		return nil, NewValidationError("'indices.%s.fields.%s.quality' must be a floating point number", indexName, fieldName)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return nil, NewValidationError("'indices.%s.fields.%s.quality' must be a floating point number", indexName, fieldName)
	}
	if !strings.ContainsAny(num.String(), ".eE") {
		return nil, NewValidationError("'indices.%s.fields.%s.quality' must be a floating point number", indexName, fieldName)
	}
	f, err := num.Float64()
	if err != nil {
		return nil, NewValidationError("'indices.%s.fields.%s.quality' must be a floating point number", indexName, fieldName)
	}
	if f < 0.0 || f > 1.0 {
		return nil, NewValidationError("'indices.%s.fields.%s.quality' must be in the range of 0.0 - 1.0", indexName, fieldName)
	}
	return &f, nil
}
