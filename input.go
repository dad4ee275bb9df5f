package entigo

import (
	"sort"
	"strings"

	"github.com/hupe1980/entigo/model"
)

// Attribute holds the observed values of one entity attribute at runtime,
// as an ordered set with (type, raw) membership, plus optional per-request
// matcher parameters.
type Attribute struct {
	name   string
	typ    string
	params map[string]string
	values []Value
	seen   map[string]struct{}
}

// NewAttribute creates an empty runtime attribute.
func NewAttribute(name, typ string) *Attribute {
	return &Attribute{
		name: name,
		typ:  typ,
		seen: map[string]struct{}{},
	}
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.name }

// Type returns the attribute type.
func (a *Attribute) Type() string { return a.typ }

// Params returns the request-level matcher parameters, possibly nil.
func (a *Attribute) Params() map[string]string { return a.params }

// SetParams replaces the request-level matcher parameters.
func (a *Attribute) SetParams(params map[string]string) { a.params = params }

// Values returns the observed values in insertion order.
// The slice must not be mutated.
func (a *Attribute) Values() []Value { return a.values }

// Add inserts a value unless an equal value (by type and raw form) is
// already present. It reports whether the value was added.
func (a *Attribute) Add(v Value) bool {
	k := v.key()
	if _, ok := a.seen[k]; ok {
		return false
	}
	a.seen[k] = struct{}{}
	a.values = append(a.values, v)
	return true
}

// clone deep-copies the attribute so job state never aliases input state.
func (a *Attribute) clone() *Attribute {
	c := NewAttribute(a.name, a.typ)
	c.params = a.params
	c.values = append([]Value(nil), a.values...)
	for k := range a.seen {
		c.seen[k] = struct{}{}
	}
	return c
}

// Scope carries the request-time attribute filters: documents matching any
// exclude attribute are rejected, documents must match every include
// attribute.
type Scope struct {
	include map[string]*Attribute
	exclude map[string]*Attribute
}

// IncludeAttributes returns the include-scope attributes, possibly empty.
func (s *Scope) IncludeAttributes() map[string]*Attribute { return s.include }

// ExcludeAttributes returns the exclude-scope attributes, possibly empty.
func (s *Scope) ExcludeAttributes() map[string]*Attribute { return s.exclude }

// Input is the immutable description of one resolution request: the model,
// the seed attributes, and the scope.
type Input struct {
	model *model.Model
	attrs map[string]*Attribute
	scope Scope
}

// NewInput builds an input from seed attribute values.
//
// Each seed value may be a scalar, a []any of scalars, or an object form
// map[string]any{"values": [...], "params": {...}} carrying per-request
// matcher parameters. Unknown attributes, attribute names containing
// periods, and non-scalar values fail with a ValidationError.
func NewInput(m *model.Model, seeds map[string]any) (*Input, error) {
	attrs, err := parseInputAttributes(m, seeds)
	if err != nil {
		return nil, err
	}
	return &Input{
		model: m,
		attrs: attrs,
		scope: Scope{
			include: map[string]*Attribute{},
			exclude: map[string]*Attribute{},
		},
	}, nil
}

// Model returns the entity model.
func (in *Input) Model() *model.Model { return in.model }

// Attributes returns the seed attributes keyed by name.
func (in *Input) Attributes() map[string]*Attribute { return in.attrs }

// Scope returns the request scope.
func (in *Input) Scope() *Scope { return &in.scope }

// SetScopeIncludeAttributes sets scope.include.attributes from seed-form
// values.
func (in *Input) SetScopeIncludeAttributes(seeds map[string]any) error {
	attrs, err := parseInputAttributes(in.model, seeds)
	if err != nil {
		return err
	}
	in.scope.include = attrs
	return nil
}

// SetScopeExcludeAttributes sets scope.exclude.attributes from seed-form
// values.
func (in *Input) SetScopeExcludeAttributes(seeds map[string]any) error {
	attrs, err := parseInputAttributes(in.model, seeds)
	if err != nil {
		return err
	}
	in.scope.exclude = attrs
	return nil
}

// cloneAttributes deep-copies an attribute map; used to seed per-run job
// state.
func cloneAttributes(attrs map[string]*Attribute) map[string]*Attribute {
	out := make(map[string]*Attribute, len(attrs))
	for name, a := range attrs {
		out[name] = a.clone()
	}
	return out
}

// sortedAttributeNames returns the map keys in lexicographic order.
func sortedAttributeNames(attrs map[string]*Attribute) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseInputAttributes(m *model.Model, seeds map[string]any) (map[string]*Attribute, error) {
	out := make(map[string]*Attribute, len(seeds))
	for name, raw := range seeds {
		if strings.Contains(name, ".") {
			return nil, model.NewValidationError("'attributes.%s' must not have periods in its name", name)
		}
		def, ok := m.Attributes()[name]
		if !ok {
			return nil, model.NewValidationError("'attributes.%s' is not defined in the entity model", name)
		}
		attr := NewAttribute(name, def.Type())

		values := []any{raw}
		switch x := raw.(type) {
		case []any:
			values = x
		case map[string]any:
			vs, ok := x["values"].([]any)
			if !ok {
				return nil, model.NewValidationError("'attributes.%s.values' must be an array of values", name)
			}
			values = vs
			if p, ok := x["params"]; ok {
				params, err := coerceParams(name, p)
				if err != nil {
					return nil, err
				}
				attr.SetParams(params)
			}
			for key := range x {
				if key != "values" && key != "params" {
					return nil, model.NewValidationError("'attributes.%s.%s' is not a recognized field", name, key)
				}
			}
		}

		for _, rv := range values {
			switch rv.(type) {
			case []any, map[string]any:
				return nil, model.NewValidationError("'attributes.%s' must be a value or an array of values", name)
			}
			v, err := NewValue(def.Type(), rv)
			if err != nil {
				return nil, err
			}
			attr.Add(v)
		}
		out[name] = attr
	}
	return out, nil
}

func coerceParams(attributeName string, raw any) (map[string]string, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, model.NewValidationError("'attributes.%s.params' must be an object of strings", attributeName)
	}
	params := make(map[string]string, len(obj))
	for k, v := range obj {
		s, err := coerceString(v)
		if err != nil {
			return nil, model.NewValidationError("'attributes.%s.params.%s' must be a string", attributeName, k)
		}
		params[k] = s
	}
	return params, nil
}
