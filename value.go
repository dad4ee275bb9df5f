package entigo

import (
	"encoding/json"
	"strconv"

	"github.com/hupe1980/entigo/model"
)

// Value is one observed attribute value.
//
// Serialized is the JSON form substituted into matcher templates: quoted and
// escaped for strings and dates, bare for numbers and booleans. Raw is the
// typed equivalent used for set membership. Two values are equal iff their
// (type, raw) pairs are equal, so the number 1 and the string "1" are
// distinct.
type Value struct {
	typ        string
	raw        any
	serialized string
}

// NewValue coerces raw into a value of the given attribute type.
// Nil raw values yield an empty serialized form, which the clause builder
// skips. Raw values that cannot represent the type fail with a
// ValidationError.
func NewValue(attributeType string, raw any) (Value, error) {
	v := Value{typ: attributeType}
	if raw == nil {
		return v, nil
	}
	switch attributeType {
	case model.TypeString, model.TypeDate:
		s, err := coerceString(raw)
		if err != nil {
			return Value{}, err
		}
		v.raw = s
		if s != "" {
			b, _ := json.Marshal(s)
			v.serialized = string(b)
		}
	case model.TypeNumber:
		f, err := coerceNumber(raw)
		if err != nil {
			return Value{}, err
		}
		v.raw = f
		v.serialized = strconv.FormatFloat(f, 'g', -1, 64)
	case model.TypeBoolean:
		b, err := coerceBoolean(raw)
		if err != nil {
			return Value{}, err
		}
		v.raw = b
		v.serialized = strconv.FormatBool(b)
	default:
		return Value{}, model.NewValidationError("'%s' is not a supported attribute type", attributeType)
	}
	return v, nil
}

// Type returns the attribute type the value was created for.
func (v Value) Type() string { return v.typ }

// Raw returns the typed raw value (string, float64, or bool).
func (v Value) Raw() any { return v.raw }

// Serialized returns the JSON form used in query templates. Empty for nil
// and empty-string values.
func (v Value) Serialized() string { return v.serialized }

// key is the canonical (type, raw) identity used for set membership.
func (v Value) key() string {
	switch raw := v.raw.(type) {
	case string:
		return v.typ + "\x00" + raw
	case float64:
		return v.typ + "\x00" + strconv.FormatFloat(raw, 'g', -1, 64)
	case bool:
		return v.typ + "\x00" + strconv.FormatBool(raw)
	default:
		return v.typ + "\x00"
	}
}

func coerceString(raw any) (string, error) {
	switch x := raw.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case bool:
		return strconv.FormatBool(x), nil
	case json.Number:
		return x.String(), nil
	default:
		return "", model.NewValidationError("value %v cannot be read as a string", raw)
	}
}

func coerceNumber(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, model.NewValidationError("value %q cannot be read as a number", x)
		}
		return f, nil
	default:
		return 0, model.NewValidationError("value %v cannot be read as a number", raw)
	}
}

func coerceBoolean(raw any) (bool, error) {
	switch x := raw.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, model.NewValidationError("value %q cannot be read as a boolean", x)
		}
		return b, nil
	default:
		return false, model.NewValidationError("value %v cannot be read as a boolean", raw)
	}
}
