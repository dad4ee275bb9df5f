package codec

import (
	"bytes"
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Object keys marshal in sorted order, which entigo relies on for
// byte-identical response envelopes across runs.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Indent re-formats a compact JSON document for human consumption.
// Used by the response envelope when the pretty flag is set.
func Indent(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Default is the default codec used by the library.
var Default Codec = GoJSON{}
