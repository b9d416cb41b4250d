package recordstore

import (
	"encoding/json"
	"fmt"

	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

// Record is a raw record as returned by the store: opaque field keys mapped
// to loosely typed values. The repository layer decodes these into the
// typed entities; decode failures surface as validation errors.
type Record map[string]json.RawMessage

// ID returns the record identifier.
func (r Record) ID() string {
	s, _ := r.optString("id")
	return s
}

// String decodes a required string field.
func (r Record) String(key string) (string, error) {
	raw, ok := r[key]
	if !ok {
		return "", decodeErr(key, "missing field")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", decodeErr(key, "not a string")
	}
	return s, nil
}

// StringOr decodes an optional string field, returning def when absent.
func (r Record) StringOr(key, def string) string {
	if s, ok := r.optString(key); ok {
		return s
	}
	return def
}

// Int decodes a numeric field. The store serialises numbers both as JSON
// numbers and as strings depending on field type, so both are accepted.
func (r Record) Int(key string) (int, error) {
	raw, ok := r[key]
	if !ok {
		return 0, decodeErr(key, "missing field")
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var parsed int
		if _, err := fmt.Sscanf(s, "%d", &parsed); err == nil {
			return parsed, nil
		}
	}
	return 0, decodeErr(key, "not a number")
}

// IntOr decodes an optional numeric field.
func (r Record) IntOr(key string, def int) int {
	n, err := r.Int(key)
	if err != nil {
		return def
	}
	return n
}

// Float decodes a numeric field as float64, accepting string-encoded numbers.
func (r Record) Float(key string) (float64, error) {
	raw, ok := r[key]
	if !ok {
		return 0, decodeErr(key, "missing field")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var parsed float64
		if _, err := fmt.Sscanf(s, "%g", &parsed); err == nil {
			return parsed, nil
		}
	}
	return 0, decodeErr(key, "not a number")
}

// FloatOr decodes an optional float field.
func (r Record) FloatOr(key string, def float64) float64 {
	f, err := r.Float(key)
	if err != nil {
		return def
	}
	return f
}

// Bool decodes a boolean field. The store stores booleans as true/false or
// as the strings "Yes"/"No".
func (r Record) Bool(key string) bool {
	raw, ok := r[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "Yes" || s == "true"
	}
	return false
}

// Strings decodes a field holding an array of strings, tolerating a single
// scalar string as a one-element list.
func (r Record) Strings(key string) []string {
	raw, ok := r[key]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}

// ConnectionIDs decodes the raw variant of a connection field, which the
// store returns as an array of {id, identifier} objects.
func (r Record) ConnectionIDs(key string) []string {
	raw, ok := r[key+"_raw"]
	if !ok {
		return nil
	}
	var conns []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &conns); err != nil {
		return nil
	}
	ids := make([]string, 0, len(conns))
	for _, c := range conns {
		if c.ID != "" {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Document decodes a field holding a JSON document into dest. The store
// persists structured payloads as JSON-encoded strings. Returns false when
// the field is absent or empty.
func (r Record) Document(key string, dest interface{}) (bool, error) {
	raw, ok := r[key]
	if !ok {
		return false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return false, nil
		}
		if err := json.Unmarshal([]byte(s), dest); err != nil {
			return false, decodeErr(key, "malformed document")
		}
		return true, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, decodeErr(key, "malformed document")
	}
	return true, nil
}

func (r Record) optString(key string) (string, bool) {
	raw, ok := r[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeErr(key, reason string) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("record field %s: %s", key, reason))
}
