// Package jsondoc reads and writes the game-data JSON tables without
// disturbing their layout: object keys keep their source order at every
// level, numbers keep their source text, and strings are written as literal
// UTF-8 without HTML escaping.
package jsondoc

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Record is the raw JSON text of one value, usually an object.
// Reads go through gjson paths and edits through sjson, so fields that are
// not touched stay exactly where they were.
type Record []byte

// Key escapes a single object key for use as a path component.
func Key(k string) string {
	return gjson.Escape(k)
}

// Get returns the value at path.
func (r Record) Get(path string) gjson.Result {
	return gjson.GetBytes(r, path)
}

// Has reports whether path resolves to a value.
func (r Record) Has(path string) bool {
	return r.Get(path).Exists()
}

// Set encodes v and stores it at path, returning the updated record.
// A new key is appended after the existing ones.
func (r Record) Set(path string, v any) (Record, error) {
	raw, err := Marshal(v)
	if err != nil {
		return r, fmt.Errorf("encode %s: %w", path, err)
	}
	return r.SetRaw(path, raw)
}

// SetRaw stores already encoded JSON at path.
func (r Record) SetRaw(path string, raw []byte) (Record, error) {
	out, err := sjson.SetRawBytes(r, path, raw)
	if err != nil {
		return r, fmt.Errorf("set %s: %w", path, err)
	}
	return out, nil
}

// Delete removes the value at path. Deleting a missing path is a no-op.
func (r Record) Delete(path string) (Record, error) {
	out, err := sjson.DeleteBytes(r, path)
	if err != nil {
		return r, fmt.Errorf("delete %s: %w", path, err)
	}
	return out, nil
}

// MarshalJSON returns r unchanged, or null for an empty record.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// Scalar renders a JSON value the way it reads in a description:
// strings without quotes, everything else as written in the source.
func Scalar(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	return v.Raw
}
