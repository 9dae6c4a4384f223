package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ErrNotFound is returned when an input file does not exist.
var ErrNotFound = errors.New("file not found")

// SyntaxError reports an input that is not the JSON document expected.
type SyntaxError struct {
	Path string
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Path == "" {
		return "parse: " + e.Msg
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Msg)
}

// Non-ASCII text and markup such as <color=...> stay literal.
var jsonAPI = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// Marshal encodes v compactly without HTML escaping.
func Marshal(v any) ([]byte, error) {
	return jsonAPI.Marshal(v)
}

// Width 0 keeps one array element per line.
var prettyOptions = &pretty.Options{Indent: "  "}

// Format renders doc with two-space indentation and a trailing newline.
func Format(doc json.Marshaler) ([]byte, error) {
	raw, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	raw, err = unescapeStrings(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return pretty.PrettyOptions(raw, prettyOptions), nil
}

// unescapeStrings re-encodes every string token holding a \u escape, so
// text copied from an escaped input is written literally. Control
// characters keep their escapes.
func unescapeStrings(raw []byte) ([]byte, error) {
	if !bytes.Contains(raw, []byte(`\u`)) {
		return raw, nil
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); {
		if raw[i] != '"' {
			out = append(out, raw[i])
			i++
			continue
		}
		end, escaped := i+1, false
		for ; end < len(raw) && raw[end] != '"'; end++ {
			if raw[end] == '\\' {
				end++
				if end < len(raw) && raw[end] == 'u' {
					escaped = true
				}
			}
		}
		if end >= len(raw) {
			return nil, &SyntaxError{Msg: "unterminated string"}
		}
		tok := raw[i : end+1]
		if escaped {
			enc, err := jsonAPI.Marshal(gjson.ParseBytes(tok).String())
			if err != nil {
				return nil, err
			}
			tok = enc
		}
		out = append(out, tok...)
		i = end + 1
	}
	return out, nil
}

// ReadFile reads a whole input file.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// ReadTable loads the JSON object at path.
func ReadTable(path string) (*Table, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return t, nil
}

// ReadList loads the JSON array at path.
func ReadList(path string) (List, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := ParseList(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return l, nil
}

// WriteFile formats doc and writes it atomically using a temp file + rename.
func WriteFile(path string, doc json.Marshaler) error {
	data, err := Format(doc)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func withPath(err error, path string) error {
	var se *SyntaxError
	if errors.As(err, &se) {
		se.Path = path
		return se
	}
	return fmt.Errorf("%s: %w", path, err)
}
