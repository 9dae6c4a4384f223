package jsondoc

import (
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Table is a keyed record table (a top-level JSON object) in document order.
type Table struct {
	m *orderedmap.OrderedMap[string, Record]
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{m: orderedmap.New[string, Record]()}
}

// ParseTable parses a JSON object into a table. A repeated key keeps its
// first position and its last value.
func ParseTable(data []byte) (*Table, error) {
	res, err := parse(data)
	if err != nil {
		return nil, err
	}
	if !res.IsObject() {
		return nil, &SyntaxError{Msg: "top-level value is not an object"}
	}
	t := NewTable()
	res.ForEach(func(k, v gjson.Result) bool {
		t.Set(k.String(), Record(v.Raw))
		return true
	})
	return t, nil
}

func (t *Table) Len() int { return t.m.Len() }

func (t *Table) Get(key string) (Record, bool) {
	return t.m.Get(key)
}

func (t *Table) Has(key string) bool {
	_, ok := t.m.Get(key)
	return ok
}

// Set stores r under key; an existing key keeps its position.
func (t *Table) Set(key string, r Record) {
	t.m.Set(key, r)
}

// Keys returns the keys in document order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.m.Len())
	for p := t.m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Each calls fn for every entry in order and stops at the first error.
func (t *Table) Each(fn func(key string, r Record) error) error {
	for p := t.m.Oldest(); p != nil; p = p.Next() {
		if err := fn(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Update replaces every record with the one fn returns, in order. On error
// the records already visited keep their new value.
func (t *Table) Update(fn func(key string, r Record) (Record, error)) error {
	for p := t.m.Oldest(); p != nil; p = p.Next() {
		r, err := fn(p.Key, p.Value)
		if err != nil {
			return err
		}
		p.Value = r
	}
	return nil
}

// MarshalJSON encodes the table compactly in document order.
func (t *Table) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	first := true
	for p := t.m.Oldest(); p != nil; p = p.Next() {
		if !first {
			buf = append(buf, ',')
		}
		first = false
		k, err := Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		v, _ := p.Value.MarshalJSON()
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// List is a top-level JSON array of records.
type List []Record

// ParseList parses a JSON array into a list.
func ParseList(data []byte) (List, error) {
	res, err := parse(data)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, &SyntaxError{Msg: "top-level value is not an array"}
	}
	var l List
	res.ForEach(func(_, v gjson.Result) bool {
		l = append(l, Record(v.Raw))
		return true
	})
	return l, nil
}

func (l List) MarshalJSON() ([]byte, error) {
	buf := []byte{'['}
	for i, r := range l {
		if i > 0 {
			buf = append(buf, ',')
		}
		v, _ := r.MarshalJSON()
		buf = append(buf, v...)
	}
	return append(buf, ']'), nil
}

func parse(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, &SyntaxError{Msg: "malformed JSON"}
	}
	return gjson.ParseBytes(data), nil
}
