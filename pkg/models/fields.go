package models

import (
	"bytes"
	"encoding/json"
)

// Fields is an insertion-ordered bag of named values. Mirrors return posts
// with whatever fields they like; Fields carries them through untouched while
// keeping the order they arrived in, which later becomes the column order.
type Fields struct {
	keys   []string
	values map[string]interface{}
}

// NewFields creates an empty field bag.
func NewFields() *Fields {
	return &Fields{values: make(map[string]interface{})}
}

// Set stores a value. Re-setting an existing key keeps its original position.
func (f *Fields) Set(key string, value interface{}) {
	if f.values == nil {
		f.values = make(map[string]interface{})
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (interface{}, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Delete removes key from the bag.
func (f *Fields) Delete(key string) {
	if f == nil {
		return
	}
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Clone returns a shallow copy of the bag.
func (f *Fields) Clone() *Fields {
	clone := NewFields()
	if f == nil {
		return clone
	}
	for _, k := range f.keys {
		clone.Set(k, f.values[k])
	}
	return clone
}

// MarshalJSON encodes the bag as a JSON object, keys in insertion order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if f != nil {
		for i, k := range f.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(f.values[k])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
