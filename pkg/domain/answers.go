package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Answers is an insertion-ordered map of answer key to value.
// Values are JSON-friendly: int, []int, string, bool (or their json.Number /
// float64 / []any forms after a round trip). The zero value is ready to use.
type Answers struct {
	keys   []string
	values map[string]any
}

// NewAnswers returns an empty answer map.
func NewAnswers() Answers {
	return Answers{values: make(map[string]any)}
}

// Set stores v under key. Overwriting keeps the key's original position.
func (a *Answers) Set(key string, v any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = v
}

// Get returns the raw value stored under key.
func (a Answers) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key was answered.
func (a Answers) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Len returns the number of answers.
func (a Answers) Len() int { return len(a.keys) }

// Keys returns the answer keys in insertion order.
func (a Answers) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Map returns an unordered copy of the answers.
func (a Answers) Map() map[string]any {
	out := make(map[string]any, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy.
func (a Answers) Clone() Answers {
	out := Answers{keys: append([]string(nil), a.keys...)}
	if a.values == nil {
		return out
	}
	out.values = make(map[string]any, len(a.values))
	for k, v := range a.values {
		if ints, ok := v.([]int); ok {
			cp := make([]int, len(ints))
			copy(cp, ints)
			v = cp
		}
		out.values[k] = v
	}
	return out
}

// Int reads a whole-number answer.
func (a Answers) Int(key string) (int, bool) {
	v, ok := a.values[key]
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// Ints reads a multi-choice answer.
func (a Answers) Ints(key string) ([]int, bool) {
	v, ok := a.values[key]
	if !ok {
		return nil, false
	}
	switch vv := v.(type) {
	case []int:
		out := make([]int, len(vv))
		copy(out, vv)
		return out, true
	case []any:
		out := make([]int, 0, len(vv))
		for _, item := range vv {
			n, ok := toInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	return nil, false
}

// String reads a text answer.
func (a Answers) String(key string) (string, bool) {
	s, ok := a.values[key].(string)
	return s, ok
}

// Bool reads a yes/no answer.
func (a Answers) Bool(key string) (bool, bool) {
	b, ok := a.values[key].(bool)
	return b, ok
}

// MarshalJSON encodes the answers as a JSON object in insertion order.
func (a Answers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, fmt.Errorf("answer %s: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
// Numbers decode as json.Number.
func (a *Answers) UnmarshalJSON(data []byte) error {
	*a = NewAnswers()
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("answers: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("answers: expected string key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("answers: value for %s: %w", key, err)
		}
		a.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
