package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// OrderedMap is a string to string mapping that remembers insertion order.
// Sections and banners are exposed through it so callers always see a plain
// key/value mapping, in the order the server sent it.
//
// The zero value is an empty map ready to use.
type OrderedMap struct {
	keys   []string
	values map[string]string
}

// NewOrderedMap builds a map from alternating key, value pairs.
func NewOrderedMap(pairs ...string) OrderedMap {
	var m OrderedMap
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Set inserts or overwrites key. Overwriting keeps the original position.
func (m *OrderedMap) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m OrderedMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns a copy of the keys in insertion order.
func (m OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m OrderedMap) Len() int { return len(m.keys) }

// Map returns an unordered copy.
func (m OrderedMap) Map() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// MarshalJSON writes a JSON object preserving key order.
func (m OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a JSON object (order preserved) or an empty array,
// which is how PHP encodes an empty associative array.
// Non string values are kept as their raw JSON text.
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	*m = OrderedMap{}

	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	// A list maps its positions to "0", "1", ... like a PHP array cast.
	var list bool
	switch tok {
	case json.Delim('['):
		list = true
	case json.Delim('{'):
	default:
		return fmt.Errorf("ordered map: unexpected JSON token %v", tok)
	}

	for i := 0; dec.More(); i++ {
		key := strconv.Itoa(i)
		if !list {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			k, ok := kt.(string)
			if !ok {
				return fmt.Errorf("ordered map: unexpected key %v", kt)
			}
			key = k
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			m.Set(key, s)
			continue
		}
		m.Set(key, string(raw))
	}

	_, err = dec.Token()
	return err
}
