package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// OrderedMap is a string-keyed map that remembers insertion order. Device
// telemetry is ordered (interfaces come back in slot/port order) and that
// order is significant for shutdown plans and for positional comparison, so
// records keep it through JSON round-trips.
type OrderedMap[V any] struct {
	keys []string
	vals map[string]V
}

// NewOrderedMap returns an empty map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{vals: make(map[string]V)}
}

// Set inserts or replaces key. A replaced key keeps its original position.
func (m *OrderedMap[V]) Set(key string, v V) {
	if m.vals == nil {
		m.vals = make(map[string]V)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the value for key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.vals[key]
	return ok
}

// Keys returns keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Each calls fn for every entry in insertion order until fn returns false.
func (m *OrderedMap[V]) Each(fn func(key string, v V) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
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
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping document order.
func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid JSON object")
	}
	doc := gjson.ParseBytes(data)
	if doc.Type == gjson.Null {
		*m = OrderedMap[V]{vals: make(map[string]V)}
		return nil
	}
	if !doc.IsObject() {
		return fmt.Errorf("expected JSON object, got %s", doc.Type)
	}

	out := OrderedMap[V]{vals: make(map[string]V)}
	var err error
	doc.ForEach(func(key, value gjson.Result) bool {
		var v V
		if err = json.Unmarshal([]byte(value.Raw), &v); err != nil {
			err = fmt.Errorf("key %s: %w", key.String(), err)
			return false
		}
		out.Set(key.String(), v)
		return true
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// Pair is a single-entry JSON object such as {"10.0.0.1": "aa:bb:cc:dd:ee:ff"}.
// ARP and MAC records are lists of pairs.
type Pair struct {
	Key   string
	Value string
}

// MarshalJSON writes {"key": "value"}.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{p.Key: p.Value})
}

// UnmarshalJSON reads a single-entry object.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("expected single-entry object, got %d entries", len(m))
	}
	for k, v := range m {
		p.Key, p.Value = k, v
	}
	return nil
}
