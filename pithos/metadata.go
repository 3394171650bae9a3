package pithos

import (
	"maps"
	"sort"
)

// Metadata holds user metadata for an account, container or object. Keys are
// case-sensitive and carry no header prefix. A nil *Metadata reads as empty
// and can be passed wherever metadata is optional, but Set and SetOptional
// need a value from NewMetadata or MetadataFrom (the zero Metadata works too).
type Metadata struct {
	values map[string]string
}

func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]string)}
}

// MetadataFrom copies kv into a new container.
func MetadataFrom(kv map[string]string) *Metadata {
	m := NewMetadata()
	for k, v := range kv {
		m.values[k] = v
	}
	return m
}

func (m *Metadata) Size() int {
	if m == nil {
		return 0
	}
	return len(m.values)
}

func (m *Metadata) IsEmpty() bool {
	return m.Size() == 0
}

func (m *Metadata) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[key]
	return ok
}

// Get returns the value stored under key, or an error of KindNotFound.
func (m *Metadata) Get(key string) (string, error) {
	if m != nil {
		if v, ok := m.values[key]; ok {
			return v, nil
		}
	}
	return "", &Error{Kind: KindNotFound, Message: "metadata key '" + key + "' does not exist"}
}

// Set stores value under key and panics on a nil *Metadata. An empty value
// is stored as is; on an update request it removes the key on the server.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
}

// SetOptional stores *value under key, and does nothing when value is nil.
func (m *Metadata) SetOptional(key string, value *string) {
	if value == nil {
		return
	}
	m.Set(key, *value)
}

func (m *Metadata) Delete(key string) {
	if m == nil {
		return
	}
	delete(m.values, key)
}

// Keys returns a sorted snapshot of the keys.
func (m *Metadata) Keys() []string {
	if m == nil {
		return []string{}
	}
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the key/value pairs.
func (m *Metadata) Map() map[string]string {
	out := make(map[string]string, m.Size())
	if m != nil {
		maps.Copy(out, m.values)
	}
	return out
}

func (m *Metadata) Equal(other *Metadata) bool {
	if m.Size() != other.Size() {
		return false
	}
	if m.Size() == 0 {
		return true
	}
	return maps.Equal(m.values, other.values)
}
