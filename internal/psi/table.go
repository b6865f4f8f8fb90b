package psi

import (
	"encoding/json"
	"math"
	"strconv"
)

// MetaEntry is one key/value pair of the metadata table.
type MetaEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// MarshalJSON encodes the entry with EncodeValue.
func (e MetaEntry) MarshalJSON() ([]byte, error) {
	v, err := e.EncodeValue()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}{e.Key, v})
}

// EncodeValue returns the JSON encoding of the value. Header floats are
// not validated, so NaN and infinities are written as the strings "NaN",
// "+Inf" and "-Inf".
func (e MetaEntry) EncodeValue() ([]byte, error) {
	var f float64
	switch v := e.Value.(type) {
	case float32:
		f = float64(v)
	case float64:
		f = v
	default:
		return json.Marshal(e.Value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return json.Marshal(e.Value)
}

// MetaTable is an insertion-ordered key/value table of every scalar the
// parser reads. It exists for inspection tools and plays no part in
// validation.
type MetaTable struct {
	entries []MetaEntry
	index   map[string]int
}

// NewMetaTable returns an empty table.
func NewMetaTable() *MetaTable {
	return &MetaTable{index: make(map[string]int)}
}

// Put stores value under key, replacing any earlier value in place.
func (t *MetaTable) Put(key string, value any) {
	if i, ok := t.index[key]; ok {
		t.entries[i].Value = value
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, MetaEntry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (t *MetaTable) Get(key string) (any, bool) {
	i, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return t.entries[i].Value, true
}

// Len returns the number of entries.
func (t *MetaTable) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in insertion order.
func (t *MetaTable) Entries() []MetaEntry {
	out := make([]MetaEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Clone returns an independent copy of the table.
func (t *MetaTable) Clone() *MetaTable {
	c := &MetaTable{
		entries: t.Entries(),
		index:   make(map[string]int, len(t.index)),
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}
