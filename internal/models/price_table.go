package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PriceTable is an insertion-ordered map from a country or currency code
// to a price entry. The pricing backend keys these maps inconsistently
// (sometimes "US", sometimes "USD") and the last-resort fallback picks
// the first entry, so JSON object order must survive a decode/encode
// round trip.
//
// The zero value is an empty, ready-to-use table.
type PriceTable struct {
	keys    []string
	entries map[string]PriceEntry
}

// NewPriceTable builds a table from key/entry pairs in the given order.
func NewPriceTable(pairs ...PricePair) PriceTable {
	var t PriceTable
	for _, p := range pairs {
		t.Set(p.Key, p.Entry)
	}
	return t
}

// PricePair is a single key/entry used to build a PriceTable.
type PricePair struct {
	Key   string
	Entry PriceEntry
}

// Set stores entry under key. Re-setting an existing key keeps its
// original position. Negative prices are stored as zero.
func (t *PriceTable) Set(key string, entry PriceEntry) {
	if t.entries == nil {
		t.entries = make(map[string]PriceEntry)
	}
	if entry.Price < 0 {
		entry.Price = 0
	}
	if _, exists := t.entries[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = entry
}

// Get returns the entry stored under key.
func (t PriceTable) Get(key string) (PriceEntry, bool) {
	entry, ok := t.entries[key]
	return entry, ok
}

// First returns the earliest inserted entry.
func (t PriceTable) First() (string, PriceEntry, bool) {
	if len(t.keys) == 0 {
		return "", PriceEntry{}, false
	}
	key := t.keys[0]
	return key, t.entries[key], true
}

// Len returns the number of entries.
func (t PriceTable) Len() int {
	return len(t.keys)
}

// Keys returns the keys in insertion order.
func (t PriceTable) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// MarshalJSON writes the table as a JSON object in insertion order.
func (t PriceTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(t.entries[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the order keys appear in.
// A JSON null yields an empty table.
func (t *PriceTable) UnmarshalJSON(data []byte) error {
	*t = PriceTable{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("price table: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("price table: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("price table: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("price table: unexpected key %v", keyTok)
		}

		var entry PriceEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("price table entry %q: %w", key, err)
		}
		t.Set(key, entry)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("price table: %w", err)
	}
	return nil
}
