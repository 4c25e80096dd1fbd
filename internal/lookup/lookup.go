// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lookup is the lookup table store: named tables of keyed
// entries with optional per-key masks, validity, and keep-time/hit-time
// expiry.
package lookup

import (
	"bytes"
	"fmt"

	"buf.build/go/netdecode/internal/status"
)

// SlotKind distinguishes a numeric key/data slot from a buffer one.
type SlotKind uint8

const (
	Number SlotKind = iota
	Buffer
)

// KeySchema describes one slot of a table's key schema.
type KeySchema struct {
	Name string
	Kind SlotKind
	Size int    // bytes, for Buffer slots
	Mask []byte // optional; nil means unmasked
}

// DataSchema describes one slot of a table's data schema.
type DataSchema struct {
	Name string
	Kind SlotKind
	Size int
}

// Value is a key or data slot's runtime value.
type Value struct {
	Number uint32
	Buffer []byte
}

// Table is one named lookup table.
type Table struct {
	Name string
	Keys []KeySchema
	Data []DataSchema

	entries []entry
}

type entry struct {
	keys    []Value
	data    []Value
	valid   bool
	inserted uint64
	lastHit  uint64
	keepTime uint32
	hitTime  uint32
	newHitTime uint32
	hit      bool
}

// NewTable declares an empty table with the given key/data schemas.
func NewTable(name string, keys []KeySchema, data []DataSchema) *Table {
	return &Table{Name: name, Keys: keys, Data: data}
}

func maskedEqual(incoming, entryKey Value, schema KeySchema) bool {
	switch schema.Kind {
	case Number:
		mask := uint32(0xFFFFFFFF)
		if len(schema.Mask) >= 4 {
			mask = uint32(schema.Mask[0])<<24 | uint32(schema.Mask[1])<<16 | uint32(schema.Mask[2])<<8 | uint32(schema.Mask[3])
		}
		return (incoming.Number & mask) == (entryKey.Number & mask)
	default:
		a, b := incoming.Buffer, entryKey.Buffer
		if len(a) != len(b) {
			return false
		}
		if schema.Mask == nil {
			return bytes.Equal(a, b)
		}
		for i := range a {
			m := byte(0xFF)
			if i < len(schema.Mask) {
				m = schema.Mask[i]
			}
			if a[i]&m != b[i]&m {
				return false
			}
		}
		return true
	}
}

// find returns the index of the first valid, unexpired entry whose keys
// match (honoring masks), or -1. now is the current packet timestamp (in
// whatever monotonic unit the caller uses consistently, e.g. capture
// seconds).
func (t *Table) find(keys []Value, now uint64) int {
	for i := range t.entries {
		e := &t.entries[i]
		if !e.valid {
			continue
		}
		if e.keepTime != 0 && now-e.inserted > uint64(e.keepTime) {
			e.valid = false
			continue
		}
		threshold := e.newHitTime
		if !e.hit {
			threshold = e.hitTime
		}
		if threshold != 0 && now-e.lastHit > uint64(threshold) {
			e.valid = false
			continue
		}
		match := true
		for k := range t.Keys {
			if !maskedEqual(keys[k], e.keys[k], t.Keys[k]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// Check matches keys against active entries. On a hit whose hit-time
// has elapsed, the entry is treated as a miss and obsoleted.
func (t *Table) Check(keys []Value, now uint64) (found bool, dataIdx int) {
	idx := t.find(keys, now)
	if idx < 0 {
		return false, -1
	}
	return true, idx
}

// CheckAndUpdate is [Table.Check], additionally refreshing the matched
// entry's hit-time window to newHitTime on a hit.
func (t *Table) CheckAndUpdate(keys []Value, now uint64) (found bool, dataIdx int) {
	idx := t.find(keys, now)
	if idx < 0 {
		return false, -1
	}
	e := &t.entries[idx]
	e.hit = true
	e.lastHit = now
	return true, idx
}

// Add inserts or replaces an entry.
func (t *Table) Add(keys, data []Value, valid bool, keepTime, hitTime, newHitTime uint32, now uint64) {
	if idx := t.find(keys, now); idx >= 0 {
		t.entries[idx] = entry{
			keys: keys, data: data, valid: valid,
			inserted: now, lastHit: now,
			keepTime: keepTime, hitTime: hitTime, newHitTime: newHitTime,
		}
		return
	}
	t.entries = append(t.entries, entry{
		keys: keys, data: data, valid: valid,
		inserted: now, lastHit: now,
		keepTime: keepTime, hitTime: hitTime, newHitTime: newHitTime,
	})
}

// Purge removes the matching entry outright.
func (t *Table) Purge(keys []Value, now uint64) {
	idx := t.find(keys, now)
	if idx < 0 {
		return
	}
	t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
}

// Obsolete marks the matching entry invalid without freeing it.
func (t *Table) Obsolete(keys []Value, now uint64) {
	idx := t.find(keys, now)
	if idx < 0 {
		return
	}
	t.entries[idx].valid = false
}

// SelectField reads data slot fieldName from entry at dataIdx, as
// returned by a prior Check/CheckAndUpdate.
func (t *Table) SelectField(dataIdx int, fieldName string) (Value, *status.Error) {
	if dataIdx < 0 || dataIdx >= len(t.entries) {
		return Value{}, status.New(status.DBInconsistency, 0, "select-field against stale match")
	}
	for i, d := range t.Data {
		if d.Name == fieldName {
			return t.entries[dataIdx].data[i], nil
		}
	}
	return Value{}, status.New(status.DBInconsistency, 0, fmt.Sprintf("lookup table %q has no data slot %q", t.Name, fieldName))
}

// SetField writes data slot fieldName of the entry at dataIdx, as
// returned by a prior Check/CheckAndUpdate (used by `assign-lookuptable`
// elements).
func (t *Table) SetField(dataIdx int, fieldName string, v Value) *status.Error {
	if dataIdx < 0 || dataIdx >= len(t.entries) {
		return status.New(status.DBInconsistency, 0, "assign-lookuptable against stale match")
	}
	for i, d := range t.Data {
		if d.Name == fieldName {
			t.entries[dataIdx].data[i] = v
			return nil
		}
	}
	return status.New(status.DBInconsistency, 0, fmt.Sprintf("lookup table %q has no data slot %q", t.Name, fieldName))
}

// Store holds every named lookup table known to one decoder instance.
type Store struct {
	tables map[string]*Table
}

// NewStore returns an empty lookup table store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*Table)}
}

// Declare registers a new named table.
func (s *Store) Declare(name string, keys []KeySchema, data []DataSchema) *Table {
	t := NewTable(name, keys, data)
	s.tables[name] = t
	return t
}

// Table looks up a declared table by name.
func (s *Store) Table(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}
