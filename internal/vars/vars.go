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

// Package vars is the runtime variable store: a bounded, name-addressed
// collection of scoped slots that the expression evaluator and field
// decoder read and write while decoding one packet.
package vars

import (
	"fmt"

	"buf.build/go/netdecode/internal/status"
)

// Kind is the closed set of variable kinds.
type Kind uint8

const (
	Number Kind = iota
	Buffer
	RefBuffer
	Protocol
)

// Validity is the lifetime class of a variable.
type Validity uint8

const (
	Static Validity = iota
	ThisPacket
	ThisSession
)

// ID addresses a declared variable within a [Store].
type ID int

// InvalidID is returned by lookups that find nothing.
const InvalidID ID = -1

// DefaultCapacity is the default bound on the number of declared
// variables.
const DefaultCapacity = 40

// Initial holds a variable's declared initial value.
type Initial struct {
	Number uint32
	Buffer []byte
}

type entry struct {
	name     string
	kind     Kind
	validity Validity

	number uint32

	owned  []byte // backing storage for Buffer-kind vars, len == maxSize
	used   int    // bytes of owned currently holding a value
	maxSize int

	ref []byte // non-owning view for RefBuffer-kind vars

	initial Initial
}

// Store is one decoder instance's variable table. Not safe for
// concurrent use; each decoder instance owns its own Store.
type Store struct {
	cap     int
	entries []entry
	byName  map[string]ID
}

// NewStore returns an empty Store with the default capacity.
func NewStore() *Store {
	return NewStoreWithCapacity(DefaultCapacity)
}

// NewStoreWithCapacity returns an empty Store bounded to cap entries.
func NewStoreWithCapacity(cap int) *Store {
	return &Store{cap: cap, byName: make(map[string]ID, cap)}
}

// Declare allocates a new variable slot. Returns [status.DBInconsistency]
// if name is already declared, or [status.ResourceExhaustion] if the
// store is already at capacity.
func (s *Store) Declare(name string, kind Kind, validity Validity, maxSize int, initial Initial) (ID, *status.Error) {
	if _, ok := s.byName[name]; ok {
		return InvalidID, status.New(status.DBInconsistency, 0, fmt.Sprintf("variable %q already declared", name))
	}
	if len(s.entries) >= s.cap {
		return InvalidID, status.New(status.ResourceExhaustion, 0, "variable table full")
	}
	e := entry{name: name, kind: kind, validity: validity, initial: initial}
	if kind == Buffer {
		e.owned = make([]byte, maxSize)
		e.maxSize = maxSize
		if len(initial.Buffer) > 0 {
			e.used = copy(e.owned, initial.Buffer)
		}
	} else {
		e.number = initial.Number
	}
	id := ID(len(s.entries))
	s.entries = append(s.entries, e)
	s.byName[name] = id
	return id, nil
}

// Lookup finds a variable's ID by name, or InvalidID if undeclared.
func (s *Store) Lookup(name string) (ID, bool) {
	id, ok := s.byName[name]
	if !ok {
		return InvalidID, false
	}
	return id, true
}

// Name returns a variable's declared name.
func (s *Store) Name(id ID) string { return s.entries[id].name }

// Kind returns a variable's declared kind.
func (s *Store) Kind(id ID) Kind { return s.entries[id].kind }

func (s *Store) get(id ID) (*entry, *status.Error) {
	if id < 0 || int(id) >= len(s.entries) {
		return nil, status.New(status.DBInconsistency, 0, "invalid variable id")
	}
	return &s.entries[id], nil
}

// SetNumber writes a numeric variable.
func (s *Store) SetNumber(id ID, v uint32) *status.Error {
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.number = v
	return nil
}

// Number reads a numeric variable's current value.
func (s *Store) Number(id ID) (uint32, *status.Error) {
	e, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return e.number, nil
}

// SetBuffer copies size bytes from src[offset:offset+size] into id's
// owned storage. Fails (resource-exhaustion) if size exceeds the
// variable's declared max size.
func (s *Store) SetBuffer(id ID, src []byte, offset, size int) *status.Error {
	e, err := s.get(id)
	if err != nil {
		return err
	}
	if size > e.maxSize {
		return status.New(status.ResourceExhaustion, offset, fmt.Sprintf("buffer variable %q overflow: %d > %d", e.name, size, e.maxSize))
	}
	if offset < 0 || offset+size > len(src) {
		return status.New(status.Truncation, offset, fmt.Sprintf("source too short for variable %q", e.name))
	}
	e.used = copy(e.owned, src[offset:offset+size])
	e.ref = nil
	return nil
}

// SetRefBuffer stores a non-owning view onto data[offset:offset+size].
func (s *Store) SetRefBuffer(id ID, data []byte, offset, size int) *status.Error {
	e, err := s.get(id)
	if err != nil {
		return err
	}
	if offset < 0 || size < 0 || offset+size > len(data) {
		return status.New(status.Truncation, offset, fmt.Sprintf("ref-buffer variable %q out of range", e.name))
	}
	e.ref = data[offset : offset+size]
	e.used = 0
	return nil
}

// ClearRefBuffer clears a ref-buffer variable's view.
func (s *Store) ClearRefBuffer(id ID) {
	e := &s.entries[id]
	e.ref = nil
}

// BufferSlice returns a view of start:start+size bytes of a buffer or
// ref-buffer variable's current value. Requesting past the end of the
// `packetbuffer` variable specifically is a Warning (truncation); any
// other out-of-range request against an owned buffer is a Failure.
func (s *Store) BufferSlice(id ID, start, size int) ([]byte, status.Code, *status.Error) {
	e, err := s.get(id)
	if err != nil {
		return nil, status.Failure, err
	}
	var data []byte
	switch e.kind {
	case RefBuffer:
		data = e.ref
	default:
		data = e.owned[:e.used]
	}
	if start < 0 || size < 0 || start+size > len(data) {
		if e.name == "packetbuffer" {
			code, werr := status.Truncated(start, fmt.Sprintf("read past end of packetbuffer (%d+%d > %d)", start, size, len(data)))
			return nil, code, werr
		}
		code, ferr := status.Fail(status.ResourceExhaustion, start, fmt.Sprintf("read past end of variable %q", e.name))
		return nil, code, ferr
	}
	return data[start : start+size], status.OK, nil
}

// Len returns the current length of a buffer/ref-buffer variable's value.
func (s *Store) Len(id ID) int {
	e := &s.entries[id]
	if e.kind == RefBuffer {
		return len(e.ref)
	}
	return e.used
}

// GCPacket resets every ThisPacket-validity variable to its initial
// value, maintaining the invariant that at the start of each packet
// decode V.value == V.initial_value.
func (s *Store) GCPacket() {
	for i := range s.entries {
		e := &s.entries[i]
		if e.validity != ThisPacket {
			continue
		}
		switch e.kind {
		case Number, Protocol:
			e.number = e.initial.Number
		case Buffer:
			e.used = copy(e.owned, e.initial.Buffer)
		case RefBuffer:
			e.ref = nil
		}
	}
}
