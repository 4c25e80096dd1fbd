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

// Package expr is the expression evaluator: it walks operand/operator
// trees from the protocol DB, resolving variables, lookup tables, prior
// DetailTree fields, and the raw packet.
package expr

import (
	"buf.build/go/netdecode/internal/detail"
	"buf.build/go/netdecode/internal/lookup"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/vars"
)

// Context is the environment an expression is evaluated against: one per
// packet decode, threaded through every field/protocol decision.
type Context struct {
	DB      *protodb.DB
	Vars    *vars.Store
	Lookups *lookup.Store
	Tree    *detail.Tree
	Packet  []byte

	// CurrentProto/CurrentField locate "where we are" in the DetailTree
	// for protofield-this and backward protofield resolution.
	CurrentProto detail.ProtoRef
	CurrentField detail.Ref

	// Now is the current packet's timestamp, used for lookup-table
	// expiry.
	Now uint64

	// lastMatch remembers, per lookup table name, the entry index most
	// recently matched by check/check-and-update, for select-field and
	// lookup-table-ref operands to resolve against the most recently
	// matched entry.
	lastMatch map[string]int
}

// NewContext returns a fresh evaluation context for one packet.
func NewContext(db *protodb.DB, v *vars.Store, lk *lookup.Store, tree *detail.Tree, packet []byte) *Context {
	return &Context{
		DB:        db,
		Vars:      v,
		Lookups:   lk,
		Tree:      tree,
		Packet:    packet,
		lastMatch: make(map[string]int),
	}
}

func (c *Context) setLastMatch(table string, idx int) { c.lastMatch[table] = idx }
func (c *Context) getLastMatch(table string) (int, bool) {
	idx, ok := c.lastMatch[table]
	return idx, ok
}

// LastMatch exposes a lookup table's most recently matched entry index
// to callers outside this package (the Field Decoder's
// `assign-lookuptable` element, which writes into that entry's data
// slot).
func (c *Context) LastMatch(table string) (int, bool) { return c.getLastMatch(table) }
