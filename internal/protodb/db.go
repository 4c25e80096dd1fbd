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

package protodb

import "buf.build/go/netdecode/internal/arena"

// DB is a complete, read-only protocol description database.
//
// Once returned by [Builder.Build], a DB is immutable and may be shared
// across any number of concurrent decoder instances without locking.
type DB struct {
	Elements arena.Arena[Element]

	Protocols []Protocol

	StartProto        ProtoIndex
	DefaultProto      ProtoIndex
	EtherPaddingProto ProtoIndex

	// SummaryColumns names the N declared summary-view columns.
	SummaryColumns []string
}

// Element dereferences a Ref against this DB's element arena.
func (db *DB) Element(r Ref) *Element {
	return db.Elements.Get(r)
}

// Proto returns the protocol at index i.
func (db *DB) Proto(i ProtoIndex) *Protocol {
	return &db.Protocols[i]
}

// ProtoByName looks up a protocol's index by name, or (0, false) if
// there is no such protocol.
func (db *DB) ProtoByName(name string) (ProtoIndex, bool) {
	for i := range db.Protocols {
		if db.Protocols[i].Name == name {
			return ProtoIndex(i), true
		}
	}
	return 0, false
}
