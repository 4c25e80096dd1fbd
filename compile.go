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

package netdecode

import "buf.build/go/netdecode/internal/protodb"

// ProtocolDB is a compiled, read-only protocol description: the set of
// protocols, fields, and expressions a [Decoder] walks to decode a
// packet. It is safe to share a single ProtocolDB across any number of
// concurrently running Decoders.
type ProtocolDB = protodb.DB

// Builder constructs a [ProtocolDB] programmatically, standing in for a
// real protocol-description front-end (XML or otherwise), which is out
// of scope for this package. See internal/protodbtest for this repo's
// own YAML-driven test fixtures, built the same way.
type Builder = protodb.Builder

// NewBuilder returns an empty [Builder].
func NewBuilder() *Builder { return protodb.NewBuilder() }

// Compile finalizes b into a [ProtocolDB], rejecting a database whose
// include-block references form a cycle.
func Compile(b *Builder) (*ProtocolDB, error) {
	return b.Build()
}
