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

package detail

import "buf.build/go/netdecode/internal/arena"

// ResolveProtoField resolves a `protoname.fieldname[.sub...]` operand
// against the tree built so far: scanning protocols from the one most
// recently decoded (fromProto) backward to the first one, and within
// the matched protocol's field forest, preferring the latest occurrence
// of each path component; sub-names are matched by descending through
// children.
//
// Returns (ref, false) if no protocol/field in the path has been
// decoded yet — a Warning (missing-field-reference), not a Failure.
func (t *Tree) ResolveProtoField(fromProto ProtoRef, path []string) (Ref, bool) {
	if len(path) == 0 {
		return arena.Invalid, false
	}
	protoName, fieldPath := path[0], path[1:]

	found := ProtoRef(arena.Invalid)
	for p := t.FirstProto; p != arena.Invalid; p = t.Protos.Get(p).NextSibling {
		if t.Protos.Get(p).Name == protoName {
			found = p
		}
		if p == fromProto {
			break
		}
	}
	if found == arena.Invalid {
		return arena.Invalid, false
	}
	if len(fieldPath) == 0 {
		// A bare protocol name with no field component resolves to
		// nothing useful; callers always supply at least one field name.
		return arena.Invalid, false
	}
	return t.resolveFieldPath(found, fieldPath)
}

func (t *Tree) resolveFieldPath(proto ProtoRef, path []string) (Ref, bool) {
	found := Ref(arena.Invalid)
	for r := t.Protos.Get(proto).FirstField; r != arena.Invalid; r = t.Fields.Get(r).NextSibling {
		if t.Fields.Get(r).Name == path[0] {
			found = r
		}
	}
	if found == arena.Invalid {
		return arena.Invalid, false
	}
	if len(path) == 1 {
		return found, true
	}
	return t.resolveChildPath(found, path[1:])
}

func (t *Tree) resolveChildPath(parent Ref, path []string) (Ref, bool) {
	found := Ref(arena.Invalid)
	for r := t.Fields.Get(parent).FirstChild; r != arena.Invalid; r = t.Fields.Get(r).NextSibling {
		if t.Fields.Get(r).Name == path[0] {
			found = r
		}
	}
	if found == arena.Invalid {
		return arena.Invalid, false
	}
	if len(path) == 1 {
		return found, true
	}
	return t.resolveChildPath(found, path[1:])
}

// Field dereferences a field Ref.
func (t *Tree) Field(r Ref) *FieldNode { return t.Fields.Get(r) }

// Proto dereferences a proto Ref.
func (t *Tree) Proto(r ProtoRef) *ProtoNode { return t.Protos.Get(r) }
