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

// Package detail is the DetailTree builder: per-packet arenas of
// ProtoNodes and FieldNodes, with presentation (ShowValue/ShowMap)
// rendering and speculative-rollback support.
package detail

import (
	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/zc"
)

// Ref addresses a [FieldNode] within a [Tree]'s field arena.
type Ref = arena.Ref

// ProtoRef addresses a [ProtoNode] within a [Tree]'s proto arena.
type ProtoRef = arena.Ref

const (
	initialProtoCap = 20
	initialFieldCap = 400
)

// ProtoNode is one decoded protocol header, chained in capture order.
type ProtoNode struct {
	Name        string
	StartOffset int
	Size        int

	FirstField  Ref
	NextSibling ProtoRef
}

// FieldNode is one decoded field or block.
type FieldNode struct {
	Name     string
	LongName string

	Position int // absolute offset within the packet buffer
	Size     int
	Raw      []byte // the field's bytes, aliasing the packet buffer
	Mask     uint64

	ShowValue   string
	ShowMap     string
	HasShowMap  bool
	ShowDetails string

	Parent      Ref
	FirstChild  Ref
	NextSibling Ref

	IsField   bool // false for block roots
	ProtoNode ProtoRef
}

// Span returns f's location within the packet buffer as a zero-copy
// range, for callers that want the (offset, length) pair without
// touching f.Raw.
func (f *FieldNode) Span() zc.Range {
	return zc.New(f.Position, f.Size)
}

// Tree is one packet's DetailTree: a forest of ProtoNodes, each owning a
// forest of FieldNodes, all allocated from per-packet arenas, pre-sized
// to an initial 20 protos / 400 fields. The underlying [arena.Arena]
// already grows geometrically via Go slice append, which gives the same
// amortized behavior as doubling on overflow without a fixed policy to
// maintain by hand.
type Tree struct {
	Protos arena.Arena[ProtoNode]
	Fields arena.Arena[FieldNode]

	FirstProto ProtoRef
	lastProto  ProtoRef

	RawDump bool // records the raw-dump option; Raw is filled either way
}

// NewTree returns an empty DetailTree, pre-sizing its arenas to the
// spec's suggested initial capacities.
func NewTree() *Tree {
	t := &Tree{}
	t.Protos = arena.Arena[ProtoNode]{}
	t.Fields = arena.Arena[FieldNode]{}
	for range initialProtoCap {
		t.Protos.New()
	}
	for range initialFieldCap {
		t.Fields.New()
	}
	t.Protos.Reset()
	t.Fields.Reset()
	return t
}

// Reset empties the tree for a new packet, retaining arena capacity.
func (t *Tree) Reset() {
	t.Protos.Reset()
	t.Fields.Reset()
	t.FirstProto = arena.Invalid
	t.lastProto = arena.Invalid
}

// Checkpoint is a snapshot of arena growth, used to implement
// speculative-decode rollback.
type Checkpoint struct {
	ProtoMark ProtoRef
	FieldMark Ref
}

// Mark captures the tree's current checkpoint.
func (t *Tree) Mark() Checkpoint {
	return Checkpoint{ProtoMark: t.Protos.Len(), FieldMark: t.Fields.Len()}
}

// Rollback discards every node allocated since cp was captured.
func (t *Tree) Rollback(cp Checkpoint) {
	t.Protos.Truncate(cp.ProtoMark)
	t.Fields.Truncate(cp.FieldMark)
	if t.FirstProto >= cp.ProtoMark {
		t.FirstProto = arena.Invalid
	}
	for r := arena.Ref(1); r < t.Protos.Len(); r++ {
		p := t.Protos.Get(r)
		if p.NextSibling >= cp.ProtoMark {
			p.NextSibling = arena.Invalid
		}
		if p.FirstField >= cp.FieldMark {
			p.FirstField = arena.Invalid
		}
	}
	for r := arena.Ref(1); r < t.Fields.Len(); r++ {
		f := t.Fields.Get(r)
		if f.FirstChild >= cp.FieldMark {
			f.FirstChild = arena.Invalid
		}
		if f.NextSibling >= cp.FieldMark {
			f.NextSibling = arena.Invalid
		}
	}
	if t.lastProto != arena.Invalid && t.lastProto >= cp.ProtoMark {
		t.lastProto = arena.Invalid
		for r := t.FirstProto; r != arena.Invalid && r < cp.ProtoMark; r = t.Protos.Get(r).NextSibling {
			t.lastProto = r
		}
	}
}

// NewProto allocates a new ProtoNode, chaining it after the last one.
func (t *Tree) NewProto(name string, startOffset int) ProtoRef {
	r := t.Protos.New()
	*t.Protos.Get(r) = ProtoNode{Name: name, StartOffset: startOffset, FirstField: arena.Invalid, NextSibling: arena.Invalid}
	if t.FirstProto == arena.Invalid {
		t.FirstProto = r
	} else {
		t.Protos.Get(t.lastProto).NextSibling = r
	}
	t.lastProto = r
	return r
}

// DiscardProto returns the most recently allocated ProtoNode to the
// arena, used when a protocol decode produces a zero-length, non-kept
// result.
func (t *Tree) DiscardProto(r ProtoRef) {
	if r != t.lastProto {
		return
	}
	t.Protos.Truncate(r)
	t.lastProto = arena.Invalid
	for p := t.FirstProto; p != arena.Invalid && p < r; p = t.Protos.Get(p).NextSibling {
		t.lastProto = p
	}
	if t.FirstProto == r {
		t.FirstProto = arena.Invalid
	}
}

// NewField allocates a new FieldNode as the last child of parent (or as a
// root field of protoNode if parent is arena.Invalid).
func (t *Tree) NewField(parent Ref, protoNode ProtoRef, isField bool) Ref {
	r := t.Fields.New()
	*t.Fields.Get(r) = FieldNode{Parent: parent, FirstChild: arena.Invalid, NextSibling: arena.Invalid, IsField: isField, ProtoNode: protoNode}
	if parent == arena.Invalid {
		pn := t.Protos.Get(protoNode)
		if pn.FirstField == arena.Invalid {
			pn.FirstField = r
		} else {
			t.appendSibling(pn.FirstField, r)
		}
	} else {
		pf := t.Fields.Get(parent)
		if pf.FirstChild == arena.Invalid {
			pf.FirstChild = r
		} else {
			t.appendSibling(pf.FirstChild, r)
		}
	}
	return r
}

func (t *Tree) appendSibling(head, tail Ref) {
	cur := head
	for {
		n := t.Fields.Get(cur)
		if n.NextSibling == arena.Invalid {
			n.NextSibling = tail
			return
		}
		cur = n.NextSibling
	}
}

// DiscardField returns the most recently allocated FieldNode to the
// arena (used by block elements that end up contributing zero bytes,
// and by the trivial commit path before a full rollback is needed).
func (t *Tree) DiscardField(r Ref) {
	t.Rollback(Checkpoint{ProtoMark: t.Protos.Len(), FieldMark: r})
}

// Children iterates the direct children of a FieldNode.
func (t *Tree) Children(parent Ref) func(yield func(Ref) bool) {
	return func(yield func(Ref) bool) {
		for r := t.Fields.Get(parent).FirstChild; r != arena.Invalid; r = t.Fields.Get(r).NextSibling {
			if !yield(r) {
				return
			}
		}
	}
}

// ProtoFields iterates the top-level fields of a ProtoNode.
func (t *Tree) ProtoFields(p ProtoRef) func(yield func(Ref) bool) {
	return func(yield func(Ref) bool) {
		for r := t.Protos.Get(p).FirstField; r != arena.Invalid; r = t.Fields.Get(r).NextSibling {
			if !yield(r) {
				return
			}
		}
	}
}

// Protocols iterates ProtoNodes in capture order.
func (t *Tree) Protocols() func(yield func(ProtoRef) bool) {
	return func(yield func(ProtoRef) bool) {
		for r := t.FirstProto; r != arena.Invalid; r = t.Protos.Get(r).NextSibling {
			if !yield(r) {
				return
			}
		}
	}
}
