// Copyright 2020-2025 Buf Technologies, Inc.
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

// Package arena provides a growable, index-addressed bump allocator for
// per-packet node storage.
//
// # Design
//
// Rather than handing out raw pointers (which would require the unsafe,
// self-referential tricks a pointer-based arena needs to stay
// GC-sound), this arena hands out [Ref] values: small integers that
// index into the arena's backing slice. A Ref is only valid for the
// arena that produced it, and stays valid until that arena is [Reset].
//
// This matches the approach recommended for the protocol DB's own
// element graph (arena of records indexed by integer ID, with
// FirstChild/NextSibling as optional indices): DetailTree nodes are
// allocated the same way, so that discarding a whole packet's nodes, or
// rolling back a speculative `set`/`choice` iteration, is just a slice
// truncation.
package arena

// Ref is an index into an [Arena[T]]'s backing storage. The zero Ref is
// never issued by [Arena.New]; it is reserved to mean "no node", mirroring
// the protocol DB's own Option<u32> child/sibling links.
type Ref uint32

// Invalid is the reserved "no node" reference.
const Invalid Ref = 0

// Arena is a bump allocator for values of type T, addressed by [Ref].
//
// The zero Arena is empty and ready to use.
type Arena[T any] struct {
	slots []T
}

// New allocates a fresh zero-valued T and returns a reference to it.
func (a *Arena[T]) New() Ref {
	if len(a.slots) == 0 {
		// Slot 0 is burned so that the zero Ref can mean "invalid".
		var zero T
		a.slots = append(a.slots, zero)
	}
	var zero T
	a.slots = append(a.slots, zero)
	return Ref(len(a.slots) - 1)
}

// Get dereferences a [Ref] into a pointer to its backing storage.
//
// The returned pointer is only valid until the next call to [Arena.New]
// (which may reallocate the backing slice) or [Arena.Reset]/[Arena.Truncate].
func (a *Arena[T]) Get(r Ref) *T {
	return &a.slots[r]
}

// Len returns one past the highest valid [Ref] issued so far (i.e. the
// value a subsequent [Arena.New] would return), or 0 for an empty arena,
// whose first [Arena.New] returns 1.
func (a *Arena[T]) Len() Ref {
	return Ref(len(a.slots))
}

// Truncate discards every node allocated at or after mark, restoring the
// arena to the state it was in when mark was captured via [Arena.Len].
//
// This is the mechanism behind speculative rollback for `set`/`choice`
// iterations: a checkpoint captures Len() before speculating, and a
// failed speculation truncates back to it.
func (a *Arena[T]) Truncate(mark Ref) {
	if int(mark) > len(a.slots) {
		return
	}
	var zero T
	for i := mark; int(i) < len(a.slots); i++ {
		a.slots[i] = zero
	}
	a.slots = a.slots[:mark]
}

// Reset empties the arena entirely, allowing its backing storage to be
// reused for the next packet.
func (a *Arena[T]) Reset() {
	a.Truncate(0)
}
