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

// Package zc (short for zero-copy) represents spans of a packet buffer
// without copying them.
package zc

import "fmt"

// Range is a zero-copy view into a packet buffer: a start offset and a
// length, both relative to the start of that buffer.
//
// The zero Range is the empty range at offset 0.
type Range struct {
	Offset int
	Length int
}

// New constructs a Range.
func New(offset, length int) Range {
	return Range{Offset: offset, Length: length}
}

// End returns the offset one past the end of this range.
func (r Range) End() int {
	return r.Offset + r.Length
}

// Bytes slices src according to this range. Panics if the range does not
// fit within src; callers are expected to have already bounds-checked
// against caplen: every node's span lies within [0, caplen).
func (r Range) Bytes(src []byte) []byte {
	if r.Length == 0 {
		return nil
	}
	return src[r.Offset : r.Offset+r.Length]
}

// String renders this range as "[offset:end)".
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Offset, r.End())
}
