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

package zc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeEndAndBytes(t *testing.T) {
	buf := []byte("hello world")
	r := New(6, 5)
	assert.Equal(t, 11, r.End())
	assert.Equal(t, "world", string(r.Bytes(buf)))
}

func TestZeroLengthRangeYieldsNilBytes(t *testing.T) {
	r := New(3, 0)
	assert.Nil(t, r.Bytes([]byte("abcdef")))
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "[2:9)", New(2, 7).String())
}

func TestZeroValueRangeIsEmptyAtOffsetZero(t *testing.T) {
	var r Range
	assert.Equal(t, 0, r.Offset)
	assert.Equal(t, 0, r.End())
	assert.Nil(t, r.Bytes([]byte("x")))
}
