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

package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/netdecode/internal/arena"
)

type node struct {
	Name string
	Next arena.Ref
}

func TestNewAndGet(t *testing.T) {
	t.Parallel()

	var a arena.Arena[node]
	r1 := a.New()
	a.Get(r1).Name = "first"
	r2 := a.New()
	a.Get(r2).Name = "second"

	require.NotEqual(t, arena.Invalid, r1)
	require.NotEqual(t, r1, r2)
	assert.Equal(t, "first", a.Get(r1).Name)
	assert.Equal(t, "second", a.Get(r2).Name)
}

func TestTruncateRollsBack(t *testing.T) {
	t.Parallel()

	var a arena.Arena[node]
	a.New()
	mark := a.Len()

	a.New()
	a.New()
	assert.Greater(t, a.Len(), mark)

	a.Truncate(mark)
	assert.Equal(t, mark, a.Len())

	// Re-allocating after a truncate reuses indices cleanly.
	r := a.New()
	assert.Equal(t, mark, r)
}

func TestReset(t *testing.T) {
	t.Parallel()

	var a arena.Arena[node]
	a.New()
	a.New()
	a.Reset()
	assert.Equal(t, arena.Ref(0), a.Len())
}
