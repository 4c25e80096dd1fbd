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

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderChainLinksSiblingsInOrder(t *testing.T) {
	b := NewBuilder()
	a := b.Field(KindField, "a", FieldSpec{Shape: ShapeFixed, Fixed: FixedShape{Size: 1}})
	c := b.Field(KindField, "c", FieldSpec{Shape: ShapeFixed, Fixed: FixedShape{Size: 1}})
	head := b.Chain(a, c)

	assert.Equal(t, a, head)
	db, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, c, db.Element(a).NextSibling)
}

func TestBuilderSetEncapsulationAllowsForwardReference(t *testing.T) {
	b := NewBuilder()
	linkField := b.Field(KindField, "ethertype", FieldSpec{Shape: ShapeFixed, Fixed: FixedShape{Size: 2}})
	link := b.AddProtocol(Protocol{Name: "link", FirstField: linkField})

	payloadField := b.Field(KindField, "body", FieldSpec{Shape: ShapeEatAll})
	payload := b.AddProtocol(Protocol{Name: "payload", FirstField: payloadField})

	next := b.NextProto(b.NumberLit(uint32(payload)))
	b.SetEncapsulation(link, next)

	db, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, next, db.Protocols[link].FirstEncapsulation)
}

func TestBuildRejectsCyclicIncludeBlock(t *testing.T) {
	b := NewBuilder()
	blockA := b.Add(KindBlock, "a", &BlockSpec{})
	blockB := b.Add(KindBlock, "b", &BlockSpec{})

	// Each block's body is an include of the other, closing a cycle that
	// Build's strongly-connected-components check must reject.
	includeB := b.IncludeBlock(blockB)
	includeA := b.IncludeBlock(blockA)
	b.SetChildren(blockA, includeB)
	b.SetChildren(blockB, includeA)

	b.AddProtocol(Protocol{Name: "cyclic", FirstField: blockA})

	_, err := b.Build()
	require.Error(t, err)
}

func TestProtoByNameFindsRegisteredProtocol(t *testing.T) {
	b := NewBuilder()
	b.AddProtocol(Protocol{Name: "ip"})
	idx := b.AddProtocol(Protocol{Name: "tcp"})

	db, err := b.Build()
	require.NoError(t, err)

	found, ok := db.ProtoByName("tcp")
	require.True(t, ok)
	assert.Equal(t, idx, found)

	_, ok = db.ProtoByName("nosuch")
	assert.False(t, ok)
}

func TestCompileRegexCachesIdenticalPatterns(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]interface{ String() string }, 8)
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			re, err := CompileRegex(`^\d+$`)
			require.NoError(t, err)
			results[i] = re
		}()
	}
	wg.Wait()

	first := results[0]
	for _, r := range results[1:] {
		assert.Same(t, first, r)
	}
}
