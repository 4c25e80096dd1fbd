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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/protodb"
)

func TestNewProtoAndFieldChaining(t *testing.T) {
	tree := NewTree()
	p := tree.NewProto("ip", 0)
	f1 := tree.NewField(arena.Invalid, p, true)
	tree.Field(f1).Name = "version"
	f2 := tree.NewField(arena.Invalid, p, true)
	tree.Field(f2).Name = "ihl"

	var names []string
	for r := range tree.ProtoFields(p) {
		names = append(names, tree.Field(r).Name)
	}
	assert.Equal(t, []string{"version", "ihl"}, names)
}

func TestRollbackDiscardsSpeculativeNodes(t *testing.T) {
	tree := NewTree()
	p := tree.NewProto("ip", 0)
	cp := tree.Mark()

	tree.NewField(arena.Invalid, p, true)
	tree.NewField(arena.Invalid, p, true)

	tree.Rollback(cp)

	count := 0
	for range tree.ProtoFields(p) {
		count++
	}
	assert.Equal(t, 0, count)
}

func TestResolveProtoFieldMostRecentOccurrence(t *testing.T) {
	tree := NewTree()
	ip := tree.NewProto("ip", 0)
	f1 := tree.NewField(arena.Invalid, ip, true)
	tree.Field(f1).Name = "ttl"
	tree.Field(f1).Raw = []byte{64}

	tcp := tree.NewProto("tcp", 20)
	f2 := tree.NewField(arena.Invalid, tcp, true)
	tree.Field(f2).Name = "srcport"
	tree.Field(f2).Raw = []byte{0, 80}

	r, ok := tree.ResolveProtoField(tcp, []string{"ip", "ttl"})
	require.True(t, ok)
	assert.Equal(t, byte(64), tree.Field(r).Raw[0])

	_, ok2 := tree.ResolveProtoField(tcp, []string{"udp", "len"})
	assert.False(t, ok2)
}

func TestResolveProtoFieldDescendsIntoChildren(t *testing.T) {
	tree := NewTree()
	p := tree.NewProto("tlv", 0)
	parent := tree.NewField(arena.Invalid, p, true)
	tree.Field(parent).Name = "opt"
	child := tree.NewField(parent, p, true)
	tree.Field(child).Name = "Value"
	tree.Field(child).Raw = []byte{1, 2}

	r, ok := tree.ResolveProtoField(p, []string{"tlv", "opt", "Value"})
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, tree.Field(r).Raw)
}

func TestFormatFieldHexTemplate(t *testing.T) {
	tree := NewTree()
	p := tree.NewProto("ip", 0)
	f := tree.NewField(arena.Invalid, p, true)
	tree.Field(f).Raw = []byte{0x7f, 0x00, 0x00, 0x01}

	visual := &protodb.VisualTemplate{Base: protodb.BaseHex, DigitSize: 4}
	err := tree.FormatField(f, &protodb.DB{}, visual, nil)
	require.NoError(t, err)
	assert.Equal(t, "0x7f000001", tree.Field(f).ShowValue)
}

func TestFormatFieldNativeIPv4(t *testing.T) {
	tree := NewTree()
	p := tree.NewProto("ip", 0)
	f := tree.NewField(arena.Invalid, p, true)
	tree.Field(f).Raw = []byte{127, 0, 0, 1}

	visual := &protodb.VisualTemplate{HasNativeFunction: true, NativeFunction: protodb.NativeIPv4Dotted}
	err := tree.FormatField(f, &protodb.DB{}, visual, nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", tree.Field(f).ShowValue)
}
