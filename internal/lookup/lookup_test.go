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

package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable() *Table {
	return NewTable("conntrack",
		[]KeySchema{{Name: "addr", Kind: Number}},
		[]DataSchema{{Name: "hits", Kind: Number}},
	)
}

func TestAddAndCheck(t *testing.T) {
	tbl := newTestTable()
	tbl.Add(
		[]Value{{Number: 10}},
		[]Value{{Number: 1}},
		true, 0, 0, 0, 100,
	)

	found, idx := tbl.Check([]Value{{Number: 10}}, 100)
	require.True(t, found)

	v, err := tbl.SelectField(idx, "hits")
	require.Nil(t, err)
	assert.Equal(t, uint32(1), v.Number)

	found2, _ := tbl.Check([]Value{{Number: 11}}, 100)
	assert.False(t, found2)
}

func TestKeepTimeExpiry(t *testing.T) {
	tbl := newTestTable()
	tbl.Add([]Value{{Number: 5}}, []Value{{Number: 0}}, true, 10, 0, 0, 100)

	found, _ := tbl.Check([]Value{{Number: 5}}, 105)
	assert.True(t, found)

	found2, _ := tbl.Check([]Value{{Number: 5}}, 115)
	assert.False(t, found2)
}

func TestHitTimeRefreshedByCheckAndUpdate(t *testing.T) {
	tbl := newTestTable()
	tbl.Add([]Value{{Number: 5}}, []Value{{Number: 0}}, true, 0, 5, 100, 100)

	// Before any hit, the narrower hit-time window (5) governs idle
	// expiry: idle of 4 is still within it.
	found, _ := tbl.Check([]Value{{Number: 5}}, 104)
	require.True(t, found)

	// CheckAndUpdate records a hit, after which new-hit-time (100) takes
	// over as the idle-expiry window.
	found2, idx := tbl.CheckAndUpdate([]Value{{Number: 5}}, 104)
	require.True(t, found2)
	require.Equal(t, 0, idx)

	found3, _ := tbl.Check([]Value{{Number: 5}}, 194)
	assert.True(t, found3)

	found4, _ := tbl.Check([]Value{{Number: 5}}, 210)
	assert.False(t, found4)
}

func TestMaskedKeyMatch(t *testing.T) {
	tbl := NewTable("subnets",
		[]KeySchema{{Name: "addr", Kind: Buffer, Size: 4, Mask: []byte{0xFF, 0xFF, 0xFF, 0x00}}},
		[]DataSchema{{Name: "label", Kind: Buffer, Size: 8}},
	)
	tbl.Add(
		[]Value{{Buffer: []byte{10, 0, 0, 0}}},
		[]Value{{Buffer: []byte("local")}},
		true, 0, 0, 0, 1,
	)

	found, _ := tbl.Check([]Value{{Buffer: []byte{10, 0, 0, 42}}}, 1)
	assert.True(t, found)

	found2, _ := tbl.Check([]Value{{Buffer: []byte{10, 0, 1, 42}}}, 1)
	assert.False(t, found2)
}

func TestObsoleteAndPurge(t *testing.T) {
	tbl := newTestTable()
	tbl.Add([]Value{{Number: 1}}, []Value{{Number: 0}}, true, 0, 0, 0, 1)

	tbl.Obsolete([]Value{{Number: 1}}, 1)
	found, _ := tbl.Check([]Value{{Number: 1}}, 1)
	assert.False(t, found)

	tbl2 := newTestTable()
	tbl2.Add([]Value{{Number: 1}}, []Value{{Number: 0}}, true, 0, 0, 0, 1)
	tbl2.Purge([]Value{{Number: 1}}, 1)
	assert.Len(t, tbl2.entries, 0)
}

func TestStoreDeclareAndLookup(t *testing.T) {
	s := NewStore()
	s.Declare("t1", nil, nil)
	_, ok := s.Table("t1")
	assert.True(t, ok)
	_, ok2 := s.Table("nope")
	assert.False(t, ok2)
}
