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

package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/netdecode/internal/status"
)

func TestDeclareStandardAndSeed(t *testing.T) {
	s := NewStore()
	ids, err := DeclareStandard(s)
	require.Nil(t, err)

	require.Nil(t, s.SetNumber(ids.LinkType, 1))
	v, verr := s.Number(ids.LinkType)
	require.Nil(t, verr)
	assert.Equal(t, uint32(1), v)

	pkt := []byte("hello world")
	require.Nil(t, s.SetRefBuffer(ids.PacketBuffer, pkt, 0, len(pkt)))
	slice, code, serr := s.BufferSlice(ids.PacketBuffer, 6, 5)
	require.Nil(t, serr)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, "world", string(slice))
}

func TestBufferSlicePastPacketEndWarns(t *testing.T) {
	s := NewStore()
	ids, err := DeclareStandard(s)
	require.Nil(t, err)

	pkt := []byte("abc")
	require.Nil(t, s.SetRefBuffer(ids.PacketBuffer, pkt, 0, len(pkt)))
	_, code, serr := s.BufferSlice(ids.PacketBuffer, 1, 10)
	require.NotNil(t, serr)
	assert.Equal(t, status.Warning, code)
	assert.Equal(t, status.Truncation, serr.Kind)
}

func TestBufferVariableOverflowFails(t *testing.T) {
	s := NewStore()
	id, err := s.Declare("scratch", Buffer, ThisPacket, 4, Initial{})
	require.Nil(t, err)

	setErr := s.SetBuffer(id, []byte("toolong"), 0, 7)
	require.NotNil(t, setErr)
	assert.Equal(t, status.ResourceExhaustion, setErr.Kind)
}

func TestGCPacketResetsThisPacketVars(t *testing.T) {
	s := NewStore()
	id, err := s.Declare("counter", Number, ThisPacket, 0, Initial{Number: 7})
	require.Nil(t, err)

	require.Nil(t, s.SetNumber(id, 42))
	s.GCPacket()

	v, numErr := s.Number(id)
	require.Nil(t, numErr)
	assert.Equal(t, uint32(7), v)
}

func TestDeclareDuplicateNameFails(t *testing.T) {
	s := NewStore()
	_, err := s.Declare("x", Number, Static, 0, Initial{})
	require.Nil(t, err)

	_, err2 := s.Declare("x", Number, Static, 0, Initial{})
	require.NotNil(t, err2)
}

func TestStoreCapacityEnforced(t *testing.T) {
	s := NewStoreWithCapacity(1)
	_, err := s.Declare("a", Number, Static, 0, Initial{})
	require.Nil(t, err)

	_, err2 := s.Declare("b", Number, Static, 0, Initial{})
	require.NotNil(t, err2)
	assert.Equal(t, status.ResourceExhaustion, err2.Kind)
}
