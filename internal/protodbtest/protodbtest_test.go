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

package protodbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/netdecode/internal/arena"
)

const tinyLinkLayer = `
start: link
default: payload
protocols:
  - name: link
    fields:
      - name: ethertype
        shape: fixed
        size: 2
    nextproto:
      key_field_ref: link.ethertype
      cases:
        - value: 8
          proto: payload
  - name: payload
    fields:
      - name: body
        shape: eatall
`

func TestLoadBuildsStartAndDefaultProtocols(t *testing.T) {
	db, err := Load([]byte(tinyLinkLayer))
	require.NoError(t, err)
	require.Len(t, db.Protocols, 2)
	assert.Equal(t, "link", db.Protocols[db.StartProto].Name)
	assert.Equal(t, "payload", db.Protocols[db.DefaultProto].Name)
}

func TestLoadWiresForwardNextProtoReference(t *testing.T) {
	db, err := Load([]byte(tinyLinkLayer))
	require.NoError(t, err)

	link := db.Protocols[db.StartProto]
	require.NotEqual(t, arena.Invalid, link.FirstEncapsulation)
}

func TestLoadRejectsUnknownStartProtocol(t *testing.T) {
	_, err := Load([]byte("start: nosuch\nprotocols: []\n"))
	require.Error(t, err)
}

func TestLoadRejectsMalformedFieldRef(t *testing.T) {
	doc := `
start: link
protocols:
  - name: link
    fields:
      - name: len
        shape: variable
        length_field_ref: badref
`
	_, err := Load([]byte(doc))
	require.Error(t, err)
}

func TestLoadRejectsUnsupportedShape(t *testing.T) {
	doc := `
start: p
protocols:
  - name: p
    fields:
      - name: f
        shape: nonsense
`
	_, err := Load([]byte(doc))
	require.Error(t, err)
}
