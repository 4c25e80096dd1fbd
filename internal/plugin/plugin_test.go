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

package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/netdecode/internal/status"
)

func TestRegistryFieldRoundTrip(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Field("missing")
	require.False(t, ok)

	r.RegisterField("len-plugin", func(packet []byte, offset, caplen int) (int, status.Code, error) {
		return caplen - offset, status.OK, nil
	})

	cb, ok := r.Field("len-plugin")
	require.True(t, ok)
	size, code, err := cb([]byte("abcdef"), 2, 6)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, 4, size)
}

func TestRegistryShowRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.RegisterShow("hex-show", func(field ShowFieldView, packet []byte, caplen int) (string, status.Code, error) {
		return field.Name(), status.OK, nil
	})

	cb, ok := r.Show("hex-show")
	require.True(t, ok)
	show, code, err := cb(fakeField{name: "ttl"}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, "ttl", show)
}

func TestRegistryExternalCallNamespacing(t *testing.T) {
	r := NewRegistry()
	var called []string
	r.RegisterExternalCall("ns", "fn", func(namespace, function string) error {
		called = append(called, namespace+"."+function)
		return nil
	})

	_, ok := r.ExternalCall("ns", "other")
	require.False(t, ok)

	cb, ok := r.ExternalCall("ns", "fn")
	require.True(t, ok)
	require.NoError(t, cb("ns", "fn"))
	assert.Equal(t, []string{"ns.fn"}, called)
}

type fakeField struct{ name string }

func (f fakeField) Name() string     { return f.name }
func (f fakeField) LongName() string { return "" }
func (f fakeField) Position() int    { return 0 }
func (f fakeField) Size() int        { return 0 }
func (f fakeField) Raw() []byte      { return nil }
func (f fakeField) Mask() uint64     { return 0 }
