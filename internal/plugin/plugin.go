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

// Package plugin declares the external collaborator interfaces:
// native-function presentation callbacks, field/show plugins, and
// external-call handlers for update-lookuptable elements. The core never
// implements these itself — they are opaque, host-supplied callbacks.
package plugin

import "buf.build/go/netdecode/internal/status"

// ShowFieldView is the read-only view of a decoded field a [ShowCallback]
// receives. It is satisfied by internal/detail's field wrapper type, kept
// as an interface here (rather than importing internal/detail directly)
// so that the DetailTree Builder can depend on this package for dispatch
// without creating an import cycle.
type ShowFieldView interface {
	Name() string
	LongName() string
	Position() int
	Size() int
	Raw() []byte
	Mask() uint64
}

// NativeFunction is one of the four built-in presentation routines named
// by a field's visualization template: IPv4 dotted-quad, ASCII,
// ASCII-line, HTTP-content. Unlike Field/Show callbacks these are not
// host-supplied — the engine implements all four itself (see
// internal/detail/native.go) — but the type lives here so a host could
// register additional ones under the same calling convention.
type NativeFunction func(raw []byte) (show string, err error)

// FieldCallback is a field plugin: `(packet, offset, caplen) ->
// (size, status)`. Used by `plugin`-shaped fields to let a host compute a
// field's length by inspecting the raw packet directly.
type FieldCallback func(packet []byte, offset, caplen int) (size int, code status.Code, err error)

// ShowCallback is a show plugin: `(detail_node, packet, caplen,
// out_ascii_buffer) -> status`. Used by a field whose visualization
// template names a plugin id instead of a native function or template.
type ShowCallback func(field ShowFieldView, packet []byte, caplen int) (show string, code status.Code, err error)

// ExternalCallHandler is the `(namespace, function)` callback an
// update-lookuptable element may declare, invoked before and/or after the
// table update as the DB specifies.
type ExternalCallHandler func(namespace, function string) error

// Registry collects every host-supplied callback a [protodb.DB] may
// reference by id/namespace. The zero Registry has no callbacks
// registered. At decode time an unregistered field plugin is a
// plugin-error failure; an unregistered show plugin or external-call
// handler is skipped.
type Registry struct {
	fields    map[string]FieldCallback
	shows     map[string]ShowCallback
	externals map[string]ExternalCallHandler
}

// NewRegistry returns an empty callback Registry.
func NewRegistry() *Registry {
	return &Registry{
		fields:    make(map[string]FieldCallback),
		shows:     make(map[string]ShowCallback),
		externals: make(map[string]ExternalCallHandler),
	}
}

// RegisterField registers a field plugin under id.
func (r *Registry) RegisterField(id string, cb FieldCallback) { r.fields[id] = cb }

// RegisterShow registers a show plugin under id.
func (r *Registry) RegisterShow(id string, cb ShowCallback) { r.shows[id] = cb }

// RegisterExternalCall registers an external-call handler under
// "namespace.function".
func (r *Registry) RegisterExternalCall(namespace, function string, cb ExternalCallHandler) {
	r.externals[namespace+"."+function] = cb
}

// Field looks up a registered field plugin.
func (r *Registry) Field(id string) (FieldCallback, bool) { cb, ok := r.fields[id]; return cb, ok }

// Show looks up a registered show plugin.
func (r *Registry) Show(id string) (ShowCallback, bool) { cb, ok := r.shows[id]; return cb, ok }

// ExternalCall looks up a registered external-call handler.
func (r *Registry) ExternalCall(namespace, function string) (ExternalCallHandler, bool) {
	cb, ok := r.externals[namespace+"."+function]
	return cb, ok
}
