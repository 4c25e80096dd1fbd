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

package netdecode

import (
	"buf.build/go/netdecode/internal/decoder"
	"buf.build/go/netdecode/internal/plugin"
)

// Registry collects host-supplied field/show plugins and external-call
// handlers that a [ProtocolDB] may reference by id.
type Registry = plugin.Registry

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry { return plugin.NewRegistry() }

// DecodeOption is a configuration setting for [NewDecoder].
type DecodeOption struct{ apply func(*decoder.Options) }

// WithSummary enables SummaryView generation.
func WithSummary(enabled bool) DecodeOption {
	return DecodeOption{func(o *decoder.Options) { o.GenerateSummary = enabled }}
}

// WithDetailSimple requests the simple (top-level only) detail view.
func WithDetailSimple(enabled bool) DecodeOption {
	return DecodeOption{func(o *decoder.Options) { o.GenerateDetailSimple = enabled }}
}

// WithDetailFull requests the fully expanded detail tree.
func WithDetailFull(enabled bool) DecodeOption {
	return DecodeOption{func(o *decoder.Options) { o.GenerateDetailFull = enabled }}
}

// WithRawDump sets the DetailTree's RawDump flag. Every field node's Raw
// aliases its bytes in the packet whether or not this option is set; no
// copy is made.
func WithRawDump(enabled bool) DecodeOption {
	return DecodeOption{func(o *decoder.Options) { o.GenerateRawDump = enabled }}
}

// WithKeepAllPackets disables the engine's freedom to discard a
// packet's detail tree immediately after building its summary.
func WithKeepAllPackets(enabled bool) DecodeOption {
	return DecodeOption{func(o *decoder.Options) { o.KeepAllPackets = enabled }}
}

// WithMaxOffset bounds how many leading bytes of each frame are ever
// decoded, independent of any individual field's own bounds. Defaults to
// [decoder.DefaultMaxOffsetToBeDecoded] when unset or non-positive.
func WithMaxOffset(n int) DecodeOption {
	return DecodeOption{func(o *decoder.Options) { o.MaxOffsetToBeDecoded = n }}
}

// WithTrivialDiscardNodes makes the Field Decoder materialize a small
// "<discard>" child node for any bytes a field's own measurement skips
// over (a tokenwrapped field's wrapper bytes, a delimited field's begin
// match, an hdrline's trailing "\r\n", and similar) instead of silently
// consuming them. Off by default: most detail-tree consumers only want
// the fields themselves.
func WithTrivialDiscardNodes(enabled bool) DecodeOption {
	return DecodeOption{func(o *decoder.Options) { o.TrivialDiscardNodes = enabled }}
}

// WithRegistry supplies the host callbacks a [ProtocolDB] may reference
// (field/show plugins, external-call handlers). Without one, a DB that
// references a plugin id fails to decode with a plugin-error.
func WithRegistry(r *Registry) DecodeOption {
	return DecodeOption{func(o *decoder.Options) { o.Registry = r }}
}
