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

// Package netdecode decodes raw packet bytes into a detail tree and a
// one-line summary record, driven entirely by a data-described protocol
// database rather than per-protocol Go code.
//
// Build a [ProtocolDB] with [NewBuilder] (or, in tests, by loading one
// through internal/protodbtest), [Compile] it, then create any number of
// [Decoder] instances over the compiled database and call
// [Decoder.DecodePacket] once per frame. A ProtocolDB is immutable once
// compiled and may be shared across goroutines; a Decoder is not and
// must not be used concurrently with itself.
//
// # Support status
//
// Parsing the protocol-description XML/YAML front-end format itself is
// out of scope: callers either build a [ProtocolDB] programmatically or
// supply one already built by their own front-end. Reassembly of
// fragmented transport-layer streams (e.g. TCP segments) is likewise out
// of scope — this package decodes one already-defragmented frame at a
// time.
package netdecode
