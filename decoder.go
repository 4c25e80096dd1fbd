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
	"github.com/google/uuid"

	"buf.build/go/netdecode/internal/decoder"
	"buf.build/go/netdecode/internal/detail"
	"buf.build/go/netdecode/internal/summary"
)

// DetailTree is the parse tree produced for one packet: a sequence of
// per-protocol layers, each holding the fields decoded within it.
type DetailTree = detail.Tree

// SummaryRecord is the one-line-per-packet summary view, one value per
// configured summary column.
type SummaryRecord = summary.Record

// Decoder decodes packets against a shared, read-only [ProtocolDB]. A
// Decoder owns its own variable store, lookup-table store, and detail
// tree, and must not be called from more than one goroutine at a time;
// create one Decoder per goroutine (or per logical session/stream) over
// the same ProtocolDB.
type Decoder struct {
	inner *decoder.Decoder
}

// NewDecoder creates a Decoder over db, applying every opt in order.
func NewDecoder(db *ProtocolDB, opts ...DecodeOption) (*Decoder, error) {
	var o decoder.Options
	for _, opt := range opts {
		opt.apply(&o)
	}
	inner, err := decoder.New(db, o)
	if err != nil {
		return nil, wrapError(err)
	}
	return &Decoder{inner: inner}, nil
}

// SessionID identifies this Decoder for the lifetime of the process: a
// caller running one Decoder per logical session (e.g. one per
// TCP stream) can use it to correlate this-session-validity variable
// state against whatever external bookkeeping it keeps for that
// session.
func (d *Decoder) SessionID() uuid.UUID { return d.inner.SessionID }

// Release drops this Decoder's hold on the most recently decoded
// packet and empties its DetailTree. [DecoderPool] calls this on every
// Decoder it takes back, so a Decoder sitting idle in the pool between
// jobs does not keep the last packet's buffer (and any Raw field slices
// sliced from it) alive.
func (d *Decoder) Release() { d.inner.Release() }

// Result is what one [Decoder.DecodePacket] call produces.
type Result struct {
	Status  Status
	Err     *Error
	Tree    *DetailTree
	Summary *SummaryRecord
}

// DecodePacket decodes one frame captured on a link of the given type
// (an LINKTYPE_* / DLT_* value, as used by pcap) at the given capture
// timestamp. ordinal is an opaque, caller-assigned sequence number,
// recorded with the decoder's per-packet state; no standard variable
// exposes it to expressions.
func (d *Decoder) DecodePacket(linkType uint32, ordinal uint64, timestampS, timestampUS uint32, raw []byte) Result {
	r := d.inner.DecodePacket(linkType, ordinal, timestampS, timestampUS, raw)
	return Result{
		Status:  wrapStatus(r.Code),
		Err:     wrapError(r.Err),
		Tree:    r.Tree,
		Summary: r.Summary,
	}
}
