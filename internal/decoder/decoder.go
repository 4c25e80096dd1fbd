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

// Package decoder is the field decoder and protocol dispatcher: the two
// components that drive the expression evaluator and the runtime
// variable/lookup-table store to turn a raw frame into a [detail.Tree]
// plus (optionally) a [summary.Record].
package decoder

import (
	"github.com/google/uuid"

	"buf.build/go/netdecode/internal/detail"
	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/lookup"
	"buf.build/go/netdecode/internal/plugin"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
	"buf.build/go/netdecode/internal/summary"
	"buf.build/go/netdecode/internal/trace"
	"buf.build/go/netdecode/internal/vars"
)

// Options configures one [Decoder] instance.
type Options struct {
	GenerateSummary      bool
	GenerateDetailSimple bool
	GenerateDetailFull   bool
	GenerateRawDump      bool
	KeepAllPackets       bool
	MaxOffsetToBeDecoded int
	TrivialDiscardNodes  bool
	Registry             *plugin.Registry
}

// DefaultMaxOffsetToBeDecoded bounds the `(start-discard, len, end-discard)`
// sum invariant when Options.MaxOffsetToBeDecoded is left at zero.
const DefaultMaxOffsetToBeDecoded = 65535

// Decoder is one decoder instance: owns its own [vars.Store],
// [lookup.Store], [detail.Tree], and a shared, read-only [protodb.DB].
// Multiple Decoders may run in parallel provided each owns disjoint
// stores and arenas.
type Decoder struct {
	DB        *protodb.DB
	Vars      *vars.Store
	VarIDs    vars.StandardIDs
	Lookups   *lookup.Store
	Tree      *detail.Tree
	Registry  *plugin.Registry
	Opts      Options

	// SessionID identifies this decoder instance for the lifetime of the
	// process: a caller tracking independent sessions against a shared
	// read-only ProtocolDB (e.g. one Decoder per TCP stream) can
	// use it to correlate this-session-validity state externally. It is
	// not consulted by the engine itself — this-session variables live
	// in this Decoder's own *vars.Store regardless.
	SessionID uuid.UUID

	packet []byte
	caplen int

	ordinal uint64

	// Bit-group scratch state for bit-field container sharing: valid only
	// between the first and last-in-group bit subfield of one
	// sibling run, never across a decodeFields recursion boundary.
	bitActive        bool
	bitContainerStart int
	bitContainerSize  int
	bitRaw            uint64
}

// New returns a Decoder over db, with a freshly declared standard
// variable set. db is never mutated and may be shared across any number
// of Decoders.
func New(db *protodb.DB, opts Options) (*Decoder, *status.Error) {
	v := vars.NewStore()
	ids, serr := vars.DeclareStandard(v)
	if serr != nil {
		return nil, status.New(status.ResourceExhaustion, 0, serr.Error())
	}
	if opts.MaxOffsetToBeDecoded <= 0 {
		opts.MaxOffsetToBeDecoded = DefaultMaxOffsetToBeDecoded
	}
	if opts.Registry == nil {
		opts.Registry = plugin.NewRegistry()
	}
	return &Decoder{
		DB:        db,
		Vars:      v,
		VarIDs:    ids,
		Lookups:   lookup.NewStore(),
		Tree:      detail.NewTree(),
		Registry:  opts.Registry,
		Opts:      opts,
		SessionID: uuid.New(),
	}, nil
}

// Result is what one [Decoder.DecodePacket] call produces.
type Result struct {
	Code    status.Code
	Err     *status.Error
	Tree    *detail.Tree
	Summary *summary.Record
}

func (d *Decoder) newContext() *expr.Context {
	ctx := expr.NewContext(d.DB, d.Vars, d.Lookups, d.Tree, d.packet)
	return ctx
}

// Release drops this Decoder's hold on the most recently decoded
// packet and empties its DetailTree, without waiting for the next
// DecodePacket to do it as a side effect. A host returning a Decoder to
// a pool for reuse calls this so an idle, pooled Decoder does not pin
// the last packet's backing array (and any Raw byte slices sliced from
// it) for however long it sits unused.
func (d *Decoder) Release() {
	d.Tree.Reset()
	d.packet = nil
	d.caplen = 0
	d.bitActive = false
}

func (d *Decoder) traceProto(name string, offset int) {
	trace.Log("dispatcher", "proto=%s offset=%d", name, offset)
}

// offset returns $currentoffset as a plain int, the unit every decode
// routine in this package measures against.
func (d *Decoder) offset() int {
	v, _ := d.Vars.Number(d.VarIDs.CurrentOffset)
	return int(v)
}

func (d *Decoder) setOffset(v int) {
	_ = d.Vars.SetNumber(d.VarIDs.CurrentOffset, uint32(v))
}

func (d *Decoder) protoOffset() int {
	v, _ := d.Vars.Number(d.VarIDs.CurrentProtoOffset)
	return int(v)
}
