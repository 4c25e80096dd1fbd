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

package decoder

import (
	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
	"buf.build/go/netdecode/internal/summary"
)

// maxProtosPerPacket bounds the encapsulation walk against a
// misconfigured or adversarial DB whose nextproto chain cycles back on
// itself; it is not part of the public contract, just a backstop.
const maxProtosPerPacket = 256

// DecodePacket runs the protocol dispatcher over one raw frame:
// pre-work (variable GC, standard-variable seeding, tree reset), then the
// main encapsulation loop (execute-before, field decode, execute-after,
// next-protocol selection), finally the SummaryView if requested.
func (d *Decoder) DecodePacket(linkType uint32, ordinal uint64, timestampS, timestampUS uint32, raw []byte) Result {
	d.ordinal = ordinal
	d.packet = raw
	d.caplen = len(raw)
	d.bitActive = false

	d.Vars.GCPacket()
	d.Tree.Reset()
	d.Tree.RawDump = d.Opts.GenerateRawDump

	_ = d.Vars.SetNumber(d.VarIDs.LinkType, linkType)
	_ = d.Vars.SetNumber(d.VarIDs.FrameLen, uint32(len(raw)))
	_ = d.Vars.SetNumber(d.VarIDs.PacketLen, uint32(len(raw)))
	_ = d.Vars.SetNumber(d.VarIDs.TimestampS, timestampS)
	_ = d.Vars.SetNumber(d.VarIDs.TimestampUS, timestampUS)
	_ = d.Vars.SetNumber(d.VarIDs.CurrentOffset, 0)
	_ = d.Vars.SetNumber(d.VarIDs.CurrentProtoOffset, 0)
	_ = d.Vars.SetRefBuffer(d.VarIDs.PacketBuffer, raw, 0, len(raw))
	_ = d.Vars.SetNumber(d.VarIDs.PrevProto, uint32(protodb.NoProto))
	_ = d.Vars.SetNumber(d.VarIDs.NextProto, uint32(d.DB.StartProto))

	ctx := d.newContext()

	limit := len(raw)
	if d.Opts.MaxOffsetToBeDecoded > 0 && d.Opts.MaxOffsetToBeDecoded < limit {
		limit = d.Opts.MaxOffsetToBeDecoded
	}

	var rec *summary.Record
	if d.Opts.GenerateSummary {
		rec = summary.NewRecord(len(d.DB.SummaryColumns))
	}

	worst := status.OK
	var worstErr *status.Error

	protoIdx := d.DB.StartProto
	for count := 0; protoIdx != protodb.NoProto && count < maxProtosPerPacket; count++ {
		if d.offset() >= limit {
			break
		}
		code, err := d.decodeOneProto(ctx, protoIdx, limit, rec)
		if code == status.Failure {
			return Result{Code: code, Err: err, Tree: d.Tree, Summary: rec}
		}
		if code == status.Warning && worst != status.Failure {
			worst, worstErr = code, err
		}

		_ = d.Vars.SetNumber(d.VarIDs.PrevProto, uint32(protoIdx))

		proto := d.DB.Proto(protoIdx)
		next, code, err := d.selectNextProto(ctx, proto.FirstEncapsulation)
		if code == status.Failure {
			return Result{Code: code, Err: err, Tree: d.Tree, Summary: rec}
		}
		_ = d.Vars.SetNumber(d.VarIDs.NextProto, uint32(next))
		if next == protoIdx {
			break
		}
		protoIdx = next
		_ = d.Vars.SetNumber(d.VarIDs.CurrentProtoOffset, uint32(d.offset()))
	}

	return Result{Code: worst, Err: worstErr, Tree: d.Tree, Summary: rec}
}

func (d *Decoder) decodeOneProto(ctx *expr.Context, idx protodb.ProtoIndex, limit int, rec *summary.Record) (status.Code, *status.Error) {
	proto := d.DB.Proto(idx)
	start := d.offset()
	protoNode := d.Tree.NewProto(proto.Name, start)
	ctx.CurrentProto = protoNode

	d.traceProto(proto.Name, start)

	worst := status.OK
	var worstErr *status.Error

	if code, err := d.runCodeEntries(ctx, proto.ExecuteBefore); code == status.Failure {
		return code, err
	} else if code == status.Warning {
		worst, worstErr = code, err
	}

	var lc LoopCtrl
	code, _, err := d.decodeFields(ctx, proto.FirstField, limit, arena.Invalid, &lc)
	if code == status.Failure {
		return code, err
	}
	if code == status.Warning && worst != status.Failure {
		worst, worstErr = code, err
	}

	if code, err := d.runCodeEntries(ctx, proto.ExecuteAfter); code == status.Failure {
		return code, err
	} else if code == status.Warning && worst != status.Failure {
		worst, worstErr = code, err
	}

	size := d.offset() - start
	d.Tree.Proto(protoNode).Size = size
	if size == 0 && worst == status.OK {
		worst, worstErr = status.Truncated(start, "protocol consumed zero bytes")
	}

	if rec != nil {
		b := summaryBuilder(d.DB, ctx)
		if berr := b.BuildProtocol(proto.SummaryTemplate, rec); berr != nil {
			c, serr := status.Fail(status.PluginError, start, berr.Error())
			return c, serr
		}
	}

	return worst, worstErr
}

func summaryBuilder(db *protodb.DB, ctx *expr.Context) *summary.Builder {
	return &summary.Builder{DB: db, Ctx: ctx}
}
