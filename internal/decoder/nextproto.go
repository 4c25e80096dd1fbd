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
	"buf.build/go/netdecode/internal/vars"
)

// encapResult is what walking one encapsulation tree finds: a definite
// match (found), or the first candidate/deferred result remembered along
// the way if nothing definite turns up.
type encapResult struct {
	found     bool
	proto     protodb.ProtoIndex
	candidate protodb.ProtoIndex
	haveCand  bool
}

// selectNextProto walks e's encapsulation tree (a protocol's
// FirstEncapsulation chain) to choose the following protocol.
//
// "first found wins": the first nextproto element that names a valid
// protocol, or the first nextproto-candidate whose verify section sets
// $protoverifyresult to found, returns immediately. Absent that, the
// first candidate whose verify section leaves $protoverifyresult at
// candidate or deferred is remembered and returned once the whole tree
// has been walked. If nothing matches, DefaultProto is returned;
// EtherPaddingProto takes its place only when DefaultProto is unset,
// with no bytes-remaining check gating it.
func (d *Decoder) selectNextProto(ctx *expr.Context, first protodb.Ref) (protodb.ProtoIndex, status.Code, *status.Error) {
	res, code, err := d.walkEncapChain(ctx, first)
	if code == status.Failure {
		return protodb.NoProto, code, err
	}
	if res.found {
		return res.proto, status.OK, nil
	}
	if res.haveCand {
		return res.candidate, status.OK, nil
	}
	if d.DB.DefaultProto == protodb.NoProto && d.DB.EtherPaddingProto != protodb.NoProto {
		return d.DB.EtherPaddingProto, status.OK, nil
	}
	if d.DB.DefaultProto == protodb.NoProto {
		return protodb.NoProto, status.OK, nil
	}
	return d.DB.DefaultProto, status.OK, nil
}

func (d *Decoder) walkEncapChain(ctx *expr.Context, first protodb.Ref) (encapResult, status.Code, *status.Error) {
	var res encapResult
	for el := first; el != arena.Invalid; {
		e := d.DB.Element(el)
		r, code, err := d.walkEncapElement(ctx, el, e)
		if code == status.Failure {
			return res, code, err
		}
		if r.found {
			return r, status.OK, nil
		}
		if r.haveCand && !res.haveCand {
			res.haveCand, res.candidate = true, r.candidate
		}
		el = e.NextSibling
	}
	return res, status.OK, nil
}

func (d *Decoder) walkEncapElement(ctx *expr.Context, ref protodb.Ref, e *protodb.Element) (encapResult, status.Code, *status.Error) {
	switch e.Kind {
	case protodb.KindNextProto:
		return d.evalNextProto(ctx, e.NextProto())

	case protodb.KindNextProtoCandidate:
		return d.evalNextProtoCandidate(ctx, e.NextProto())

	case protodb.KindIf:
		spec := e.If()
		ok, code, err := expr.EvalBool(ctx, spec.Condition)
		if code == status.Failure {
			return encapResult{}, code, err
		}
		if code == status.Warning {
			return encapResult{}, status.OK, nil
		}
		if ok {
			return d.walkEncapChain(ctx, spec.Then)
		}
		if spec.Else != arena.Invalid {
			return d.walkEncapChain(ctx, spec.Else)
		}
		return encapResult{}, status.OK, nil

	case protodb.KindSwitch:
		body, code, err := d.selectCase(ctx, ref)
		if code == status.Failure {
			return encapResult{}, code, err
		}
		if code == status.Warning || body == arena.Invalid {
			return encapResult{}, status.OK, nil
		}
		return d.walkEncapChain(ctx, body)

	case protodb.KindAssignVariable:
		code, err := d.applyAssignVariable(ctx, e.AssignVariable())
		return encapResult{}, code, err

	case protodb.KindAssignLookupTable:
		code, err := d.applyAssignLookupTable(ctx, e.AssignLookupTable())
		return encapResult{}, code, err

	case protodb.KindUpdateLookupTable:
		code, err := d.applyUpdateLookupTable(ctx, e.UpdateLookupTable())
		return encapResult{}, code, err

	default:
		return encapResult{}, status.OK, nil
	}
}

func (d *Decoder) evalNextProto(ctx *expr.Context, spec *protodb.NextProtoSpec) (encapResult, status.Code, *status.Error) {
	n, code, err := expr.EvalNumber(ctx, spec.ProtoExpr)
	if code != status.OK {
		return encapResult{}, code, err
	}
	idx := protodb.ProtoIndex(n)
	if idx < 0 || int(idx) >= len(d.DB.Protocols) {
		return encapResult{}, status.OK, nil
	}
	return encapResult{found: true, proto: idx}, status.OK, nil
}

// evalNextProtoCandidate runs the candidate protocol's execute-verify
// section and reads back $protoverifyresult to decide whether this
// candidate is a definite match, a remembered fallback, or a miss.
func (d *Decoder) evalNextProtoCandidate(ctx *expr.Context, spec *protodb.NextProtoSpec) (encapResult, status.Code, *status.Error) {
	n, code, err := expr.EvalNumber(ctx, spec.ProtoExpr)
	if code != status.OK {
		return encapResult{}, code, err
	}
	idx := protodb.ProtoIndex(n)
	if idx < 0 || int(idx) >= len(d.DB.Protocols) {
		return encapResult{}, status.OK, nil
	}

	_ = d.Vars.SetNumber(d.VarIDs.ProtoVerifyResult, uint32(vars.VerifyNotFound))
	proto := d.DB.Proto(idx)
	code, err = d.runCodeEntries(ctx, proto.ExecuteVerify)
	if code == status.Failure {
		return encapResult{}, code, err
	}

	result, _ := d.Vars.Number(d.VarIDs.ProtoVerifyResult)
	switch vars.ProtoVerifyResult(result) {
	case vars.VerifyFound:
		return encapResult{found: true, proto: idx}, status.OK, nil
	case vars.VerifyCandidate, vars.VerifyDeferred:
		return encapResult{haveCand: true, candidate: idx}, status.OK, nil
	default:
		return encapResult{}, status.OK, nil
	}
}
