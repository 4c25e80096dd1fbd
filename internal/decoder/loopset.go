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
	"buf.build/go/netdecode/internal/detail"
	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
)

// decodeLoop runs a loop body repeatedly per its declared kind
// (times-to-repeat, while, do-while, size-bounded), honoring
// break/continue signaled by a nested loopctrl element.
func (d *Decoder) decodeLoop(ctx *expr.Context, spec *protodb.LoopSpec, maxOffset int, parent detail.Ref) (status.Code, *status.Error) {
	worst := status.OK
	var worstErr *status.Error

	runBody := func(bound int) (bool, status.Code, *status.Error) {
		var lc LoopCtrl
		code, _, err := d.decodeFields(ctx, spec.Body, bound, parent, &lc)
		if code == status.Failure {
			return false, code, err
		}
		if code == status.Warning && worst != status.Failure {
			worst, worstErr = code, err
		}
		return lc == LoopBreak, status.OK, nil
	}

	switch spec.Kind {
	case protodb.LoopTimesToRepeat:
		n, code, err := expr.EvalNumber(ctx, spec.CountExpr)
		if code == status.Failure {
			return code, err
		}
		for i := 0; i < int(n); i++ {
			brk, code, err := runBody(maxOffset)
			if code == status.Failure {
				return code, err
			}
			if brk {
				break
			}
		}

	case protodb.LoopWhile:
		for {
			ok, code, err := expr.EvalBool(ctx, spec.ConditionExpr)
			if code == status.Failure {
				return code, err
			}
			if code == status.Warning || !ok {
				break
			}
			if d.offset() >= maxOffset {
				break
			}
			brk, code, err := runBody(maxOffset)
			if code == status.Failure {
				return code, err
			}
			if brk {
				break
			}
		}

	case protodb.LoopDoWhile:
		for {
			brk, code, err := runBody(maxOffset)
			if code == status.Failure {
				return code, err
			}
			if brk {
				break
			}
			ok, code2, err2 := expr.EvalBool(ctx, spec.ConditionExpr)
			if code2 == status.Failure {
				return code2, err2
			}
			if code2 == status.Warning || !ok {
				break
			}
			if d.offset() >= maxOffset {
				break
			}
		}

	case protodb.LoopSize:
		n, code, err := expr.EvalNumber(ctx, spec.CountExpr)
		if code == status.Failure {
			return code, err
		}
		target := d.offset() + int(n)
		if target > maxOffset {
			target = maxOffset
		}
		for d.offset() < target {
			brk, code, err := runBody(target)
			if code == status.Failure {
				return code, err
			}
			if brk {
				break
			}
		}
	}

	return worst, worstErr
}

// decodeSet repeatedly speculates its shared prototype, checking
// exit-when before the first iteration and after each, and classifies
// every iteration's result against the ordered match conditions
// (evaluated with protofield-this bound to that iteration's decoded
// field), applying the first match's rename/overrides; falls back to
// default-match, else rolls the speculative decode back entirely and
// stops.
func (d *Decoder) decodeSet(ctx *expr.Context, spec *protodb.SetSpec, maxOffset int, parent detail.Ref) (status.Code, *status.Error) {
	for {
		if spec.ExitWhen != arena.Invalid {
			exit, code, _ := expr.EvalBool(ctx, spec.ExitWhen)
			if code == status.Failure {
				return status.OK, nil
			}
			if code == status.Warning {
				return status.OK, nil
			}
			if exit {
				return status.OK, nil
			}
		}

		if d.offset() >= maxOffset {
			return status.OK, nil
		}

		cp := d.mark()

		protoEl := d.DB.Element(spec.Prototype)
		var lc LoopCtrl
		code, err := d.decodeElement(ctx, spec.Prototype, protoEl, maxOffset, parent, &lc)
		if code == status.Failure {
			d.rollback(cp)
			return code, err
		}

		node := d.lastFieldUnder(parent, ctx.CurrentProto)
		if node == arena.Invalid || node < cp.tree.FieldMark {
			// Zero-length prototype: end of set.
			return status.OK, nil
		}

		savedField := ctx.CurrentField
		ctx.CurrentField = node

		matched := false
		for _, m := range spec.Matches {
			me := d.DB.Element(m)
			ms := me.Match()
			ok, mcode, _ := expr.EvalBool(ctx, ms.Condition)
			if mcode == status.Failure || mcode == status.Warning || !ok {
				continue
			}
			d.applyMatch(ctx, ms, node, maxOffset)
			matched = true
			break
		}

		if !matched && spec.DefaultMatch != arena.Invalid {
			de := d.DB.Element(spec.DefaultMatch)
			d.applyMatch(ctx, de.Match(), node, maxOffset)
			matched = true
		}

		ctx.CurrentField = savedField

		if !matched {
			d.rollback(cp)
			return status.Fail(status.SpeculativeFailure, d.offset(), "set prototype matched no case and has no default")
		}
	}
}

// decodeChoice evaluates each match's condition before committing to a
// decode, trying candidates in order with checkpoint/rollback until one
// both matches and decodes successfully.
func (d *Decoder) decodeChoice(ctx *expr.Context, spec *protodb.ChoiceSpec, maxOffset int, parent detail.Ref) (status.Code, *status.Error) {
	for _, m := range spec.Matches {
		me := d.DB.Element(m)
		ms := me.Match()

		cp := d.mark()
		ok, mcode, _ := expr.EvalBool(ctx, ms.Condition)
		if mcode == status.Failure || mcode == status.Warning || !ok {
			d.rollback(cp)
			continue
		}
		var lc LoopCtrl
		code, err := d.decodeFieldsOverride(ctx, ms.FirstOverride, maxOffset, parent, &lc)
		if code == status.Failure {
			d.rollback(cp)
			continue
		}
		if ms.RenameTo != "" {
			if node := d.lastFieldUnder(parent, ctx.CurrentProto); node != arena.Invalid {
				d.Tree.Field(node).Name = ms.RenameTo
			}
		}
		return code, err
	}

	c, err := status.Fail(status.SpeculativeFailure, d.offset(), "choice matched no candidate")
	return c, err
}

func (d *Decoder) decodeFieldsOverride(ctx *expr.Context, first protodb.Ref, maxOffset int, parent detail.Ref, lc *LoopCtrl) (status.Code, *status.Error) {
	code, _, err := d.decodeFields(ctx, first, maxOffset, parent, lc)
	return code, err
}

func (d *Decoder) applyMatch(ctx *expr.Context, ms *protodb.MatchSpec, node detail.Ref, maxOffset int) {
	if ms.RenameTo != "" {
		d.Tree.Field(node).Name = ms.RenameTo
	}
	if ms.FirstOverride != arena.Invalid {
		var lc LoopCtrl
		_, _, _ = d.decodeFields(ctx, ms.FirstOverride, maxOffset, node, &lc)
	}
}

// lastFieldUnder returns the most recently allocated FieldNode that is a
// direct child of parent, or (if parent is arena.Invalid) the last
// top-level field of proto, used to locate a just-decoded speculative
// prototype.
func (d *Decoder) lastFieldUnder(parent detail.Ref, proto detail.ProtoRef) detail.Ref {
	var last detail.Ref = arena.Invalid
	if parent == arena.Invalid {
		for c := range d.Tree.ProtoFields(proto) {
			last = c
		}
		return last
	}
	for c := range d.Tree.Children(parent) {
		last = c
	}
	return last
}
