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
	"bytes"
	"fmt"
	"strings"

	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/detail"
	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
)

// LoopCtrl is the in/out unwind signal threaded through [decodeFields]:
// one of none/break/continue, unwinding through nested blocks until
// caught by the enclosing loop.
type LoopCtrl uint8

const (
	LoopNone LoopCtrl = iota
	LoopBreak
	LoopContinue
)

func exprType(db *protodb.DB, r protodb.Ref) protodb.ExprType {
	el := db.Element(r)
	if el.Kind == protodb.KindOperator {
		return el.Operator().Type
	}
	return el.Operand().Type
}

// decodeFields is the field iterator: it walks first's sibling
// chain, dispatching each element, and returns the worst status
// encountered (ok < warning < failure) plus the total bytes consumed
// across the chain.
func (d *Decoder) decodeFields(ctx *expr.Context, first protodb.Ref, maxOffset int, parent detail.Ref, lc *LoopCtrl) (status.Code, int, *status.Error) {
	startOffset := d.offset()
	worst := status.OK
	var worstErr *status.Error

	for el := first; el != arena.Invalid; {
		e := d.DB.Element(el)
		code, err := d.decodeElement(ctx, el, e, maxOffset, parent, lc)
		if code == status.Failure {
			return code, d.offset() - startOffset, err
		}
		if code == status.Warning && worst != status.Failure {
			worst, worstErr = status.Warning, err
		}
		if *lc != LoopNone {
			return worst, d.offset() - startOffset, worstErr
		}
		if d.offset() >= maxOffset {
			break
		}
		el = e.NextSibling
	}
	return worst, d.offset() - startOffset, worstErr
}

// decodeElement dispatches one element per its kind.
func (d *Decoder) decodeElement(ctx *expr.Context, ref protodb.Ref, e *protodb.Element, maxOffset int, parent detail.Ref, lc *LoopCtrl) (status.Code, *status.Error) {
	switch e.Kind {
	case protodb.KindSwitch:
		body, code, err := d.selectCase(ctx, ref)
		if code == status.Failure {
			return code, err
		}
		if code == status.Warning || body == arena.Invalid {
			return status.OK, nil
		}
		code, _, err = d.decodeFields(ctx, body, maxOffset, parent, lc)
		return code, err

	case protodb.KindIf:
		return d.decodeIf(ctx, e.If(), maxOffset, parent, lc)

	case protodb.KindLoop:
		return d.decodeLoop(ctx, e.Loop(), maxOffset, parent)

	case protodb.KindLoopCtrl:
		if e.IsBreak() {
			*lc = LoopBreak
		} else {
			*lc = LoopContinue
		}
		return status.OK, nil

	case protodb.KindIncludeBlock:
		target := d.DB.Element(e.IncludeBlock())
		code, _, err := d.decodeFields(ctx, target.Block().FirstField, maxOffset, parent, lc)
		return code, err

	case protodb.KindBlock:
		return d.decodeBlock(ctx, e.Block(), maxOffset, parent, lc)

	case protodb.KindField, protodb.KindSubfield:
		return d.decodeField(ctx, ref, e, maxOffset, parent)

	case protodb.KindSet:
		return d.decodeSet(ctx, e.Set(), maxOffset, parent)

	case protodb.KindChoice:
		return d.decodeChoice(ctx, e.Choice(), maxOffset, parent)

	case protodb.KindAssignVariable:
		return d.applyAssignVariable(ctx, e.AssignVariable())

	case protodb.KindAssignLookupTable:
		return d.applyAssignLookupTable(ctx, e.AssignLookupTable())

	case protodb.KindUpdateLookupTable:
		return d.applyUpdateLookupTable(ctx, e.UpdateLookupTable())

	default:
		c, err := status.Fail(status.DBInconsistency, d.offset(), fmt.Sprintf("unexpected element kind %v in field decode", e.Kind))
		return c, err
	}
}

// selectCase evaluates a `switch` element's key-expr and returns the
// matching `case`/`default` body: numeric equality or range, or buffer
// sized exact compare, case-sensitive per DB flag.
func (d *Decoder) selectCase(ctx *expr.Context, switchRef protodb.Ref) (protodb.Ref, status.Code, *status.Error) {
	e := d.DB.Element(switchRef)
	spec := e.Switch()

	isBuffer := exprType(d.DB, spec.KeyExpr) == protodb.TypeBuffer

	var numVal uint32
	var bufVal []byte
	if isBuffer {
		v, code, err := expr.EvalBuffer(ctx, spec.KeyExpr)
		if code != status.OK {
			return arena.Invalid, code, err
		}
		bufVal = v
	} else {
		v, code, err := expr.EvalNumber(ctx, spec.KeyExpr)
		if code != status.OK {
			return arena.Invalid, code, err
		}
		numVal = v
	}

	for c := range protodb.Children(d.DB, switchRef) {
		ce := d.DB.Element(c)
		switch ce.Kind {
		case protodb.KindCase:
			cs := ce.Case()
			matched := false
			if isBuffer {
				for _, lit := range cs.Bytes {
					if spec.CaseSensitive {
						matched = bytes.Equal(lit, bufVal)
					} else {
						matched = strings.EqualFold(string(lit), string(bufVal))
					}
					if matched {
						break
					}
				}
			} else if cs.IsRange {
				matched = uint64(numVal) >= cs.Low && uint64(numVal) <= cs.High
			} else {
				for _, v := range cs.Values {
					if v == uint64(numVal) {
						matched = true
						break
					}
				}
			}
			if matched {
				return ce.FirstChild, status.OK, nil
			}
		case protodb.KindDefault:
			return ce.FirstChild, status.OK, nil
		}
	}
	return arena.Invalid, status.OK, nil
}

// decodeIf handles `if`/`missing-data-fallback`.
func (d *Decoder) decodeIf(ctx *expr.Context, spec *protodb.IfSpec, maxOffset int, parent detail.Ref, lc *LoopCtrl) (status.Code, *status.Error) {
	ok, code, err := expr.EvalBool(ctx, spec.Condition)
	switch code {
	case status.Failure:
		return code, err
	case status.Warning:
		if spec.OnMissing != arena.Invalid {
			code, _, err := d.decodeFields(ctx, spec.OnMissing, maxOffset, parent, lc)
			return code, err
		}
		return status.Warning, err
	}
	if ok {
		code, _, err := d.decodeFields(ctx, spec.Then, maxOffset, parent, lc)
		return code, err
	}
	if spec.Else != arena.Invalid {
		code, _, err := d.decodeFields(ctx, spec.Else, maxOffset, parent, lc)
		return code, err
	}
	return status.OK, nil
}

// decodeBlock handles `block`: a grouping FieldNode is only kept if it
// consumes > 0 bytes.
func (d *Decoder) decodeBlock(ctx *expr.Context, spec *protodb.BlockSpec, maxOffset int, parent detail.Ref, lc *LoopCtrl) (status.Code, *status.Error) {
	start := d.offset()
	node := d.Tree.NewField(parent, ctx.CurrentProto, false)
	f := d.Tree.Field(node)
	f.Position = start

	code, consumed, err := d.decodeFields(ctx, spec.FirstField, maxOffset, node, lc)
	if consumed > 0 {
		d.Tree.Field(node).Size = consumed
		return code, err
	}
	d.Tree.DiscardField(node)
	return code, err
}
