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
	"fmt"

	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
)

// runCodeEntries executes a protocol's execute-before/-verify/-after
// section: each entry is gated by an optional `when` expression
// evaluated without an active field context.
func (d *Decoder) runCodeEntries(ctx *expr.Context, entries []protodb.CodeEntry) (status.Code, *status.Error) {
	savedField := ctx.CurrentField
	ctx.CurrentField = 0
	defer func() { ctx.CurrentField = savedField }()

	worst := status.OK
	var worstErr *status.Error
	for _, e := range entries {
		if e.When != arena.Invalid {
			ok, code, err := expr.EvalBool(ctx, e.When)
			if code == status.Failure {
				return code, err
			}
			if code == status.Warning || !ok {
				continue
			}
		}
		code, err := d.execChain(ctx, e.First)
		if code == status.Failure {
			return code, err
		}
		if code == status.Warning && worst == status.OK {
			worst, worstErr = code, err
		}
	}
	return worst, worstErr
}

// execChain runs a sibling chain of non-field executable elements
// (assign-variable, assign-lookuptable, update-lookuptable, if, switch).
// Used by execute-before/-verify/-after bodies and by the branches of
// if/switch elements.
func (d *Decoder) execChain(ctx *expr.Context, first protodb.Ref) (status.Code, *status.Error) {
	worst := status.OK
	var worstErr *status.Error
	for el := first; el != arena.Invalid; {
		e := d.DB.Element(el)
		code, err := d.execElement(ctx, el, e)
		if code == status.Failure {
			return code, err
		}
		if code == status.Warning && worst == status.OK {
			worst, worstErr = code, err
		}
		el = e.NextSibling
	}
	return worst, worstErr
}

func (d *Decoder) execElement(ctx *expr.Context, ref protodb.Ref, e *protodb.Element) (status.Code, *status.Error) {
	switch e.Kind {
	case protodb.KindAssignVariable:
		return d.applyAssignVariable(ctx, e.AssignVariable())

	case protodb.KindAssignLookupTable:
		return d.applyAssignLookupTable(ctx, e.AssignLookupTable())

	case protodb.KindUpdateLookupTable:
		return d.applyUpdateLookupTable(ctx, e.UpdateLookupTable())

	case protodb.KindIf:
		return d.execIf(ctx, e.If())

	case protodb.KindSwitch:
		return d.execSwitch(ctx, ref)

	default:
		c, err := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("element kind %v not valid in executable code", e.Kind))
		return c, err
	}
}

func (d *Decoder) execIf(ctx *expr.Context, spec *protodb.IfSpec) (status.Code, *status.Error) {
	ok, code, err := expr.EvalBool(ctx, spec.Condition)
	if code == status.Failure {
		return code, err
	}
	if code == status.Warning {
		return status.OK, nil
	}
	if ok {
		return d.execChain(ctx, spec.Then)
	}
	if spec.Else != arena.Invalid {
		return d.execChain(ctx, spec.Else)
	}
	return status.OK, nil
}

func (d *Decoder) execSwitch(ctx *expr.Context, ref protodb.Ref) (status.Code, *status.Error) {
	body, code, err := d.selectCase(ctx, ref)
	if code == status.Failure {
		return code, err
	}
	if code == status.Warning || body == arena.Invalid {
		return status.OK, nil
	}
	return d.execChain(ctx, body)
}
