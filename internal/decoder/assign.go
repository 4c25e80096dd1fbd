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

	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/lookup"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
	"buf.build/go/netdecode/internal/vars"
)

// applyAssignVariable executes an `assign-variable` element: evaluate
// the right-hand expression and write the named variable, as a numeric
// write, a buffer copy, or (when requested) a non-owning ref-buffer
// alias.
func (d *Decoder) applyAssignVariable(ctx *expr.Context, spec *protodb.AssignVariableSpec) (status.Code, *status.Error) {
	id, ok := d.Vars.Lookup(spec.VariableName)
	if !ok {
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("undeclared variable %q", spec.VariableName))
		return c, e
	}
	switch d.Vars.Kind(id) {
	case vars.Number, vars.Protocol:
		n, code, err := expr.EvalNumber(ctx, spec.RHS)
		if code != status.OK {
			return code, err
		}
		if serr := d.Vars.SetNumber(id, n); serr != nil {
			return status.Failure, serr
		}
		return status.OK, nil

	default:
		buf, code, err := expr.EvalBuffer(ctx, spec.RHS)
		if code != status.OK {
			return code, err
		}
		if spec.AsRefBuffer {
			if serr := d.Vars.SetRefBuffer(id, buf, 0, len(buf)); serr != nil {
				return status.Failure, serr
			}
			return status.OK, nil
		}
		if serr := d.Vars.SetBuffer(id, buf, 0, len(buf)); serr != nil {
			return status.Failure, serr
		}
		return status.OK, nil
	}
}

// applyAssignLookupTable executes an `assign-lookuptable` element: same
// as assign-variable, but the left-hand side names a table's data slot
// on the most recently matched entry. Since lookup-table data slots are
// only populated via `update-lookuptable add`, this writes through the
// same entry's slot in place.
func (d *Decoder) applyAssignLookupTable(ctx *expr.Context, spec *protodb.AssignLookupTableSpec) (status.Code, *status.Error) {
	t, ok := d.Lookups.Table(spec.TableName)
	if !ok {
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("undeclared lookup table %q", spec.TableName))
		return c, e
	}
	idx, ok := ctx.LastMatch(spec.TableName)
	if !ok {
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("lookup table %q has no matched entry in scope", spec.TableName))
		return c, e
	}
	kind := lookup.Number
	for _, dd := range t.Data {
		if dd.Name == spec.FieldName {
			kind = dd.Kind
			break
		}
	}
	v, code, err := evalSlot(ctx, kind, spec.RHS)
	if code != status.OK {
		return code, err
	}
	if serr := t.SetField(idx, spec.FieldName, v); serr != nil {
		return status.Failure, serr
	}
	return status.OK, nil
}

// applyUpdateLookupTable executes an `update-lookuptable` element's
// add/purge/obsolete action, invoking any declared external-call
// handler before/after.
func (d *Decoder) applyUpdateLookupTable(ctx *expr.Context, spec *protodb.UpdateLookupTableSpec) (status.Code, *status.Error) {
	t, ok := d.Lookups.Table(spec.TableName)
	if !ok {
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("undeclared lookup table %q", spec.TableName))
		return c, e
	}

	if spec.ExternalCallBefore {
		if cb, ok := d.Registry.ExternalCall(spec.ExternalCallNamespace, spec.ExternalCallFunction); ok {
			if err := cb(spec.ExternalCallNamespace, spec.ExternalCallFunction); err != nil {
				c, e := status.Fail(status.PluginError, 0, err.Error())
				return c, e
			}
		}
	}

	keys, code, err := evalKeyExprs(ctx, t, spec.Keys)
	if code != status.OK {
		return code, err
	}

	switch spec.Action {
	case protodb.ActionAdd:
		data, code, err := evalDataExprs(ctx, t, spec.Data)
		if code != status.OK {
			return code, err
		}
		t.Add(keys, data, spec.EntryValid, spec.KeepTime, spec.HitTime, spec.NewHitTime, ctx.Now)
	case protodb.ActionPurge:
		t.Purge(keys, ctx.Now)
	case protodb.ActionObsolete:
		t.Obsolete(keys, ctx.Now)
	}

	if spec.ExternalCallAfter {
		if cb, ok := d.Registry.ExternalCall(spec.ExternalCallNamespace, spec.ExternalCallFunction); ok {
			if err := cb(spec.ExternalCallNamespace, spec.ExternalCallFunction); err != nil {
				c, e := status.Fail(status.PluginError, 0, err.Error())
				return c, e
			}
		}
	}

	return status.OK, nil
}

func evalKeyExprs(ctx *expr.Context, t *lookup.Table, exprs []protodb.Ref) ([]lookup.Value, status.Code, *status.Error) {
	vals := make([]lookup.Value, len(exprs))
	for i, ex := range exprs {
		kind := lookup.Number
		if i < len(t.Keys) {
			kind = t.Keys[i].Kind
		}
		v, code, err := evalSlot(ctx, kind, ex)
		if code != status.OK {
			return nil, code, err
		}
		vals[i] = v
	}
	return vals, status.OK, nil
}

func evalDataExprs(ctx *expr.Context, t *lookup.Table, exprs []protodb.Ref) ([]lookup.Value, status.Code, *status.Error) {
	vals := make([]lookup.Value, len(exprs))
	for i, ex := range exprs {
		kind := lookup.Number
		if i < len(t.Data) {
			kind = t.Data[i].Kind
		}
		v, code, err := evalSlot(ctx, kind, ex)
		if code != status.OK {
			return nil, code, err
		}
		vals[i] = v
	}
	return vals, status.OK, nil
}

func evalSlot(ctx *expr.Context, kind lookup.SlotKind, ex protodb.Ref) (lookup.Value, status.Code, *status.Error) {
	if kind == lookup.Number {
		n, code, err := expr.EvalNumber(ctx, ex)
		if code != status.OK {
			return lookup.Value{}, code, err
		}
		return lookup.Value{Number: n}, status.OK, nil
	}
	b, code, err := expr.EvalBuffer(ctx, ex)
	if code != status.OK {
		return lookup.Value{}, code, err
	}
	return lookup.Value{Buffer: b}, status.OK, nil
}
