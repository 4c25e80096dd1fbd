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

package expr

import (
	"fmt"

	"buf.build/go/netdecode/internal/lookup"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
	"buf.build/go/netdecode/internal/vars"
)

// exprType returns an arbitrary expr node's declared return type, used by
// comparison operators to decide numeric vs byte-lexicographic semantics.
func exprType(ctx *Context, r protodb.Ref) protodb.ExprType {
	el := ctx.DB.Element(r)
	if el.Kind == protodb.KindOperator {
		return el.Operator().Type
	}
	return el.Operand().Type
}

func evalOperandNumber(ctx *Context, op *protodb.OperandSpec) (uint32, status.Code, *status.Error) {
	switch op.Kind {
	case protodb.OperandNumberLit:
		return op.NumberLit, status.OK, nil

	case protodb.OperandStringLit:
		c, e := status.Fail(status.ExpressionTypeMismatch, 0, "string literal used in numeric context")
		return 0, c, e

	case protodb.OperandVariableRef:
		id, ok := ctx.Vars.Lookup(op.VariableName)
		if !ok {
			c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("undeclared variable %q", op.VariableName))
			return 0, c, e
		}
		switch ctx.Vars.Kind(id) {
		case vars.Number, vars.Protocol:
			n, err := ctx.Vars.Number(id)
			if err != nil {
				return 0, status.Failure, err
			}
			return n, status.OK, nil
		default:
			buf, code, err := readVarBuffer(ctx, id, op.Slice)
			if code != status.OK {
				return 0, code, err
			}
			return uint32(beUintN(buf)), status.OK, nil
		}

	case protodb.OperandLookupTableRef:
		v, code, err := lookupTableValue(ctx, op)
		if code != status.OK {
			return 0, code, err
		}
		return v.Number, status.OK, nil

	case protodb.OperandProtoFieldRef:
		raw, code, err := resolveProtoFieldBuffer(ctx, op.ProtoFieldPath, op.Slice)
		if code != status.OK {
			return 0, code, err
		}
		return uint32(beUintN(raw)), status.OK, nil

	case protodb.OperandProtoFieldThis:
		raw, code, err := currentFieldBuffer(ctx, op.Slice)
		if code != status.OK {
			return 0, code, err
		}
		return uint32(beUintN(raw)), status.OK, nil

	case protodb.OperandCall:
		return evalCallNumber(ctx, op)

	default:
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("unknown operand kind %d", op.Kind))
		return 0, c, e
	}
}

func evalOperandBuffer(ctx *Context, op *protodb.OperandSpec) ([]byte, status.Code, *status.Error) {
	switch op.Kind {
	case protodb.OperandStringLit:
		return []byte(op.StringLit), status.OK, nil

	case protodb.OperandNumberLit:
		c, e := status.Fail(status.ExpressionTypeMismatch, 0, "numeric literal used in buffer context")
		return nil, c, e

	case protodb.OperandVariableRef:
		id, ok := ctx.Vars.Lookup(op.VariableName)
		if !ok {
			c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("undeclared variable %q", op.VariableName))
			return nil, c, e
		}
		return readVarBuffer(ctx, id, op.Slice)

	case protodb.OperandLookupTableRef:
		v, code, err := lookupTableValue(ctx, op)
		if code != status.OK {
			return nil, code, err
		}
		return v.Buffer, status.OK, nil

	case protodb.OperandProtoFieldRef:
		return resolveProtoFieldBuffer(ctx, op.ProtoFieldPath, op.Slice)

	case protodb.OperandProtoFieldThis:
		return currentFieldBuffer(ctx, op.Slice)

	case protodb.OperandCall:
		return evalCallBuffer(ctx, op)

	default:
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("unknown operand kind %d", op.Kind))
		return nil, c, e
	}
}

// readVarBuffer resolves a Buffer/RefBuffer variable's current value,
// applying an optional [start:size] slice spec.
func readVarBuffer(ctx *Context, id vars.ID, slice protodb.Slice) ([]byte, status.Code, *status.Error) {
	start, size := 0, ctx.Vars.Len(id)
	if slice.Present {
		s, code, err := EvalNumber(ctx, slice.StartExpr)
		if code != status.OK {
			return nil, code, err
		}
		n, code, err := EvalNumber(ctx, slice.SizeExpr)
		if code != status.OK {
			return nil, code, err
		}
		start, size = int(s), int(n)
	}
	return ctx.Vars.BufferSlice(id, start, size)
}

// resolveProtoFieldBuffer resolves a protofield-reference path against
// the DetailTree built so far, returning a Warning
// (missing-field-reference) if the path is not yet decoded.
func resolveProtoFieldBuffer(ctx *Context, path []string, slice protodb.Slice) ([]byte, status.Code, *status.Error) {
	ref, ok := ctx.Tree.ResolveProtoField(ctx.CurrentProto, path)
	if !ok {
		code, err := status.Truncated(0, fmt.Sprintf("protofield %v not yet decoded", path))
		err.Kind = status.MissingFieldReference
		return nil, code, err
	}
	raw := ctx.Tree.Field(ref).Raw
	return sliceBuffer(ctx, raw, slice)
}

func currentFieldBuffer(ctx *Context, slice protodb.Slice) ([]byte, status.Code, *status.Error) {
	if ctx.CurrentField == 0 {
		c, e := status.Fail(status.DBInconsistency, 0, "protofield-this used outside a field context")
		return nil, c, e
	}
	raw := ctx.Tree.Field(ctx.CurrentField).Raw
	return sliceBuffer(ctx, raw, slice)
}

func sliceBuffer(ctx *Context, raw []byte, slice protodb.Slice) ([]byte, status.Code, *status.Error) {
	if !slice.Present {
		return raw, status.OK, nil
	}
	s, code, err := EvalNumber(ctx, slice.StartExpr)
	if code != status.OK {
		return nil, code, err
	}
	n, code, err := EvalNumber(ctx, slice.SizeExpr)
	if code != status.OK {
		return nil, code, err
	}
	start, size := int(s), int(n)
	if start < 0 || size < 0 || start+size > len(raw) {
		c, e := status.Fail(status.ResourceExhaustion, start, "protofield slice out of range")
		return nil, c, e
	}
	return raw[start : start+size], status.OK, nil
}

// lookupTableValue reads a data slot from a table's most recently matched
// entry. op.LookupTable names the table, op.LookupField the data slot.
func lookupTableValue(ctx *Context, op *protodb.OperandSpec) (lookup.Value, status.Code, *status.Error) {
	t, ok := ctx.Lookups.Table(op.LookupTable)
	if !ok {
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("undeclared lookup table %q", op.LookupTable))
		return lookup.Value{}, c, e
	}
	idx, ok := ctx.getLastMatch(op.LookupTable)
	if !ok {
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("lookup table %q has no matched entry in scope", op.LookupTable))
		return lookup.Value{}, c, e
	}
	v, err := t.SelectField(idx, op.LookupField)
	if err != nil {
		return lookup.Value{}, status.Failure, err
	}
	return v, status.OK, nil
}
