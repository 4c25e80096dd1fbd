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
	"bytes"
	"fmt"

	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
)

// evalOperatorBuffer only exists to satisfy [EvalBuffer]'s dispatch: no
// operator in this grammar returns a buffer-typed result (arithmetic,
// bitwise, logical, and comparison operators are all numeric; buffers
// only ever come from operand leaves or buffer-returning calls). Reaching
// here means the DB declared an operator with Type == TypeBuffer, which
// is a db-inconsistency.
func evalOperatorBuffer(ctx *Context, op *protodb.OperatorSpec) ([]byte, status.Code, *status.Error) {
	c, e := status.Fail(status.DBInconsistency, 0, "operator node declared a buffer return type")
	return nil, c, e
}

func evalOperatorNumber(ctx *Context, op *protodb.OperatorSpec) (uint32, status.Code, *status.Error) {
	switch op.Op {
	case protodb.OpNeg, protodb.OpNot, protodb.OpLogicalNot:
		return evalUnary(ctx, op)

	case protodb.OpLogicalAnd, protodb.OpLogicalOr:
		return evalLogical(ctx, op)

	case protodb.OpEq, protodb.OpNe, protodb.OpLt, protodb.OpLe, protodb.OpGt, protodb.OpGe:
		return evalComparison(ctx, op)

	default:
		return evalArithmetic(ctx, op)
	}
}

func evalUnary(ctx *Context, op *protodb.OperatorSpec) (uint32, status.Code, *status.Error) {
	v, code, err := EvalNumber(ctx, op.Left)
	if code != status.OK {
		return 0, code, err
	}
	switch op.Op {
	case protodb.OpNeg:
		if op.Signed {
			return uint32(-int32(v)), status.OK, nil
		}
		return uint32(-v), status.OK, nil
	case protodb.OpNot:
		return ^v, status.OK, nil
	case protodb.OpLogicalNot:
		if v == 0 {
			return 1, status.OK, nil
		}
		return 0, status.OK, nil
	}
	c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("operator %d is not unary", op.Op))
	return 0, c, e
}

// evalLogical implements short-circuit && / ||: if the first operand
// already determines the result, the second is not evaluated.
func evalLogical(ctx *Context, op *protodb.OperatorSpec) (uint32, status.Code, *status.Error) {
	l, code, err := EvalBool(ctx, op.Left)
	if code != status.OK {
		return 0, code, err
	}
	if op.Op == protodb.OpLogicalAnd && !l {
		return 0, status.OK, nil
	}
	if op.Op == protodb.OpLogicalOr && l {
		return 1, status.OK, nil
	}
	r, code, err := EvalBool(ctx, op.Right)
	if code != status.OK {
		return 0, code, err
	}
	if r {
		return 1, status.OK, nil
	}
	return 0, status.OK, nil
}

// evalComparison implements = ≠ < ≤ > ≥, over numbers or (when either
// side is buffer-typed) byte-lexicographically over the compared prefix
// length min(|a|,|b|).
func evalComparison(ctx *Context, op *protodb.OperatorSpec) (uint32, status.Code, *status.Error) {
	if exprType(ctx, op.Left) == protodb.TypeBuffer || exprType(ctx, op.Right) == protodb.TypeBuffer {
		a, code, err := EvalBuffer(ctx, op.Left)
		if code != status.OK {
			return 0, code, err
		}
		b, code, err := EvalBuffer(ctx, op.Right)
		if code != status.OK {
			return 0, code, err
		}
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		cmp := bytes.Compare(a[:n], b[:n])
		return boolToNum(compareResult(op.Op, cmp)), status.OK, nil
	}

	l, code, err := EvalNumber(ctx, op.Left)
	if code != status.OK {
		return 0, code, err
	}
	r, code, err := EvalNumber(ctx, op.Right)
	if code != status.OK {
		return 0, code, err
	}
	var cmp int
	if op.Signed {
		li, ri := int32(l), int32(r)
		switch {
		case li < ri:
			cmp = -1
		case li > ri:
			cmp = 1
		}
	} else {
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	}
	return boolToNum(compareResult(op.Op, cmp)), status.OK, nil
}

func compareResult(op protodb.OperatorKind, cmp int) bool {
	switch op {
	case protodb.OpEq:
		return cmp == 0
	case protodb.OpNe:
		return cmp != 0
	case protodb.OpLt:
		return cmp < 0
	case protodb.OpLe:
		return cmp <= 0
	case protodb.OpGt:
		return cmp > 0
	case protodb.OpGe:
		return cmp >= 0
	}
	return false
}

func boolToNum(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// evalArithmetic implements + − × ÷ % & | ^ and shifts: logical on
// unsigned, arithmetic on signed.
func evalArithmetic(ctx *Context, op *protodb.OperatorSpec) (uint32, status.Code, *status.Error) {
	l, code, err := EvalNumber(ctx, op.Left)
	if code != status.OK {
		return 0, code, err
	}
	r, code, err := EvalNumber(ctx, op.Right)
	if code != status.OK {
		return 0, code, err
	}
	switch op.Op {
	case protodb.OpAdd:
		return l + r, status.OK, nil
	case protodb.OpSub:
		return l - r, status.OK, nil
	case protodb.OpMul:
		return l * r, status.OK, nil
	case protodb.OpDiv:
		if r == 0 {
			c, e := status.Fail(status.ExpressionTypeMismatch, 0, "division by zero")
			return 0, c, e
		}
		if op.Signed {
			return uint32(int32(l) / int32(r)), status.OK, nil
		}
		return l / r, status.OK, nil
	case protodb.OpMod:
		if r == 0 {
			c, e := status.Fail(status.ExpressionTypeMismatch, 0, "modulo by zero")
			return 0, c, e
		}
		if op.Signed {
			return uint32(int32(l) % int32(r)), status.OK, nil
		}
		return l % r, status.OK, nil
	case protodb.OpAnd:
		return l & r, status.OK, nil
	case protodb.OpOr:
		return l | r, status.OK, nil
	case protodb.OpXor:
		return l ^ r, status.OK, nil
	case protodb.OpShl:
		return l << (r & 31), status.OK, nil
	case protodb.OpShr:
		if op.Signed {
			return uint32(int32(l) >> (r & 31)), status.OK, nil
		}
		return l >> (r & 31), status.OK, nil
	default:
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("unknown operator %d", op.Op))
		return 0, c, e
	}
}
