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

	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
)

// EvalNumber evaluates expr's numeric entry point, one of two evaluation
// entry points mirroring the two expression types: this one returns a
// 32-bit unsigned number.
func EvalNumber(ctx *Context, expr protodb.Ref) (uint32, status.Code, *status.Error) {
	el := ctx.DB.Element(expr)
	switch el.Kind {
	case protodb.KindOperator:
		return evalOperatorNumber(ctx, el.Operator())
	case protodb.KindOperand:
		return evalOperandNumber(ctx, el.Operand())
	default:
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("expr: element kind %v is not an expression node", el.Kind))
		return 0, c, e
	}
}

// EvalBuffer evaluates expr's buffer entry point, returning a slice
// (possibly aliasing the packet or a variable's storage; callers must
// not retain it past the packet).
func EvalBuffer(ctx *Context, expr protodb.Ref) ([]byte, status.Code, *status.Error) {
	el := ctx.DB.Element(expr)
	switch el.Kind {
	case protodb.KindOperator:
		return evalOperatorBuffer(ctx, el.Operator())
	case protodb.KindOperand:
		return evalOperandBuffer(ctx, el.Operand())
	default:
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("expr: element kind %v is not an expression node", el.Kind))
		return nil, c, e
	}
}

// EvalBool evaluates expr as a boolean condition for `if`/`switch`/
// `exit-when`/loop-condition contexts: nonzero number, or nonempty
// buffer, is true.
func EvalBool(ctx *Context, expr protodb.Ref) (bool, status.Code, *status.Error) {
	el := ctx.DB.Element(expr)
	var typ protodb.ExprType
	if el.Kind == protodb.KindOperator {
		typ = el.Operator().Type
	} else {
		typ = el.Operand().Type
	}
	if typ == protodb.TypeBuffer {
		b, code, err := EvalBuffer(ctx, expr)
		if code != status.OK {
			return false, code, err
		}
		return len(b) > 0, status.OK, nil
	}
	n, code, err := EvalNumber(ctx, expr)
	if code != status.OK {
		return false, code, err
	}
	return n != 0, status.OK, nil
}

// beUintN decodes buf as a big-endian unsigned integer (network byte
// order); bytes shifted past 64 bits are lost, so a longer buf yields its
// trailing 8 bytes. Callers that narrow the result to uint32 keep the
// trailing 4 bytes; buf2int slices its leading 4 bytes before calling it.
func beUintN(buf []byte) uint64 {
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

func leUintN(buf []byte) uint64 {
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

func byteOrderUint(buf []byte, order protodb.ByteOrder) uint64 {
	if order == protodb.LittleEndian {
		return leUintN(buf)
	}
	return beUintN(buf)
}
