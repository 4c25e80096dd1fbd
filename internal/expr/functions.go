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

// evalCallNumber dispatches a function-call operand for the numeric
// entry point.
func evalCallNumber(ctx *Context, op *protodb.OperandSpec) (uint32, status.Code, *status.Error) {
	switch op.Func {
	case protodb.FuncBuf2Int:
		return callBuf2Int(ctx, op)
	case protodb.FuncAscii2Int:
		return callAscii2Int(ctx, op)
	case protodb.FuncIsPresent:
		return callIsPresent(ctx, op)
	case protodb.FuncHasString:
		return callHasString(ctx, op)
	case protodb.FuncIsASN1Type:
		return callIsASN1Type(ctx, op)
	case protodb.FuncCheckLookupTable:
		return callCheckLookupTable(ctx, op, false)
	case protodb.FuncUpdateLookupTable:
		return callCheckLookupTable(ctx, op, true)
	default:
		c, e := status.Fail(status.ExpressionTypeMismatch, 0, fmt.Sprintf("function %d does not return a number", op.Func))
		return 0, c, e
	}
}

// evalCallBuffer dispatches a function-call operand for the buffer entry
// point.
func evalCallBuffer(ctx *Context, op *protodb.OperandSpec) ([]byte, status.Code, *status.Error) {
	switch op.Func {
	case protodb.FuncInt2Buf:
		return callInt2Buf(ctx, op)
	case protodb.FuncChangeByteOrder:
		return callChangeByteOrder(ctx, op)
	case protodb.FuncExtractString:
		return callExtractString(ctx, op)
	default:
		c, e := status.Fail(status.ExpressionTypeMismatch, 0, fmt.Sprintf("function %d does not return a buffer", op.Func))
		return nil, c, e
	}
}

// callBuf2Int interprets up to 4 bytes of Args[0] (a buffer expr) in
// network byte order; with an optional mask (Args[1], a number expr) it
// right-shifts until the mask's lowest bit is 1, then ANDs with the
// normalized mask.
func callBuf2Int(ctx *Context, op *protodb.OperandSpec) (uint32, status.Code, *status.Error) {
	if len(op.Args) < 1 {
		c, e := status.Fail(status.DBInconsistency, 0, "buf2int requires a buffer argument")
		return 0, c, e
	}
	buf, code, err := EvalBuffer(ctx, op.Args[0])
	if code != status.OK {
		return 0, code, err
	}
	n := len(buf)
	if n > 4 {
		n = 4
	}
	v := uint32(beUintN(buf[:n]))
	if len(op.Args) < 2 {
		return v, status.OK, nil
	}
	mask, code, err := EvalNumber(ctx, op.Args[1])
	if code != status.OK {
		return 0, code, err
	}
	if mask == 0 {
		return 0, status.OK, nil
	}
	shift := 0
	for mask&1 == 0 {
		mask >>= 1
		shift++
	}
	return (v >> shift) & mask, status.OK, nil
}

// callAscii2Int parses Args[0]'s buffer as a decimal ASCII digit string.
func callAscii2Int(ctx *Context, op *protodb.OperandSpec) (uint32, status.Code, *status.Error) {
	if len(op.Args) < 1 {
		c, e := status.Fail(status.DBInconsistency, 0, "ascii2int requires a buffer argument")
		return 0, c, e
	}
	buf, code, err := EvalBuffer(ctx, op.Args[0])
	if code != status.OK {
		return 0, code, err
	}
	var v uint32
	for _, c := range buf {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + uint32(c-'0')
	}
	return v, status.OK, nil
}

// callInt2Buf renders Args[0] (a number expr) as a big-endian buffer of
// op.Size bytes.
func callInt2Buf(ctx *Context, op *protodb.OperandSpec) ([]byte, status.Code, *status.Error) {
	if len(op.Args) < 1 {
		c, e := status.Fail(status.DBInconsistency, 0, "int2buf requires a number argument")
		return nil, c, e
	}
	n, code, err := EvalNumber(ctx, op.Args[0])
	if code != status.OK {
		return nil, code, err
	}
	size := op.Size
	if size <= 0 || size > 8 {
		size = 4
	}
	out := make([]byte, size)
	v := uint64(n)
	for i := size - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out, status.OK, nil
}

// callChangeByteOrder reverses Args[0]'s buffer byte order, truncated or
// zero-padded to op.Size ∈ {1, 2, 4, 8} bytes; applying it twice is the
// identity.
func callChangeByteOrder(ctx *Context, op *protodb.OperandSpec) ([]byte, status.Code, *status.Error) {
	if len(op.Args) < 1 {
		c, e := status.Fail(status.DBInconsistency, 0, "changebyteorder requires a buffer argument")
		return nil, c, e
	}
	buf, code, err := EvalBuffer(ctx, op.Args[0])
	if code != status.OK {
		return nil, code, err
	}
	size := op.Size
	if size != 1 && size != 2 && size != 4 && size != 8 {
		size = len(buf)
	}
	padded := make([]byte, size)
	copy(padded, buf)
	out := make([]byte, size)
	for i, b := range padded {
		out[size-1-i] = b
	}
	return out, status.OK, nil
}

// callIsPresent reports whether the protofield named by op.ProtoFieldPath
// has been decoded yet in the current DetailTree.
func callIsPresent(ctx *Context, op *protodb.OperandSpec) (uint32, status.Code, *status.Error) {
	_, ok := ctx.Tree.ResolveProtoField(ctx.CurrentProto, op.ProtoFieldPath)
	return boolToNum(ok), status.OK, nil
}

// callHasString reports whether op.StringLit (a regex pattern) matches
// within Args[0]'s buffer.
func callHasString(ctx *Context, op *protodb.OperandSpec) (uint32, status.Code, *status.Error) {
	buf, code, err := argBuffer(ctx, op)
	if code != status.OK {
		return 0, code, err
	}
	re, cerr := ctx.compileRegex(op.StringLit)
	if cerr != nil {
		c, e := status.Fail(status.DBInconsistency, 0, cerr.Error())
		return 0, c, e
	}
	return boolToNum(re.Match(buf)), status.OK, nil
}

// callExtractString returns the op.MatchIndex-th capture (0 meaning the
// whole match) of op.StringLit matched against Args[0]'s buffer.
func callExtractString(ctx *Context, op *protodb.OperandSpec) ([]byte, status.Code, *status.Error) {
	buf, code, err := argBuffer(ctx, op)
	if code != status.OK {
		return nil, code, err
	}
	re, cerr := ctx.compileRegex(op.StringLit)
	if cerr != nil {
		c, e := status.Fail(status.DBInconsistency, 0, cerr.Error())
		return nil, c, e
	}
	loc := re.FindSubmatchIndex(buf)
	if loc == nil {
		return nil, status.OK, nil
	}
	i := op.MatchIndex * 2
	if i+1 >= len(loc) || loc[i] < 0 {
		return nil, status.OK, nil
	}
	return buf[loc[i]:loc[i+1]], status.OK, nil
}

func argBuffer(ctx *Context, op *protodb.OperandSpec) ([]byte, status.Code, *status.Error) {
	if len(op.Args) >= 1 {
		return EvalBuffer(ctx, op.Args[0])
	}
	return currentFieldBuffer(ctx, protodb.Slice{})
}

// callIsASN1Type decodes Args[0]'s buffer as an ASN.1 identifier octet
// and compares its class/tag against op.ASN1Class/op.ASN1Tag.
func callIsASN1Type(ctx *Context, op *protodb.OperandSpec) (uint32, status.Code, *status.Error) {
	buf, code, err := argBuffer(ctx, op)
	if code != status.OK {
		return 0, code, err
	}
	if len(buf) == 0 {
		return 0, status.OK, nil
	}
	class := uint32(buf[0]>>6) & 0x3
	tag := uint32(buf[0]) & 0x1F
	if tag == 0x1F && len(buf) > 1 {
		tag = 0
		for _, b := range buf[1:] {
			tag = tag<<7 | uint32(b&0x7F)
			if b&0x80 == 0 {
				break
			}
		}
	}
	return boolToNum(class == op.ASN1Class && tag == op.ASN1Tag), status.OK, nil
}

// callCheckLookupTable evaluates op.Args as a table's key slots and
// checks (or, when update is true, check-and-updates) them against
// op.LookupTable. On a hit, the matched
// entry index is remembered for subsequent select-field operands against
// the same table within this Context.
func callCheckLookupTable(ctx *Context, op *protodb.OperandSpec, update bool) (uint32, status.Code, *status.Error) {
	t, ok := ctx.Lookups.Table(op.LookupTable)
	if !ok {
		c, e := status.Fail(status.DBInconsistency, 0, fmt.Sprintf("undeclared lookup table %q", op.LookupTable))
		return 0, c, e
	}
	keys, code, err := evalLookupKeys(ctx, t, op.Args)
	if code != status.OK {
		return 0, code, err
	}
	var found bool
	var idx int
	if update {
		found, idx = t.CheckAndUpdate(keys, ctx.Now)
	} else {
		found, idx = t.Check(keys, ctx.Now)
	}
	if found {
		ctx.setLastMatch(op.LookupTable, idx)
	}
	return boolToNum(found), status.OK, nil
}
