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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/netdecode/internal/detail"
	"buf.build/go/netdecode/internal/lookup"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
	"buf.build/go/netdecode/internal/vars"
)

func newTestCtx(t *testing.T, b *protodb.Builder) *Context {
	t.Helper()
	db, err := b.Build()
	require.NoError(t, err)

	v := vars.NewStore()
	_, verr := vars.DeclareStandard(v)
	require.Nil(t, verr)

	tree := detail.NewTree()
	return NewContext(db, v, lookup.NewStore(), tree, nil)
}

func TestEvalNumberArithmetic(t *testing.T) {
	b := protodb.NewBuilder()
	sum := b.BinOp(protodb.TypeNumber, protodb.OpAdd, b.NumberLit(3), b.NumberLit(4))
	ctx := newTestCtx(t, b)

	n, code, err := EvalNumber(ctx, sum)
	require.Nil(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, uint32(7), n)
}

func TestEvalNumberDivisionByZeroFails(t *testing.T) {
	b := protodb.NewBuilder()
	div := b.BinOp(protodb.TypeNumber, protodb.OpDiv, b.NumberLit(10), b.NumberLit(0))
	ctx := newTestCtx(t, b)

	_, code, err := EvalNumber(ctx, div)
	require.NotNil(t, err)
	assert.Equal(t, status.Failure, code)
	assert.Equal(t, status.ExpressionTypeMismatch, err.Kind)
}

func TestEvalComparisonSignedVsUnsigned(t *testing.T) {
	b := protodb.NewBuilder()
	// -1 as uint32 is a very large number; unsigned > comparison vs 1
	// should differ from the signed interpretation.
	neg1 := b.NumberLit(0xFFFFFFFF)
	one := b.NumberLit(1)

	unsignedGt := b.Operator(protodb.OperatorSpec{Type: protodb.TypeNumber, Op: protodb.OpGt, Left: neg1, Right: one})
	signedGt := b.Operator(protodb.OperatorSpec{Type: protodb.TypeNumber, Op: protodb.OpGt, Signed: true, Left: neg1, Right: one})
	ctx := newTestCtx(t, b)

	u, code, err := EvalNumber(ctx, unsignedGt)
	require.Nil(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, uint32(1), u)

	s, code, err := EvalNumber(ctx, signedGt)
	require.Nil(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, uint32(0), s)
}

func TestEvalLogicalAndShortCircuits(t *testing.T) {
	b := protodb.NewBuilder()
	// Right side divides by zero; if evaluated it would fail. Since the
	// left side of && is false, evalLogical must not evaluate it.
	div := b.BinOp(protodb.TypeNumber, protodb.OpDiv, b.NumberLit(1), b.NumberLit(0))
	and := b.Operator(protodb.OperatorSpec{Type: protodb.TypeNumber, Op: protodb.OpLogicalAnd, Left: b.NumberLit(0), Right: div})
	ctx := newTestCtx(t, b)

	n, code, err := EvalNumber(ctx, and)
	require.Nil(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, uint32(0), n)
}

func TestEvalBoolTreatsNonzeroNumberAsTrue(t *testing.T) {
	b := protodb.NewBuilder()
	ctx := newTestCtx(t, b)

	ok, code, err := EvalBool(ctx, b.NumberLit(5))
	require.Nil(t, err)
	assert.Equal(t, status.OK, code)
	assert.True(t, ok)

	ok, code, err = EvalBool(ctx, b.NumberLit(0))
	require.Nil(t, err)
	assert.Equal(t, status.OK, code)
	assert.False(t, ok)
}

func TestEvalBufferComparisonByteLexicographic(t *testing.T) {
	b := protodb.NewBuilder()
	abc := b.Operand(protodb.OperandSpec{Type: protodb.TypeBuffer, Kind: protodb.OperandStringLit, StringLit: "abc"})
	abd := b.Operand(protodb.OperandSpec{Type: protodb.TypeBuffer, Kind: protodb.OperandStringLit, StringLit: "abd"})
	lt := b.Operator(protodb.OperatorSpec{Type: protodb.TypeNumber, Op: protodb.OpLt, Left: abc, Right: abd})
	ctx := newTestCtx(t, b)

	n, code, err := EvalNumber(ctx, lt)
	require.Nil(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, uint32(1), n)
}

func TestEvalNumberVariableRef(t *testing.T) {
	b := protodb.NewBuilder()
	ref := b.VariableRef(protodb.TypeNumber, "ttl")
	ctx := newTestCtx(t, b)

	id, err := ctx.Vars.Declare("ttl", vars.Number, vars.ThisPacket, 0, vars.Initial{})
	require.Nil(t, err)
	require.Nil(t, ctx.Vars.SetNumber(id, 64))

	n, code, serr := EvalNumber(ctx, ref)
	require.Nil(t, serr)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, uint32(64), n)
}

func TestEvalProtoFieldRefMissingIsWarning(t *testing.T) {
	b := protodb.NewBuilder()
	ref := b.ProtoFieldRef(protodb.TypeNumber, "ip", "ttl")
	ctx := newTestCtx(t, b)

	_, code, err := EvalNumber(ctx, ref)
	require.NotNil(t, err)
	assert.Equal(t, status.Warning, code)
	assert.Equal(t, status.MissingFieldReference, err.Kind)
}

func TestEvalProtoFieldRefResolvesDecodedField(t *testing.T) {
	b := protodb.NewBuilder()
	ref := b.ProtoFieldRef(protodb.TypeNumber, "ip", "ttl")
	ctx := newTestCtx(t, b)

	proto := ctx.Tree.NewProto("ip", 0)
	field := ctx.Tree.NewField(0, proto, true)
	ctx.Tree.Field(field).Name = "ttl"
	ctx.Tree.Field(field).Raw = []byte{0x40}
	ctx.CurrentProto = proto

	n, code, err := EvalNumber(ctx, ref)
	require.Nil(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, uint32(0x40), n)
}

func TestEvalNegUnsignedWraps(t *testing.T) {
	b := protodb.NewBuilder()
	neg := b.Operator(protodb.OperatorSpec{Type: protodb.TypeNumber, Op: protodb.OpNeg, Left: b.NumberLit(1)})
	ctx := newTestCtx(t, b)

	n, code, err := EvalNumber(ctx, neg)
	require.Nil(t, err)
	assert.Equal(t, status.OK, code)
	assert.Equal(t, uint32(0xFFFFFFFF), n)
}
