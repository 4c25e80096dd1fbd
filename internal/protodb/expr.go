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

package protodb

// ExprType is an expression (sub)tree's declared return type.
type ExprType uint8

const (
	TypeNumber ExprType = iota
	TypeBuffer
)

// OperandKind is the closed set of expression operand leaves.
type OperandKind uint8

const (
	OperandNumberLit OperandKind = iota
	OperandStringLit
	OperandVariableRef
	OperandLookupTableRef
	OperandProtoFieldRef
	OperandProtoFieldThis
	OperandCall
)

// Slice describes an optional `[start:size]` slicing spec attached to a
// buffer-typed variable/lookup-table/protofield operand.
type Slice struct {
	Present    bool
	StartExpr  Ref
	SizeExpr   Ref
}

// Function is the closed set of builtin call operands.
type Function uint8

const (
	FuncBuf2Int Function = iota
	FuncAscii2Int
	FuncInt2Buf
	FuncChangeByteOrder
	FuncIsPresent
	FuncHasString
	FuncExtractString
	FuncIsASN1Type
	FuncCheckLookupTable
	FuncUpdateLookupTable
)

// OperandSpec is the payload of a KindOperand element.
type OperandSpec struct {
	Type ExprType
	Kind OperandKind

	NumberLit uint32
	StringLit string

	VariableName  string
	LookupTable   string
	LookupField   string
	ProtoFieldPath []string // "protoname.fieldname.sub..."

	Slice Slice

	Func     Function
	Args     []Ref
	// Int2Buf/ChangeByteOrder size argument, in bytes.
	Size int
	// ExtractString's capture-group index.
	MatchIndex int
	// IsASN1Type's (class, tag) literal pair.
	ASN1Class, ASN1Tag uint32
}

// OperatorKind is the closed set of expression operators.
type OperatorKind uint8

const (
	OpAdd OperatorKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpNot
	OpLogicalAnd
	OpLogicalOr
	OpLogicalNot
	OpNeg
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpShl
	OpShr
)

// OperatorSpec is the payload of a KindOperator element.
type OperatorSpec struct {
	Type ExprType // this operator's own return type
	Op   OperatorKind
	Signed bool // whether shifts/comparisons treat operands as signed

	// Operand expression Refs; unary/negation ops only populate Left.
	Left, Right Ref
}
