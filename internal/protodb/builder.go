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

import (
	"fmt"
	"iter"
	"regexp"

	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/scc"
)

// Builder constructs a [DB] programmatically. This stands in for the
// external protocol-description parser (XML-to-DB is a declared
// non-goal); production front-ends and this repo's test fixtures
// (internal/protodbtest) both go through this same API.
type Builder struct {
	db DB
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	b := &Builder{}
	b.db.StartProto = NoProto
	b.db.DefaultProto = NoProto
	b.db.EtherPaddingProto = NoProto
	return b
}

// Add allocates a new Element with the given kind/name/payload and
// returns its Ref. Use [Builder.Chain] to link siblings and set a
// parent's FirstChild to the chain's head.
func (b *Builder) Add(kind ElementKind, name string, payload any) Ref {
	r := b.db.Elements.New()
	*b.db.Elements.Get(r) = Element{Kind: kind, Name: name, Payload: payload}
	return r
}

// Chain links elems as a NextSibling chain and returns the head (or
// arena.Invalid if elems is empty).
func (b *Builder) Chain(elems ...Ref) Ref {
	if len(elems) == 0 {
		return arena.Invalid
	}
	for i := 0; i+1 < len(elems); i++ {
		b.db.Elements.Get(elems[i]).NextSibling = elems[i+1]
	}
	return elems[0]
}

// SetChildren sets parent's FirstChild to the head of a chain built from
// children.
func (b *Builder) SetChildren(parent Ref, children ...Ref) {
	b.db.Elements.Get(parent).FirstChild = b.Chain(children...)
}

// Field adds a field/subfield element.
func (b *Builder) Field(kind ElementKind, name string, spec FieldSpec) Ref {
	return b.Add(kind, name, &spec)
}

// Operand adds an expression operand leaf.
func (b *Builder) Operand(spec OperandSpec) Ref {
	return b.Add(KindOperand, "", &spec)
}

// Operator adds an expression operator node.
func (b *Builder) Operator(spec OperatorSpec) Ref {
	return b.Add(KindOperator, "", &spec)
}

// NumberLit is shorthand for a numeric-literal operand.
func (b *Builder) NumberLit(v uint32) Ref {
	return b.Operand(OperandSpec{Type: TypeNumber, Kind: OperandNumberLit, NumberLit: v})
}

// VariableRef is shorthand for a variable-reference operand.
func (b *Builder) VariableRef(typ ExprType, name string) Ref {
	return b.Operand(OperandSpec{Type: typ, Kind: OperandVariableRef, VariableName: name})
}

// ProtoFieldRef is shorthand for a protocol-field reference operand,
// e.g. ProtoFieldRef(TypeNumber, "ip", "totallen").
func (b *Builder) ProtoFieldRef(typ ExprType, path ...string) Ref {
	return b.Operand(OperandSpec{Type: typ, Kind: OperandProtoFieldRef, ProtoFieldPath: path})
}

// BinOp is shorthand for a binary operator over two already-built Refs.
func (b *Builder) BinOp(typ ExprType, op OperatorKind, left, right Ref) Ref {
	return b.Operator(OperatorSpec{Type: typ, Op: op, Left: left, Right: right})
}

// Block adds a block element wrapping the given children.
func (b *Builder) Block(name string, children ...Ref) Ref {
	r := b.Add(KindBlock, name, &BlockSpec{FirstField: b.Chain(children...)})
	return r
}

// If adds an if element.
func (b *Builder) If(condition, then, els, onMissing Ref) Ref {
	return b.Add(KindIf, "", &IfSpec{Condition: condition, Then: then, Else: els, OnMissing: onMissing})
}

// Switch adds a switch element over the given cases (each built via
// [Builder.Case]) and optional default.
func (b *Builder) Switch(key Ref, caseSensitive bool, cases ...Ref) Ref {
	r := b.Add(KindSwitch, "", &SwitchSpec{KeyExpr: key, CaseSensitive: caseSensitive})
	b.SetChildren(r, cases...)
	return r
}

// Case adds a numeric-equality case with a body.
func (b *Builder) Case(values []uint64, body Ref) Ref {
	r := b.Add(KindCase, "", &CaseSpec{Values: values})
	b.db.Elements.Get(r).FirstChild = body
	return r
}

// Default adds a default case with a body.
func (b *Builder) Default(body Ref) Ref {
	r := b.Add(KindDefault, "", nil)
	b.db.Elements.Get(r).FirstChild = body
	return r
}

// Loop adds a loop element.
func (b *Builder) Loop(spec LoopSpec) Ref {
	return b.Add(KindLoop, "", &spec)
}

// LoopCtrl adds a break/continue marker. brk selects break (true) vs
// continue (false).
func (b *Builder) LoopCtrl(brk bool) Ref {
	return b.Add(KindLoopCtrl, "", brk)
}

// Set adds a set element.
func (b *Builder) Set(spec SetSpec) Ref {
	return b.Add(KindSet, "", &spec)
}

// Choice adds a choice element.
func (b *Builder) Choice(spec ChoiceSpec) Ref {
	return b.Add(KindChoice, "", &spec)
}

// Match adds a match element.
func (b *Builder) Match(spec MatchSpec) Ref {
	return b.Add(KindMatch, "", &spec)
}

// DefaultMatch adds a default-match element.
func (b *Builder) DefaultMatch(renameTo string, firstOverride Ref) Ref {
	return b.Add(KindDefaultMatch, "", &MatchSpec{RenameTo: renameTo, FirstOverride: firstOverride})
}

// IncludeBlock adds an include-block element targeting block.
func (b *Builder) IncludeBlock(block Ref) Ref {
	return b.Add(KindIncludeBlock, "", block)
}

// AssignVariable adds an assign-variable element.
func (b *Builder) AssignVariable(spec AssignVariableSpec) Ref {
	return b.Add(KindAssignVariable, "", &spec)
}

// AssignLookupTable adds an assign-lookuptable element.
func (b *Builder) AssignLookupTable(spec AssignLookupTableSpec) Ref {
	return b.Add(KindAssignLookupTable, "", &spec)
}

// UpdateLookupTable adds an update-lookuptable element.
func (b *Builder) UpdateLookupTable(spec UpdateLookupTableSpec) Ref {
	return b.Add(KindUpdateLookupTable, "", &spec)
}

// NextProto adds a nextproto element.
func (b *Builder) NextProto(protoExpr Ref) Ref {
	return b.Add(KindNextProto, "", &NextProtoSpec{ProtoExpr: protoExpr})
}

// NextProtoCandidate adds a nextproto-candidate element.
func (b *Builder) NextProtoCandidate(protoExpr Ref) Ref {
	return b.Add(KindNextProtoCandidate, "", &NextProtoSpec{ProtoExpr: protoExpr})
}

// CompileRegex compiles pattern via the shared, deduplicated regex
// cache (see regexcache.go).
func (b *Builder) CompileRegex(pattern string) (*regexp.Regexp, error) {
	re, err := compileRegex(pattern)
	if err != nil {
		return nil, fmt.Errorf("protodb: invalid regex %q: %w", pattern, err)
	}
	return re, nil
}

// AddProtocol registers a protocol and returns its index.
func (b *Builder) AddProtocol(p Protocol) ProtoIndex {
	b.db.Protocols = append(b.db.Protocols, p)
	return ProtoIndex(len(b.db.Protocols) - 1)
}

// SetStart sets the protocol the dispatcher begins decoding with.
func (b *Builder) SetStart(p ProtoIndex) { b.db.StartProto = p }

// SetDefault sets the protocol selected when encapsulation walking finds
// neither a `found` nor a `candidate`/`deferred` result.
func (b *Builder) SetDefault(p ProtoIndex) { b.db.DefaultProto = p }

// SetEtherPadding sets the protocol used for trailing padding bytes.
func (b *Builder) SetEtherPadding(p ProtoIndex) { b.db.EtherPaddingProto = p }

// SetSummaryColumns declares the N summary-view columns.
func (b *Builder) SetSummaryColumns(names ...string) { b.db.SummaryColumns = names }

// SetEncapsulation sets protocol p's encapsulation/next-proto selection
// tree, for front-ends that need to build cases referencing protocols
// declared later in the same document than the one being updated.
func (b *Builder) SetEncapsulation(p ProtoIndex, first Ref) {
	b.db.Protocols[p].FirstEncapsulation = first
}

// Build finalizes the DB, validating that include-block targets do not
// form a cycle (a db-inconsistency error: an unbroken cycle would make
// the field decoder recurse forever).
func (b *Builder) Build() (*DB, error) {
	var graph scc.Graph[Ref] = func(r Ref) iter.Seq[Ref] {
		return func(yield func(Ref) bool) {
			el := b.db.Elements.Get(r)
			if el.Kind == KindIncludeBlock {
				if !yield(el.IncludeBlock()) {
					return
				}
			}
			for c := range Children(&b.db, r) {
				if !yield(c) {
					return
				}
			}
		}
	}

	for _, p := range b.db.Protocols {
		if p.FirstField == arena.Invalid {
			continue
		}
		dag := scc.Sort(p.FirstField, graph)
		for comp := range dag.Topological() {
			if !comp.IsTrivial() {
				return nil, fmt.Errorf("protodb: cyclic include-block reachable from protocol %q", p.Name)
			}
		}
	}

	db := b.db
	return &db, nil
}
