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

// Package protodb is the in-memory representation of the protocol
// description database ("protocol DB"): a read-only, directed graph of
// Elements that the decoder walks to parse packets.
//
// This package only models the DB; it does not parse a protocol
// description language into one (that remains an external front-end's
// job). [Builder] lets a front-end, or a test, build a DB
// programmatically.
package protodb

import "buf.build/go/netdecode/internal/arena"

// Ref addresses an [Element] within a [DB]'s element arena. The zero Ref
// ([arena.Invalid]) means "no element", matching FirstChild/NextSibling
// links that are absent.
type Ref = arena.Ref

// ElementKind is the closed set of tags an [Element] can carry.
type ElementKind uint8

const (
	KindInvalid ElementKind = iota

	KindField
	KindSubfield
	KindSwitch
	KindCase
	KindDefault
	KindLoop
	KindLoopCtrl
	KindIf
	KindBlock
	KindIncludeBlock
	KindSet
	KindChoice
	KindMatch
	KindDefaultMatch
	KindAssignVariable
	KindAssignLookupTable
	KindUpdateLookupTable
	KindNextProto
	KindNextProtoCandidate
	KindVariableDecl
	KindLookupTableDecl
	KindShowSumTemplate
	KindShowDtlTemplate

	// Expression nodes: operand/operator nodes for expressions.
	KindOperand
	KindOperator
)

// String names the element kind, for error messages and tracing.
func (k ElementKind) String() string {
	if int(k) < len(elementKindNames) {
		return elementKindNames[k]
	}
	return "unknown"
}

var elementKindNames = [...]string{
	KindInvalid:            "invalid",
	KindField:               "field",
	KindSubfield:            "subfield",
	KindSwitch:              "switch",
	KindCase:                "case",
	KindDefault:             "default",
	KindLoop:                "loop",
	KindLoopCtrl:            "loopctrl",
	KindIf:                  "if",
	KindBlock:               "block",
	KindIncludeBlock:        "include-block",
	KindSet:                 "set",
	KindChoice:              "choice",
	KindMatch:               "match",
	KindDefaultMatch:        "default-match",
	KindAssignVariable:      "assign-variable",
	KindAssignLookupTable:   "assign-lookuptable",
	KindUpdateLookupTable:   "update-lookuptable",
	KindNextProto:           "nextproto",
	KindNextProtoCandidate:  "nextproto-candidate",
	KindVariableDecl:        "variable-decl",
	KindLookupTableDecl:     "lookuptable-decl",
	KindShowSumTemplate:     "showsum-template",
	KindShowDtlTemplate:     "showdtl-template",
	KindOperand:             "operand",
	KindOperator:            "operator",
}

// Element is a single node of the protocol DB graph: a Kind enum plus a
// Payload holding one of the per-kind spec structs below, an idiomatic
// Go rendering of a tagged union.
type Element struct {
	Kind ElementKind
	Name string

	FirstChild  Ref
	NextSibling Ref

	Payload any
}

// Children iterates the direct children of an element in DB order.
func Children(db *DB, parent Ref) func(yield func(Ref) bool) {
	return func(yield func(Ref) bool) {
		for r := db.Elements.Get(parent).FirstChild; r != arena.Invalid; r = db.Elements.Get(r).NextSibling {
			if !yield(r) {
				return
			}
		}
	}
}

// Field returns e's [FieldSpec] payload. Panics if e is not a field or
// subfield element; callers should only call this after checking Kind.
func (e *Element) Field() *FieldSpec { return e.Payload.(*FieldSpec) }

// Switch returns e's [SwitchSpec] payload.
func (e *Element) Switch() *SwitchSpec { return e.Payload.(*SwitchSpec) }

// Case returns e's [CaseSpec] payload.
func (e *Element) Case() *CaseSpec { return e.Payload.(*CaseSpec) }

// Loop returns e's [LoopSpec] payload.
func (e *Element) Loop() *LoopSpec { return e.Payload.(*LoopSpec) }

// If returns e's [IfSpec] payload.
func (e *Element) If() *IfSpec { return e.Payload.(*IfSpec) }

// Block returns e's [BlockSpec] payload.
func (e *Element) Block() *BlockSpec { return e.Payload.(*BlockSpec) }

// IncludeBlock returns the Ref of the block this include-block targets.
func (e *Element) IncludeBlock() Ref { return e.Payload.(Ref) }

// Set returns e's [SetSpec] payload.
func (e *Element) Set() *SetSpec { return e.Payload.(*SetSpec) }

// Choice returns e's [ChoiceSpec] payload.
func (e *Element) Choice() *ChoiceSpec { return e.Payload.(*ChoiceSpec) }

// Match returns e's [MatchSpec] payload.
func (e *Element) Match() *MatchSpec { return e.Payload.(*MatchSpec) }

// AssignVariable returns e's [AssignVariableSpec] payload.
func (e *Element) AssignVariable() *AssignVariableSpec { return e.Payload.(*AssignVariableSpec) }

// AssignLookupTable returns e's [AssignLookupTableSpec] payload.
func (e *Element) AssignLookupTable() *AssignLookupTableSpec {
	return e.Payload.(*AssignLookupTableSpec)
}

// UpdateLookupTable returns e's [UpdateLookupTableSpec] payload.
func (e *Element) UpdateLookupTable() *UpdateLookupTableSpec {
	return e.Payload.(*UpdateLookupTableSpec)
}

// NextProto returns e's [NextProtoSpec] payload.
func (e *Element) NextProto() *NextProtoSpec { return e.Payload.(*NextProtoSpec) }

// Operand returns e's [OperandSpec] payload.
func (e *Element) Operand() *OperandSpec { return e.Payload.(*OperandSpec) }

// Operator returns e's [OperatorSpec] payload.
func (e *Element) Operator() *OperatorSpec { return e.Payload.(*OperatorSpec) }

// IsBreak reports whether a KindLoopCtrl element is `break` (vs `continue`).
func (e *Element) IsBreak() bool { return e.Payload.(bool) }

// ShowDtlTemplate returns e's per-field custom detail template (the
// payload of a KindShowDtlTemplate element referenced by a field's
// VisualTemplate.CustomTemplate).
func (e *Element) ShowDtlTemplate() []TemplateNode { return e.Payload.([]TemplateNode) }
