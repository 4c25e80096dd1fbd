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

// SwitchSpec is the payload of a KindSwitch element: evaluate KeyExpr,
// select the matching `case` child (by numeric equality/range, or exact
// buffer compare), else `default`.
type SwitchSpec struct {
	KeyExpr       Ref
	CaseSensitive bool // only meaningful when KeyExpr is buffer-typed
}

// CaseSpec is the payload of a KindCase element.
//
// Exactly one of Values or (Low,High) is used, selected by IsRange.
type CaseSpec struct {
	IsRange  bool
	Values   []uint64 // numeric equality set, or buffer literals encoded as values' byte patterns via Bytes
	Bytes    [][]byte // buffer-typed case literals
	Low, High uint64   // inclusive range, numeric only
}

// LoopKind is the closed set of loop semantics.
type LoopKind uint8

const (
	LoopTimesToRepeat LoopKind = iota
	LoopWhile
	LoopDoWhile
	LoopSize
)

// LoopSpec is the payload of a KindLoop element.
type LoopSpec struct {
	Kind LoopKind
	// CountExpr: t2r's repeat count, or size's byte budget. Condition:
	// while/do-while's test expression. Exactly one is populated
	// depending on Kind.
	CountExpr     Ref
	ConditionExpr Ref
	Body          Ref // first element of the loop body
}

// IfSpec is the payload of a KindIf element.
type IfSpec struct {
	Condition  Ref
	Then       Ref
	Else       Ref // arena.Invalid if absent
	OnMissing  Ref // missing-data-fallback branch; arena.Invalid if absent
}

// BlockSpec is the payload of a KindBlock element: a grouping of fields
// that becomes its own DetailTree node only if it consumes > 0 bytes.
type BlockSpec struct {
	FirstField Ref
}

// SetSpec is the payload of a KindSet element.
type SetSpec struct {
	Prototype    Ref // the speculative field/subfield prototype
	Matches      []Ref // ordered KindMatch elements
	DefaultMatch Ref   // arena.Invalid if absent
	ExitWhen     Ref
}

// ChoiceSpec is the payload of a KindChoice element.
type ChoiceSpec struct {
	Prototype Ref
	Matches   []Ref
}

// MatchSpec is the payload of a KindMatch/KindDefaultMatch element.
type MatchSpec struct {
	Condition Ref // arena.Invalid for default-match
	// RenameTo is the name the matched field is retroactively renamed to.
	RenameTo string
	// FirstOverride heads a chain of elements decoded when the match
	// applies: inside a set, as children of the matched field; inside a
	// choice, as the branch body.
	FirstOverride Ref
}

// VariableKind is the closed set of runtime variable kinds.
type VariableKind uint8

const (
	VarNumber VariableKind = iota
	VarBuffer
	VarRefBuffer
	VarProtocol
)

// Validity is the lifetime class of a variable or lookup-table entry.
type Validity uint8

const (
	ValidityStatic Validity = iota
	ValidityThisPacket
	ValidityThisSession
)

// VariableDeclSpec is the payload of a KindVariableDecl element.
type VariableDeclSpec struct {
	Kind     VariableKind
	Validity Validity
	MaxSize  int // for buffer-kind variables
	Initial  InitialValue
}

// InitialValue holds a variable's declared initial value.
type InitialValue struct {
	Number uint32
	Buffer []byte
}

// AssignVariableSpec is the payload of a KindAssignVariable element.
type AssignVariableSpec struct {
	VariableName string
	RHS          Ref
	// AsRefBuffer requests a non-owning alias instead of a copy, valid
	// only when RHS is a protofield/packetbuffer reference.
	AsRefBuffer bool
}

// LookupTableKeySlot describes one slot of a lookup table's key schema.
type LookupTableKeySlot struct {
	Name string
	Kind VariableKind // VarNumber or VarBuffer
	Size int          // bytes, for buffer slots
	Mask []byte       // optional per-key mask; nil means unmasked
}

// LookupTableDataSlot describes one slot of a lookup table's data schema.
type LookupTableDataSlot struct {
	Name string
	Kind VariableKind
	Size int
}

// LookupTableDeclSpec is the payload of a KindLookupTableDecl element.
type LookupTableDeclSpec struct {
	TableName string
	Keys      []LookupTableKeySlot
	Data      []LookupTableDataSlot
}

// AssignLookupTableSpec is the payload of a KindAssignLookupTable element.
type AssignLookupTableSpec struct {
	TableName string
	FieldName string
	RHS       Ref
}

// LookupTableAction is the closed set of update-lookuptable actions.
type LookupTableAction uint8

const (
	ActionAdd LookupTableAction = iota
	ActionPurge
	ActionObsolete
)

// UpdateLookupTableSpec is the payload of a KindUpdateLookupTable element.
type UpdateLookupTableSpec struct {
	TableName string
	Action    LookupTableAction
	Keys      []Ref // one expr per key slot

	// Only meaningful for ActionAdd:
	Data        []Ref // one expr per data slot
	KeepTime    uint32 // seconds; 0 means never (hard) expires
	HitTime     uint32
	NewHitTime  uint32
	EntryValid  bool

	// External-call handler, invoked before/after the update if set.
	ExternalCallNamespace string
	ExternalCallFunction  string
	ExternalCallBefore    bool
	ExternalCallAfter     bool
}

// NextProtoSpec is the payload of a KindNextProto/KindNextProtoCandidate
// element.
type NextProtoSpec struct {
	ProtoExpr Ref // evaluates to a protocol index
}

// ShowSumTemplateSpec / ShowDtlTemplateSpec: both templates are trees of
// the same small node vocabulary (protofield/text/section/pkthdr/
// protohdr/if for summary; protofield/text/if for detail), so they share
// one spec type distinguished by which fields are populated; see
// internal/summary and internal/detail for the walkers.
type TemplateNodeKind uint8

const (
	TplProtoField TemplateNodeKind = iota
	TplText
	TplSection
	TplPktHdr
	TplProtoHdr
	TplIf
)

// TemplateNode is one node of a showsum/showdtl template tree. These are
// not [Element]s: templates are small, purely presentational trees that
// the SummaryView/DetailTree builders walk directly, so giving them their
// own lightweight node type avoids forcing every consumer of the general
// Element graph to also handle presentation-only tags.
type TemplateNode struct {
	Kind TemplateNodeKind

	// TplProtoField:
	ProtoFieldPath []string // "protoname.fieldname.sub..." already split
	Attribute      string   // value/show/showmap/showdtl/mask/position/size/name/longname

	// TplText:
	Literal   string
	TextExpr  Ref // arena.Invalid if Literal is used instead
	Separator string

	// TplSection:
	SectionIndex int  // ignored when SectionNext is set
	SectionNext  bool // selects the section after the current one

	// TplIf:
	Condition Ref
	Then      []TemplateNode
	Else      []TemplateNode

	Children []TemplateNode
}
