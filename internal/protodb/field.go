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

import "regexp"

// ByteOrder is a field or protocol's default byte order.
type ByteOrder uint8

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

// FieldShape is the closed set of byte-layout shapes a `field`/`subfield`
// element can have. This is distinct from [ElementKind]: Shape only
// decorates elements of KindField/KindSubfield, while container
// constructs (set, choice, loop, if, switch, include-block) are modeled
// as their own [ElementKind]s and dispatched directly by the field
// decoder, rather than duplicated here.
type FieldShape uint8

const (
	ShapeFixed FieldShape = iota
	ShapeBit
	ShapeVariable
	ShapeLine
	ShapeTokenEnded
	ShapeTokenWrapped
	ShapePattern
	ShapeEatAll
	ShapePadding
	ShapePlugin
	ShapeTLV
	ShapeDelimited
	ShapeHdrLine
	ShapeDynamic
	ShapeASN1
	ShapeXML
)

// FieldSpec is the payload of a KindField/KindSubfield [Element].
type FieldSpec struct {
	LongName  string
	ByteOrder ByteOrder
	Visual    VisualTemplate

	Shape FieldShape

	Fixed        FixedShape
	Bit          BitShape
	Variable     VariableShape
	TokenEnded   TokenEndedShape
	TokenWrapped TokenWrappedShape
	Pattern      PatternShape
	Padding      PaddingShape
	Plugin       PluginShape
	TLV          TLVShape
	Delimited    DelimitedShape
	HdrLine      HdrLineShape
	Dynamic      DynamicShape
	XML          XMLShape
}

// FixedShape: fixed(size).
type FixedShape struct {
	Size int // bytes
}

// BitShape: bit(width, mask, is-last-in-group).
type BitShape struct {
	WidthBits    int
	Mask         uint64
	IsLastInGroup bool
	ContainerSize int // bytes in the shared container, set on every member
}

// VariableShape: variable(length-expr).
type VariableShape struct {
	LengthExpr Ref
}

// TokenEndedShape: tokenended(end-token | end-regex, ...).
type TokenEndedShape struct {
	EndToken            []byte
	EndRegex             *regexp.Regexp
	EndOffsetExpr        Ref // optional, arena.Invalid if absent
	TrailingDiscardBytes int
	HasTrailingDiscard   bool
}

// TokenWrappedShape: tokenwrapped(begin, end, ...).
type TokenWrappedShape struct {
	BeginToken    []byte
	BeginRegex    *regexp.Regexp
	EndToken      []byte
	EndRegex      *regexp.Regexp
	BeginOffsetExpr Ref
	EndOffsetExpr   Ref
	TrailingDiscardBytes int
	HasTrailingDiscard   bool
}

// PatternShape: pattern(regex, partial-match-continues?).
type PatternShape struct {
	Regex                  *regexp.Regexp
	PartialMatchContinues bool
}

// PaddingShape: padding(align).
type PaddingShape struct {
	Align int
}

// PluginShape: plugin(opaque-id).
type PluginShape struct {
	ID string
}

// TLVShape: tlv(type-size, length-size, optional T/L/V subfield descriptors).
type TLVShape struct {
	TypeSize   int
	LengthSize int
	TypeField   Ref // optional override subfield descriptor, else default "Type"
	LengthField Ref
	ValueField  Ref
}

// DelimitedShape: delimited(begin-regex, end-regex, continue flags).
type DelimitedShape struct {
	BeginRegex             *regexp.Regexp
	EndRegex               *regexp.Regexp
	ContinueOnMissingBegin bool
	ContinueOnMissingEnd   bool
}

// HdrLineShape: hdrline(separator-regex, name-subfield, value-subfield).
type HdrLineShape struct {
	SeparatorRegex *regexp.Regexp
	NameField      Ref
	ValueField     Ref
}

// DynamicShape: dynamic(named-capture-regex, per-capture subfields).
type DynamicShape struct {
	Regex *regexp.Regexp
	// Captures maps a named capture group to an (optional) subfield
	// descriptor Ref that should be used to render it; arena.Invalid
	// means "render with the field's own visualization template".
	Captures map[string]Ref
}

// XMLShape: xml(optional size-expr, else heuristic end-tag search).
type XMLShape struct {
	SizeExpr Ref // arena.Invalid if absent
}

// VisualTemplate controls how the DetailTree builder renders a field's
// ShowValue.
type VisualTemplate struct {
	Base           NumberBase
	DigitSize       int // bytes per digit group
	Separator       string
	MapTable        Ref // switch-shaped Element evaluated over the field value; arena.Invalid if absent
	CustomTemplate  Ref // showdtl-template Element; arena.Invalid if absent
	NativeFunction NativeFunction
	HasNativeFunction bool
	PluginID        string
	HasPlugin       bool
}

// NumberBase is a presentation base for [VisualTemplate].
type NumberBase uint8

const (
	BaseBin NumberBase = iota
	BaseDec
	BaseHex
	BaseHexNo0x
	BaseASCII
	BaseFloat
	BaseDouble
)

// NativeFunction names one of the four built-in presentation routines:
// IPv4 dotted-quad, ASCII, ASCII-line, HTTP-content.
type NativeFunction uint8

const (
	NativeIPv4Dotted NativeFunction = iota
	NativeASCII
	NativeASCIILine
	NativeHTTPContent
)
