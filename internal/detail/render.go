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

package detail

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/plugin"
	"buf.build/go/netdecode/internal/protodb"
)

// fieldView adapts a *FieldNode to [plugin.ShowFieldView] without
// exporting FieldNode's fields as methods (which would collide with the
// struct's own field names).
type fieldView struct{ node *FieldNode }

func (v fieldView) Name() string     { return v.node.Name }
func (v fieldView) LongName() string { return v.node.LongName }
func (v fieldView) Position() int    { return v.node.Position }
func (v fieldView) Size() int        { return v.node.Size }
func (v fieldView) Raw() []byte      { return v.node.Raw }
func (v fieldView) Mask() uint64     { return v.node.Mask }

// FormatField renders a FieldNode's ShowValue/ShowMap from its
// already-populated Raw bytes. Custom templates
// (VisualTemplate.CustomTemplate) are rendered by the caller via
// customRenderer, since walking a showdtl template requires the
// expression evaluator, which sits above this package; customRenderer
// may be nil if no custom templates are in use.
func (t *Tree) FormatField(r Ref, db *protodb.DB, visual *protodb.VisualTemplate, customRenderer func(tmpl protodb.Ref, node Ref) (string, error)) error {
	node := t.Fields.Get(r)

	if visual.HasNativeFunction {
		fn := nativeFunc(visual.NativeFunction)
		show, err := fn(node.Raw)
		if err != nil {
			return err
		}
		node.ShowValue = show
	} else if visual.HasPlugin {
		// Plugin dispatch happens at the decoder layer, which owns the
		// plugin.Registry; by the time FormatField runs, ShowValue may
		// already have been filled in by the decoder's plugin call. If
		// not (no registry / unregistered id), fall back to the default
		// template rendering below.
		if node.ShowValue == "" {
			node.ShowValue = renderTemplate(node.Raw, visual)
		}
	} else {
		node.ShowValue = renderTemplate(node.Raw, visual)
	}

	if visual.MapTable != arena.Invalid {
		if show, ok := evalMapTable(db, visual.MapTable, node.Raw); ok {
			node.ShowMap = show
			node.HasShowMap = true
		}
	}

	if visual.CustomTemplate != arena.Invalid && customRenderer != nil {
		show, err := customRenderer(visual.CustomTemplate, r)
		if err != nil {
			return err
		}
		node.ShowDetails = show
	}

	return nil
}

// ShowViewOf exposes a FieldNode as a [plugin.ShowFieldView] for a show
// plugin callback.
func (t *Tree) ShowViewOf(r Ref) plugin.ShowFieldView {
	return fieldView{node: t.Fields.Get(r)}
}

func nativeFunc(fn protodb.NativeFunction) func([]byte) (string, error) {
	switch fn {
	case protodb.NativeIPv4Dotted:
		return nativeIPv4Dotted
	case protodb.NativeASCIILine:
		return nativeASCIILine
	case protodb.NativeHTTPContent:
		return nativeHTTPContent
	default:
		return nativeASCII
	}
}

// renderTemplate renders raw bytes per a field's base/digit-size/
// separator settings.
func renderTemplate(raw []byte, visual *protodb.VisualTemplate) string {
	switch visual.Base {
	case protodb.BaseASCII:
		s, _ := nativeASCII(raw)
		return s
	case protodb.BaseFloat:
		if len(raw) >= 4 {
			bits := beUint32(raw[:4])
			return fmt.Sprintf("%g", math.Float32frombits(bits))
		}
	case protodb.BaseDouble:
		if len(raw) >= 8 {
			bits := beUint64(raw[:8])
			return fmt.Sprintf("%g", math.Float64frombits(bits))
		}
	}

	group := visual.DigitSize
	if group <= 0 {
		group = len(raw)
		if group == 0 {
			group = 1
		}
	}
	sep := visual.Separator

	var groups []string
	for i := 0; i < len(raw); i += group {
		end := i + group
		if end > len(raw) {
			end = len(raw)
		}
		groups = append(groups, renderGroup(raw[i:end], visual.Base))
	}
	return strings.Join(groups, sep)
}

func renderGroup(chunk []byte, base protodb.NumberBase) string {
	v := beUintN(chunk)
	width := len(chunk) * 2
	switch base {
	case protodb.BaseBin:
		width = len(chunk) * 8
		return fmt.Sprintf("%0*b", width, v)
	case protodb.BaseHex:
		return fmt.Sprintf("0x%0*x", width, v)
	case protodb.BaseHexNo0x:
		return fmt.Sprintf("%0*x", width, v)
	default: // BaseDec
		return fmt.Sprintf("%d", v)
	}
}

// beUintN decodes up to 8 bytes of chunk as a big-endian unsigned
// integer (network byte order, matching buf2int semantics).
func beUintN(chunk []byte) uint64 {
	var v uint64
	for _, b := range chunk {
		v = v<<8 | uint64(b)
	}
	return v
}

func beUint32(b []byte) uint32 { return uint32(beUintN(b)) }
func beUint64(b []byte) uint64 { return beUintN(b) }

// evalMapTable evaluates a VisualTemplate's MapTable (a KindSwitch
// element whose cases carry a literal operand as their body) over raw,
// returning the matched literal's text.
func evalMapTable(db *protodb.DB, mapTable protodb.Ref, raw []byte) (string, bool) {
	sw := db.Element(mapTable)
	if sw.Kind != protodb.KindSwitch {
		return "", false
	}
	numVal := beUintN(raw)
	for c := range protodb.Children(db, mapTable) {
		ce := db.Element(c)
		switch ce.Kind {
		case protodb.KindCase:
			cs := ce.Case()
			matched := false
			if cs.IsRange {
				matched = numVal >= cs.Low && numVal <= cs.High
			} else if len(cs.Bytes) > 0 {
				for _, b := range cs.Bytes {
					if bytes.Equal(b, raw) {
						matched = true
						break
					}
				}
			} else {
				for _, v := range cs.Values {
					if v == numVal {
						matched = true
						break
					}
				}
			}
			if matched {
				return literalOf(db, ce.FirstChild), true
			}
		case protodb.KindDefault:
			return literalOf(db, ce.FirstChild), true
		}
	}
	return "", false
}

func literalOf(db *protodb.DB, r protodb.Ref) string {
	if r == arena.Invalid {
		return ""
	}
	el := db.Element(r)
	if el.Kind != protodb.KindOperand {
		return ""
	}
	return el.Operand().StringLit
}
