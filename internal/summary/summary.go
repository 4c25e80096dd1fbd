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

// Package summary is the SummaryView builder: it assembles a one-line,
// N-column [Record] per packet by walking a protocol's showsum-template
// tree.
package summary

import (
	"fmt"
	"strings"

	"buf.build/go/netdecode/internal/detail"
	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
)

// Record is one packet's SummaryView: N declared section strings, from
// the declared summary-view column list of length N, plus a transient
// N+1-th scratch slot used while decoding inside a block.
type Record struct {
	Sections []string
	overflow strings.Builder
	cursor   int
}

// NewRecord returns a Record sized to n columns.
func NewRecord(n int) *Record {
	return &Record{Sections: make([]string, n)}
}

// Reset empties the record for a new packet, retaining slice capacity.
func (r *Record) Reset() {
	for i := range r.Sections {
		r.Sections[i] = ""
	}
	r.overflow.Reset()
	r.cursor = 0
}

// Builder walks showsum-template trees against one packet's evaluation
// context, writing into a [Record].
type Builder struct {
	DB  *protodb.DB
	Ctx *expr.Context
}

// BuildProtocol appends proto's summary template contribution to rec,
// then merges any block overflow text accumulated while protofield
// references inside the template resolved to fields nested under a
// block: block text appears after its enclosing protocol's text.
func (b *Builder) BuildProtocol(tmpl []protodb.TemplateNode, rec *Record) error {
	for _, n := range tmpl {
		if err := b.walk(n, rec); err != nil {
			return err
		}
	}
	if rec.overflow.Len() > 0 {
		idx := rec.cursor
		if idx < 0 || idx >= len(rec.Sections) {
			idx = len(rec.Sections) - 1
		}
		rec.Sections[idx] += rec.overflow.String()
		rec.overflow.Reset()
	}
	return nil
}

func (b *Builder) walk(n protodb.TemplateNode, rec *Record) error {
	switch n.Kind {
	case protodb.TplSection:
		if n.SectionNext {
			rec.cursor++
		} else {
			rec.cursor = n.SectionIndex
		}
		return nil

	case protodb.TplText:
		text := n.Literal
		if n.TextExpr != 0 {
			s, err := b.evalText(n.TextExpr)
			if err != nil {
				return err
			}
			text = s
		}
		b.append(rec, text+n.Separator)
		return nil

	case protodb.TplPktHdr:
		var ts uint32
		if id, ok := b.Ctx.Vars.Lookup("timestamp_s"); ok {
			ts, _ = b.Ctx.Vars.Number(id)
		}
		b.append(rec, fmt.Sprintf("%d", ts)+n.Separator)
		return nil

	case protodb.TplProtoHdr:
		b.append(rec, protoLongName(b.DB, b.Ctx.CurrentProto, b.Ctx.Tree)+n.Separator)
		return nil

	case protodb.TplProtoField:
		ref, ok := b.Ctx.Tree.ResolveProtoField(b.Ctx.CurrentProto, n.ProtoFieldPath)
		if !ok {
			return nil // missing field reference: summary text simply omits it
		}
		b.appendField(rec, ref, n.Attribute, n.Separator)
		return nil

	case protodb.TplIf:
		ok, code, err := expr.EvalBool(b.Ctx, n.Condition)
		if code == status.Failure {
			return err
		}
		if code == status.Warning {
			return nil
		}
		branch := n.Else
		if ok {
			branch = n.Then
		}
		for _, c := range branch {
			if err := b.walk(c, rec); err != nil {
				return err
			}
		}
		return nil

	default:
		for _, c := range n.Children {
			if err := b.walk(c, rec); err != nil {
				return err
			}
		}
		return nil
	}
}

func (b *Builder) evalText(ex protodb.Ref) (string, error) {
	el := b.DB.Element(ex)
	typ := protodb.TypeNumber
	if el.Kind == protodb.KindOperator {
		typ = el.Operator().Type
	} else {
		typ = el.Operand().Type
	}
	if typ == protodb.TypeBuffer {
		v, code, err := expr.EvalBuffer(b.Ctx, ex)
		if code == status.Failure {
			return "", err
		}
		return string(v), nil
	}
	v, code, err := expr.EvalNumber(b.Ctx, ex)
	if code == status.Failure {
		return "", err
	}
	return fmt.Sprintf("%d", v), nil
}

// append writes text to the current section.
func (b *Builder) append(rec *Record, text string) {
	idx := rec.cursor
	if idx < 0 || idx >= len(rec.Sections) {
		return
	}
	rec.Sections[idx] += text
}

// appendField writes a protofield attribute's text to the current
// section, or to the overflow slot if the resolved field lies underneath
// a block: the builder writes to an overflow slot to preserve the rule
// that block text appears after its enclosing protocol's text.
func (b *Builder) appendField(rec *Record, ref detail.Ref, attribute, separator string) {
	text := fieldAttribute(b.Ctx.Tree, ref, attribute)
	if isUnderBlock(b.Ctx.Tree, ref) {
		rec.overflow.WriteString(text + separator)
		return
	}
	idx := rec.cursor
	if idx < 0 || idx >= len(rec.Sections) {
		return
	}
	rec.Sections[idx] += text + separator
}

// isUnderBlock reports whether ref's ancestor chain passes through a
// block-kind FieldNode (IsField == false) before reaching its ProtoNode
// root.
func isUnderBlock(tree *detail.Tree, ref detail.Ref) bool {
	cur := tree.Field(ref).Parent
	for cur != 0 {
		node := tree.Field(cur)
		if !node.IsField {
			return true
		}
		cur = node.Parent
	}
	return false
}

// FieldAttribute reads one of a FieldNode's presentation attributes by
// name (value/show/showmap/showdtl/mask/position/size/name/longname),
// shared by the SummaryView builder and the per-field custom detail
// template renderer.
func FieldAttribute(tree *detail.Tree, ref detail.Ref, attribute string) string {
	return fieldAttribute(tree, ref, attribute)
}

func fieldAttribute(tree *detail.Tree, ref detail.Ref, attribute string) string {
	f := tree.Field(ref)
	switch attribute {
	case "show", "value":
		return f.ShowValue
	case "showmap":
		if f.HasShowMap {
			return f.ShowMap
		}
		return f.ShowValue
	case "showdtl":
		return f.ShowDetails
	case "mask":
		return fmt.Sprintf("0x%x", f.Mask)
	case "position":
		return fmt.Sprintf("%d", f.Position)
	case "size":
		return fmt.Sprintf("%d", f.Size)
	case "name":
		return f.Name
	case "longname":
		return f.LongName
	default:
		return f.ShowValue
	}
}

func protoLongName(db *protodb.DB, cur detail.ProtoRef, tree *detail.Tree) string {
	name := tree.Proto(cur).Name
	for i := range db.Protocols {
		if db.Protocols[i].Name == name {
			return db.Protocols[i].LongName
		}
	}
	return name
}
