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

package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/netdecode/internal/detail"
	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/lookup"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/vars"
)

func newTestContext(t *testing.T) (*protodb.DB, *expr.Context, detail.ProtoRef, detail.Ref) {
	t.Helper()
	db := &protodb.DB{Protocols: []protodb.Protocol{{Name: "tcp", LongName: "Transmission Control Protocol"}}}

	tree := detail.NewTree()
	proto := tree.NewProto("tcp", 0)

	field := tree.NewField(0, proto, true)
	f := tree.Field(field)
	f.Name = "sport"
	f.ShowValue = "443"

	v := vars.NewStore()
	_, err := vars.DeclareStandard(v)
	require.Nil(t, err)

	ctx := expr.NewContext(db, v, lookup.NewStore(), tree, nil)
	ctx.CurrentProto = proto
	ctx.CurrentField = field

	return db, ctx, proto, field
}

func TestBuildProtocolLiteralAndProtoHdrText(t *testing.T) {
	db, ctx, _, _ := newTestContext(t)
	b := &Builder{DB: db, Ctx: ctx}
	rec := NewRecord(2)

	tmpl := []protodb.TemplateNode{
		{Kind: protodb.TplText, Literal: "tcp", Separator: " "},
		{Kind: protodb.TplProtoHdr, Separator: ""},
	}
	require.NoError(t, b.BuildProtocol(tmpl, rec))
	assert.Equal(t, "tcp Transmission Control Protocol", rec.Sections[0])
	assert.Equal(t, "", rec.Sections[1])
}

func TestBuildProtocolSectionNavigation(t *testing.T) {
	db, ctx, _, _ := newTestContext(t)
	b := &Builder{DB: db, Ctx: ctx}
	rec := NewRecord(3)

	tmpl := []protodb.TemplateNode{
		{Kind: protodb.TplText, Literal: "a"},
		{Kind: protodb.TplSection, SectionNext: true},
		{Kind: protodb.TplText, Literal: "b"},
		{Kind: protodb.TplSection, SectionIndex: 0},
		{Kind: protodb.TplText, Literal: "c"},
	}
	require.NoError(t, b.BuildProtocol(tmpl, rec))
	assert.Equal(t, "ac", rec.Sections[0])
	assert.Equal(t, "b", rec.Sections[1])
	assert.Equal(t, "", rec.Sections[2])
}

func TestBuildProtocolResolvesProtoField(t *testing.T) {
	db, ctx, _, _ := newTestContext(t)
	b := &Builder{DB: db, Ctx: ctx}
	rec := NewRecord(1)

	tmpl := []protodb.TemplateNode{
		{Kind: protodb.TplProtoField, ProtoFieldPath: []string{"tcp", "sport"}, Attribute: "value"},
	}
	require.NoError(t, b.BuildProtocol(tmpl, rec))
	assert.Equal(t, "443", rec.Sections[0])
}

func TestBuildProtocolMissingProtoFieldIsOmitted(t *testing.T) {
	db, ctx, _, _ := newTestContext(t)
	b := &Builder{DB: db, Ctx: ctx}
	rec := NewRecord(1)

	tmpl := []protodb.TemplateNode{
		{Kind: protodb.TplProtoField, ProtoFieldPath: []string{"tcp", "nosuch"}, Attribute: "value"},
	}
	require.NoError(t, b.BuildProtocol(tmpl, rec))
	assert.Equal(t, "", rec.Sections[0])
}

func TestFieldAttributeVariants(t *testing.T) {
	tree := detail.NewTree()
	proto := tree.NewProto("tcp", 0)
	r := tree.NewField(0, proto, true)
	f := tree.Field(r)
	f.Name = "flags"
	f.LongName = "TCP flags"
	f.Position = 13
	f.Size = 1
	f.Mask = 0x3f
	f.ShowValue = "SYN,ACK"

	assert.Equal(t, "SYN,ACK", FieldAttribute(tree, r, "value"))
	assert.Equal(t, "SYN,ACK", FieldAttribute(tree, r, "showmap"))
	assert.Equal(t, "0x3f", FieldAttribute(tree, r, "mask"))
	assert.Equal(t, "13", FieldAttribute(tree, r, "position"))
	assert.Equal(t, "1", FieldAttribute(tree, r, "size"))
	assert.Equal(t, "flags", FieldAttribute(tree, r, "name"))
	assert.Equal(t, "TCP flags", FieldAttribute(tree, r, "longname"))
}

func TestRecordResetClearsSectionsAndOverflow(t *testing.T) {
	rec := NewRecord(2)
	rec.Sections[0] = "x"
	rec.Sections[1] = "y"
	rec.overflow.WriteString("z")
	rec.Reset()
	assert.Equal(t, []string{"", ""}, rec.Sections)
	assert.Equal(t, 0, rec.overflow.Len())
}
