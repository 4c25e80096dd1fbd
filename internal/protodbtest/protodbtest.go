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

// Package protodbtest loads a compact YAML protocol description into a
// [protodb.DB], for this module's own tests only: it is never used on
// the production decode path, which always receives a DB already built
// by [protodb.Builder] (the XML-to-DB parse step itself stays out of
// scope). This keeps golden test fixtures as data files rather than
// inline Go literals.
//
// The supported YAML shape covers the field kinds this module's test
// suite exercises (fixed, variable, line, tokenended, eatall, padding)
// plus a numeric switch for next-protocol selection; it is not a
// general front-end for the full protocol-description element set.
package protodbtest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"buf.build/go/netdecode/internal/protodb"
)

// Doc is the root of one YAML protocol description.
type Doc struct {
	Start             string     `yaml:"start"`
	Default           string     `yaml:"default,omitempty"`
	EtherPadding      string     `yaml:"ether_padding,omitempty"`
	SummaryColumns    []string   `yaml:"summary_columns,omitempty"`
	Protocols         []ProtoDoc `yaml:"protocols"`
}

// ProtoDoc describes one protocol.
type ProtoDoc struct {
	Name     string      `yaml:"name"`
	LongName string      `yaml:"long_name,omitempty"`
	Fields   []FieldDoc  `yaml:"fields,omitempty"`
	NextProto *SwitchDoc `yaml:"nextproto,omitempty"`
}

// FieldDoc describes one field element.
type FieldDoc struct {
	Name  string `yaml:"name"`
	Shape string `yaml:"shape"`

	Size  int `yaml:"size,omitempty"`  // fixed
	Align int `yaml:"align,omitempty"` // padding

	EndToken string `yaml:"end_token,omitempty"` // tokenended

	LengthFieldRef string `yaml:"length_field_ref,omitempty"` // variable: "protoname.fieldname"
}

// SwitchDoc describes a numeric switch over a decoded field's value,
// used for next-protocol selection.
type SwitchDoc struct {
	KeyFieldRef string          `yaml:"key_field_ref"` // "protoname.fieldname"
	Cases       []SwitchCaseDoc `yaml:"cases"`
}

// SwitchCaseDoc is one numeric-equality case of a [SwitchDoc].
type SwitchCaseDoc struct {
	Value uint64 `yaml:"value"`
	Proto string `yaml:"proto"`
}

// Load parses a YAML document into a compiled [protodb.DB].
func Load(data []byte) (*protodb.DB, error) {
	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("protodbtest: %w", err)
	}
	return Build(&doc)
}

// Build compiles a parsed [Doc] into a [protodb.DB].
func Build(doc *Doc) (*protodb.DB, error) {
	b := protodb.NewBuilder()
	byName := map[string]protodb.ProtoIndex{}

	for _, pd := range doc.Protocols {
		var fieldRefs []protodb.Ref
		for _, fd := range pd.Fields {
			spec, err := buildFieldSpec(b, fd)
			if err != nil {
				return nil, fmt.Errorf("protodbtest: proto %q field %q: %w", pd.Name, fd.Name, err)
			}
			fieldRefs = append(fieldRefs, b.Field(protodb.KindField, fd.Name, spec))
		}
		first := b.Chain(fieldRefs...)

		idx := b.AddProtocol(protodb.Protocol{
			Name:       pd.Name,
			LongName:   pd.LongName,
			FirstField: first,
		})
		byName[pd.Name] = idx
	}

	// Second pass: nextproto chains reference protocols that may be
	// declared later in the document.
	for _, pd := range doc.Protocols {
		if pd.NextProto == nil {
			continue
		}
		idx := byName[pd.Name]
		first, err := buildNextProtoChain(b, pd.NextProto, byName)
		if err != nil {
			return nil, fmt.Errorf("protodbtest: proto %q nextproto: %w", pd.Name, err)
		}
		b.SetEncapsulation(idx, first)
	}

	if doc.Start != "" {
		start, ok := byName[doc.Start]
		if !ok {
			return nil, fmt.Errorf("protodbtest: unknown start protocol %q", doc.Start)
		}
		b.SetStart(start)
	}
	if doc.Default != "" {
		def, ok := byName[doc.Default]
		if !ok {
			return nil, fmt.Errorf("protodbtest: unknown default protocol %q", doc.Default)
		}
		b.SetDefault(def)
	}
	if doc.EtherPadding != "" {
		pad, ok := byName[doc.EtherPadding]
		if !ok {
			return nil, fmt.Errorf("protodbtest: unknown ether_padding protocol %q", doc.EtherPadding)
		}
		b.SetEtherPadding(pad)
	}
	if len(doc.SummaryColumns) > 0 {
		b.SetSummaryColumns(doc.SummaryColumns...)
	}

	return b.Build()
}

func buildFieldSpec(b *protodb.Builder, fd FieldDoc) (protodb.FieldSpec, error) {
	switch fd.Shape {
	case "fixed":
		return protodb.FieldSpec{
			Shape: protodb.ShapeFixed,
			Fixed: protodb.FixedShape{Size: fd.Size},
		}, nil

	case "variable":
		path, err := splitFieldRef(fd.LengthFieldRef)
		if err != nil {
			return protodb.FieldSpec{}, err
		}
		lenExpr := b.ProtoFieldRef(protodb.TypeNumber, path...)
		return protodb.FieldSpec{
			Shape:    protodb.ShapeVariable,
			Variable: protodb.VariableShape{LengthExpr: lenExpr},
		}, nil

	case "line":
		return protodb.FieldSpec{Shape: protodb.ShapeLine}, nil

	case "eatall":
		return protodb.FieldSpec{Shape: protodb.ShapeEatAll}, nil

	case "padding":
		return protodb.FieldSpec{
			Shape:   protodb.ShapePadding,
			Padding: protodb.PaddingShape{Align: fd.Align},
		}, nil

	case "tokenended":
		return protodb.FieldSpec{
			Shape: protodb.ShapeTokenEnded,
			TokenEnded: protodb.TokenEndedShape{
				EndToken: []byte(fd.EndToken),
			},
		}, nil

	default:
		return protodb.FieldSpec{}, fmt.Errorf("unsupported field shape %q", fd.Shape)
	}
}

func buildNextProtoChain(b *protodb.Builder, sw *SwitchDoc, byName map[string]protodb.ProtoIndex) (protodb.Ref, error) {
	path, err := splitFieldRef(sw.KeyFieldRef)
	if err != nil {
		return 0, err
	}
	key := b.ProtoFieldRef(protodb.TypeNumber, path...)

	var cases []protodb.Ref
	for _, c := range sw.Cases {
		target, ok := byName[c.Proto]
		if !ok {
			return 0, fmt.Errorf("unknown nextproto target %q", c.Proto)
		}
		protoExpr := b.NumberLit(uint32(target))
		body := b.NextProto(protoExpr)
		cases = append(cases, b.Case([]uint64{c.Value}, body))
	}

	sel := b.Switch(key, false, cases...)
	return sel, nil
}

func splitFieldRef(ref string) ([]string, error) {
	var dot int
	for i, c := range ref {
		if c == '.' {
			dot = i
			return []string{ref[:dot], ref[dot+1:]}, nil
		}
		_ = i
	}
	return nil, fmt.Errorf("malformed field reference %q (want proto.field)", ref)
}
