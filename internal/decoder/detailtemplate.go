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

package decoder

import (
	"strconv"
	"strings"

	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
	"buf.build/go/netdecode/internal/summary"
)

// renderDetailTemplate walks a field's custom showdtl-template: a small
// tree of protofield/text/if nodes, evaluated with ctx.CurrentField
// already pointed at the field being rendered.
func (d *Decoder) renderDetailTemplate(ctx *expr.Context, tmplRef protodb.Ref) (string, error) {
	el := d.DB.Element(tmplRef)
	var b strings.Builder
	for _, n := range el.ShowDtlTemplate() {
		d.renderDetailNode(ctx, n, &b)
	}
	return b.String(), nil
}

func (d *Decoder) renderDetailNode(ctx *expr.Context, n protodb.TemplateNode, b *strings.Builder) {
	switch n.Kind {
	case protodb.TplText:
		if n.TextExpr != 0 {
			if s, err := d.evalTemplateText(ctx, n.TextExpr); err == nil {
				b.WriteString(s)
			}
		} else {
			b.WriteString(n.Literal)
		}
		b.WriteString(n.Separator)

	case protodb.TplProtoField:
		ref, ok := ctx.Tree.ResolveProtoField(ctx.CurrentProto, n.ProtoFieldPath)
		if !ok {
			return
		}
		b.WriteString(summary.FieldAttribute(ctx.Tree, ref, n.Attribute))
		b.WriteString(n.Separator)

	case protodb.TplIf:
		ok, code, _ := expr.EvalBool(ctx, n.Condition)
		if code == status.Failure {
			return
		}
		if code == status.Warning {
			return
		}
		branch := n.Else
		if ok {
			branch = n.Then
		}
		for _, c := range branch {
			d.renderDetailNode(ctx, c, b)
		}

	default:
		for _, c := range n.Children {
			d.renderDetailNode(ctx, c, b)
		}
	}
}

func (d *Decoder) evalTemplateText(ctx *expr.Context, ex protodb.Ref) (string, error) {
	el := d.DB.Element(ex)
	isBuffer := false
	if el.Kind == protodb.KindOperator {
		isBuffer = el.Operator().Type == protodb.TypeBuffer
	} else {
		isBuffer = el.Operand().Type == protodb.TypeBuffer
	}
	if isBuffer {
		v, code, err := expr.EvalBuffer(ctx, ex)
		if code == status.Failure {
			return "", err
		}
		return string(v), nil
	}
	v, code, err := expr.EvalNumber(ctx, ex)
	if code == status.Failure {
		return "", err
	}
	return strconv.FormatUint(uint64(v), 10), nil
}
