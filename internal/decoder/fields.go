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
	"math/bits"

	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/detail"
	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
	"buf.build/go/netdecode/internal/zc"
)

// decodeField is the field decoder's single-field path (measurement,
// commitment, descent) for `field`/`subfield` elements.
func (d *Decoder) decodeField(ctx *expr.Context, ref protodb.Ref, e *protodb.Element, maxOffset int, parent detail.Ref) (status.Code, *status.Error) {
	spec := e.Field()

	if spec.Shape == protodb.ShapeBit {
		return d.decodeBitField(ctx, e.Name, spec, parent)
	}

	start := d.offset()
	startDiscard, size, endDiscard, code, err := d.measureField(ctx, spec, start, maxOffset)
	if code == status.Failure {
		return code, err
	}
	worst, worstErr := code, err

	// A zero-length, non-asn1 field does not exist at this
	// position — no node is produced and no offset advances. asn1 is
	// exempted since a zero-length value (e.g. NULL) is a legitimate,
	// present element there.
	if size == 0 && spec.Shape != protodb.ShapeASN1 {
		return worst, worstErr
	}

	fieldStart := start + startDiscard
	end := fieldStart + size
	if end > len(d.packet) {
		end = len(d.packet)
		size = end - fieldStart
		if worst != status.Warning {
			worst, worstErr = status.Truncated(start, "field extends past captured data")
		}
	}
	if end < fieldStart {
		end = fieldStart
		size = 0
	}
	trailer := end + endDiscard
	if trailer > len(d.packet) {
		trailer = len(d.packet)
	}

	if d.Opts.TrivialDiscardNodes && startDiscard > 0 {
		d.newSubfieldRange(ctx, parent, "<discard>", start, fieldStart)
	}

	node := d.Tree.NewField(parent, ctx.CurrentProto, true)
	f := d.Tree.Field(node)
	f.Name = e.Name
	f.LongName = spec.LongName
	f.Position = fieldStart
	f.Size = size
	f.Raw = d.rawSlice(fieldStart, end)

	if d.Opts.TrivialDiscardNodes && endDiscard > 0 {
		d.newSubfieldRange(ctx, parent, "<discard>", end, trailer)
	}

	d.setOffset(trailer)

	savedField := ctx.CurrentField
	ctx.CurrentField = node
	switch spec.Shape {
	case protodb.ShapeTLV:
		d.descendTLV(ctx, &spec.TLV, node, fieldStart)
	case protodb.ShapeHdrLine:
		d.descendHdrLine(ctx, &spec.HdrLine, node, fieldStart, end)
	case protodb.ShapeDynamic:
		d.descendDynamic(ctx, &spec.Dynamic, node, fieldStart)
	}
	ctx.CurrentField = savedField

	if spec.Visual.HasPlugin {
		if cb, ok := d.Registry.Show(spec.Visual.PluginID); ok {
			show, scode, serr := cb(d.Tree.ShowViewOf(node), d.packet, len(d.packet))
			if scode == status.Failure {
				return scode, serr
			}
			d.Tree.Field(node).ShowValue = show
		}
	}
	if ferr := d.Tree.FormatField(node, d.DB, &spec.Visual, d.customTemplateRenderer(ctx)); ferr != nil {
		c, serr := status.Fail(status.PluginError, start, ferr.Error())
		return c, serr
	}

	return worst, worstErr
}

// rawSlice aliases the live packet buffer rather than copying it: Raw is
// read by show plugins and later expression evaluation across the whole
// decode, and packets are decoded to completion before being reused, so
// aliasing is safe.
func (d *Decoder) rawSlice(start, end int) []byte {
	if start < 0 || end > len(d.packet) || start > end {
		return nil
	}
	return zc.New(start, end-start).Bytes(d.packet)
}

func (d *Decoder) customTemplateRenderer(ctx *expr.Context) func(tmpl protodb.Ref, node detail.Ref) (string, error) {
	return func(tmpl protodb.Ref, node detail.Ref) (string, error) {
		savedField := ctx.CurrentField
		ctx.CurrentField = node
		defer func() { ctx.CurrentField = savedField }()
		return d.renderDetailTemplate(ctx, tmpl)
	}
}

// decodeBitField decodes one member of a shared-container bit-field
// group: the first member in the group reads the whole
// container once; every member, including the first, extracts its own
// masked value; the last-in-group member advances $currentoffset past
// the whole container.
func (d *Decoder) decodeBitField(ctx *expr.Context, name string, spec *protodb.FieldSpec, parent detail.Ref) (status.Code, *status.Error) {
	bit := &spec.Bit

	if !d.bitActive {
		start := d.offset()
		end := start + bit.ContainerSize
		if end > len(d.packet) {
			c, err := status.Fail(status.Truncation, start, "bit-field container truncated")
			return c, err
		}
		d.bitContainerStart = start
		d.bitContainerSize = bit.ContainerSize
		d.bitRaw = beUintN(d.packet[start:end])
		d.bitActive = true
	}

	shift := 0
	if bit.Mask != 0 {
		shift = bits.TrailingZeros64(bit.Mask)
	}
	val := (d.bitRaw & bit.Mask) >> uint(shift)

	nbytes := (bit.WidthBits + 7) / 8
	if nbytes == 0 {
		nbytes = 1
	}
	raw := make([]byte, nbytes)
	for i := nbytes - 1; i >= 0; i-- {
		raw[i] = byte(val)
		val >>= 8
	}

	node := d.Tree.NewField(parent, ctx.CurrentProto, true)
	f := d.Tree.Field(node)
	f.Name = name
	f.LongName = spec.LongName
	f.Position = d.bitContainerStart
	f.Size = d.bitContainerSize
	f.Mask = bit.Mask
	f.Raw = raw

	if ferr := d.Tree.FormatField(node, d.DB, &spec.Visual, d.customTemplateRenderer(ctx)); ferr != nil {
		c, serr := status.Fail(status.PluginError, d.bitContainerStart, ferr.Error())
		return c, serr
	}

	if bit.IsLastInGroup {
		d.setOffset(d.bitContainerStart + d.bitContainerSize)
		d.bitActive = false
	}

	return status.OK, nil
}

// descendTLV builds Type/Length/Value children under a decoded tlv
// field's node. parentStart is the tlv field's own
// start offset. Each subfield may have an override decode descriptor
// (shape.TypeField/LengthField/ValueField) in place of the default
// raw-bytes rendering; when present it is decoded in place of the
// default subfield, bounded to that subfield's own span.
func (d *Decoder) descendTLV(ctx *expr.Context, shape *protodb.TLVShape, parent detail.Ref, parentStart int) {
	off := parentStart
	off = d.decodeSubfieldPart(ctx, shape.TypeField, parent, "Type", off, off+shape.TypeSize)
	off = d.decodeSubfieldPart(ctx, shape.LengthField, parent, "Length", off, off+shape.LengthSize)

	// Value occupies whatever remains of the field; its size was already
	// computed during measurement as part of the overall tlv length.
	parentField := d.Tree.Field(parent)
	valueEnd := parentField.Position + parentField.Size
	d.decodeSubfieldPart(ctx, shape.ValueField, parent, "Value", off, valueEnd)
}

// decodeSubfieldPart decodes one composite-field subfield spanning
// [start,end): the override descriptor if set (tlv's Type/Length/Value,
// hdrline's Name/Value, dynamic's per-capture overrides), else a plain
// raw subfield. Returns end, so callers can thread the next subfield's
// start through.
func (d *Decoder) decodeSubfieldPart(ctx *expr.Context, override protodb.Ref, parent detail.Ref, name string, start, end int) int {
	if override == arena.Invalid {
		d.newSubfieldRange(ctx, parent, name, start, end)
		return end
	}
	el := d.DB.Element(override)
	saved := d.offset()
	d.setOffset(start)
	var lc LoopCtrl
	_, _ = d.decodeElement(ctx, override, el, end, parent, &lc)
	d.setOffset(saved)
	return end
}

func (d *Decoder) descendHdrLine(ctx *expr.Context, shape *protodb.HdrLineShape, parent detail.Ref, start, end int) {
	line := d.rawSlice(start, end)
	loc := shape.SeparatorRegex.FindIndex(line)
	if loc == nil {
		d.decodeSubfieldPart(ctx, shape.NameField, parent, "Name", start, end)
		return
	}
	d.decodeSubfieldPart(ctx, shape.NameField, parent, "Name", start, start+loc[0])
	d.decodeSubfieldPart(ctx, shape.ValueField, parent, "Value", start+loc[1], end)
}

func (d *Decoder) descendDynamic(ctx *expr.Context, shape *protodb.DynamicShape, parent detail.Ref, start int) {
	field := d.Tree.Field(parent)
	raw := field.Raw
	names := shape.Regex.SubexpNames()
	locs := shape.Regex.FindSubmatchIndex(raw)
	if locs == nil {
		return
	}
	for i, n := range names {
		if n == "" || 2*i+1 >= len(locs) || locs[2*i] < 0 {
			continue
		}
		d.decodeSubfieldPart(ctx, shape.Captures[n], parent, n, start+locs[2*i], start+locs[2*i+1])
	}
}

func (d *Decoder) newSubfieldRange(ctx *expr.Context, parent detail.Ref, name string, start, end int) detail.Ref {
	node := d.Tree.NewField(parent, ctx.CurrentProto, true)
	f := d.Tree.Field(node)
	f.Name = name
	f.Position = start
	if end > start {
		f.Size = end - start
		f.Raw = d.rawSlice(start, end)
	}
	return node
}
