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
	"bytes"

	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/expr"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
	"buf.build/go/netdecode/internal/vars"
)

func beUintN(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// measureField is the measurement phase for every field shape except
// bit, composite ones (tlv, hdrline, dynamic) included: it computes (start_discard, length, end_discard)
// starting at start and bounded by maxOffset, without producing a tree
// node. Most shapes have no discard bytes; tokenended, tokenwrapped,
// delimited, hdrline, and asn1 (EOC form) are the ones that do.
func (d *Decoder) measureField(ctx *expr.Context, spec *protodb.FieldSpec, start, maxOffset int) (startDiscard, length, endDiscard int, code status.Code, err *status.Error) {
	switch spec.Shape {
	case protodb.ShapeFixed:
		return 0, spec.Fixed.Size, 0, status.OK, nil

	case protodb.ShapeVariable:
		n, code, err := expr.EvalNumber(ctx, spec.Variable.LengthExpr)
		if code != status.OK {
			return 0, 0, 0, code, err
		}
		length := int(n)
		if start+length > maxOffset {
			length = maxOffset - start
			if length < 0 {
				length = 0
			}
			c, werr := status.Truncated(start, "variable-length field clamped to remaining bytes")
			return 0, length, 0, c, werr
		}
		return 0, length, 0, status.OK, nil

	case protodb.ShapeLine:
		n, code, err := d.measureLine(start, maxOffset)
		return 0, n, 0, code, err

	case protodb.ShapeTokenEnded:
		return d.measureTokenEnded(&spec.TokenEnded, start, maxOffset)

	case protodb.ShapeTokenWrapped:
		return d.measureTokenWrapped(ctx, &spec.TokenWrapped, start, maxOffset)

	case protodb.ShapePattern:
		n, code, err := d.measurePattern(&spec.Pattern, start, maxOffset)
		return 0, n, 0, code, err

	case protodb.ShapeEatAll:
		return 0, maxOffset - start, 0, status.OK, nil

	case protodb.ShapePadding:
		align := spec.Padding.Align
		if align <= 0 {
			return 0, 0, 0, status.OK, nil
		}
		// Relative to the enclosing protocol's own start, not the packet's:
		// align − ((abs_offset − proto_start_offset) mod align).
		rem := (start - d.protoOffset()) % align
		if rem == 0 {
			return 0, 0, 0, status.OK, nil
		}
		return 0, align - rem, 0, status.OK, nil

	case protodb.ShapePlugin:
		cb, ok := d.Registry.Field(spec.Plugin.ID)
		if !ok {
			c, err := status.Fail(status.PluginError, start, "no field plugin registered for id "+spec.Plugin.ID)
			return 0, 0, 0, c, err
		}
		size, code, cbErr := cb(d.packet, start, len(d.packet))
		if cbErr != nil {
			c, err := status.Fail(status.PluginError, start, cbErr.Error())
			return 0, 0, 0, c, err
		}
		return 0, size, 0, code, nil

	case protodb.ShapeTLV:
		n, code, err := d.measureTLV(&spec.TLV, start, maxOffset)
		return 0, n, 0, code, err

	case protodb.ShapeDelimited:
		return d.measureDelimited(&spec.Delimited, start, maxOffset)

	case protodb.ShapeHdrLine:
		return d.measureHdrLine(start, maxOffset)

	case protodb.ShapeDynamic:
		n, code, err := d.measureDynamic(&spec.Dynamic, start, maxOffset)
		return 0, n, 0, code, err

	case protodb.ShapeASN1:
		return d.measureASN1(start, maxOffset)

	case protodb.ShapeXML:
		n, code, err := d.measureXML(ctx, &spec.XML, start, maxOffset)
		return 0, n, 0, code, err

	default:
		c, err := status.Fail(status.DBInconsistency, start, "unknown field shape")
		return 0, 0, 0, c, err
	}
}

func (d *Decoder) measureLine(start, maxOffset int) (int, status.Code, *status.Error) {
	if start > maxOffset || start > len(d.packet) {
		c, err := status.Fail(status.ResourceExhaustion, start, "line field starts past available data")
		return 0, c, err
	}
	window := d.window(start, maxOffset)
	if i := bytes.IndexByte(window, '\n'); i >= 0 {
		return i + 1, status.OK, nil
	}
	code, err := status.Truncated(start, "line field has no terminating newline within bounds")
	return len(window), code, err
}

// measureHdrLine is a header line (hdrline): like line, but
// continuation lines (next line starting with a tab or space) are
// absorbed into the same field, and a trailing "\r\n" is reported as
// end_discard rather than part of the field's own content.
func (d *Decoder) measureHdrLine(start, maxOffset int) (int, int, int, status.Code, *status.Error) {
	window := d.window(start, maxOffset)
	end := 0
	for {
		i := bytes.IndexByte(window[end:], '\n')
		if i < 0 {
			code, err := status.Truncated(start, "hdrline field has no terminating newline within bounds")
			return 0, len(window), 0, code, err
		}
		end += i + 1
		if end < len(window) && (window[end] == ' ' || window[end] == '\t') {
			continue
		}
		break
	}
	content := window[:end]
	discard := 0
	switch {
	case bytes.HasSuffix(content, []byte("\r\n")):
		discard = 2
	case bytes.HasSuffix(content, []byte("\n")):
		discard = 1
	}
	return 0, end - discard, discard, status.OK, nil
}

// window returns packet[start:min(maxOffset,len(packet))], never negative.
func (d *Decoder) window(start, maxOffset int) []byte {
	end := maxOffset
	if end > len(d.packet) {
		end = len(d.packet)
	}
	if start >= end {
		return nil
	}
	return d.packet[start:end]
}

func (d *Decoder) measureTokenEnded(shape *protodb.TokenEndedShape, start, maxOffset int) (int, int, int, status.Code, *status.Error) {
	window := d.window(start, maxOffset)
	begin, tokLen := 0, 0

	if shape.EndRegex != nil {
		loc := shape.EndRegex.FindIndex(window)
		if loc == nil {
			code, err := status.Truncated(start, "tokenended end-regex not found within bounds")
			return 0, len(window), 0, code, err
		}
		begin, tokLen = loc[0], loc[1]-loc[0]
	} else {
		idx := bytes.Index(window, shape.EndToken)
		if idx < 0 {
			code, err := status.Truncated(start, "tokenended end-token not found within bounds")
			return 0, len(window), 0, code, err
		}
		begin, tokLen = idx, len(shape.EndToken)
	}

	discard := tokLen
	if shape.HasTrailingDiscard {
		discard += shape.TrailingDiscardBytes
	}

	d.setVarNumber(d.VarIDs.TokenBeginLen, 0)
	d.setVarNumber(d.VarIDs.TokenFieldLen, uint32(begin))
	d.setVarNumber(d.VarIDs.TokenEndLen, uint32(tokLen))

	return 0, begin, discard, status.OK, nil
}

// measureTokenWrapped finds a tokenwrapped field's begin/end wrappers.
//
// begin-offset-expr, when present, is taken as an absolute packet offset
// marking where the wrapped content starts: the begin-token/regex search
// is skipped and start_discard is computed directly from that offset
// instead.
func (d *Decoder) measureTokenWrapped(ctx *expr.Context, shape *protodb.TokenWrappedShape, start, maxOffset int) (int, int, int, status.Code, *status.Error) {
	window := d.window(start, maxOffset)

	if shape.BeginOffsetExpr != arena.Invalid {
		n, code, err := expr.EvalNumber(ctx, shape.BeginOffsetExpr)
		if code != status.OK {
			return 0, 0, 0, code, err
		}
		beginAbs := int(n)
		if beginAbs < start {
			beginAbs = start
		}
		return d.measureTokenWrappedFrom(ctx, shape, start, beginAbs-start, maxOffset)
	}

	beginLen := 0
	if shape.BeginRegex != nil {
		loc := shape.BeginRegex.FindIndex(window)
		if loc == nil || loc[0] != 0 {
			code, err := status.Truncated(start, "tokenwrapped begin-regex not found at field start")
			return 0, len(window), 0, code, err
		}
		beginLen = loc[1]
	} else if len(shape.BeginToken) > 0 {
		if !bytes.HasPrefix(window, shape.BeginToken) {
			code, err := status.Truncated(start, "tokenwrapped begin-token not found at field start")
			return 0, len(window), 0, code, err
		}
		beginLen = len(shape.BeginToken)
	}

	return d.measureTokenWrappedFrom(ctx, shape, start, beginLen, maxOffset)
}

// measureTokenWrappedFrom searches for the end wrapper starting beginLen
// bytes into the field (already past the begin wrapper, whether found by
// search or fixed by an absolute begin-offset-expr). end-offset-expr, when
// present, is likewise taken as an absolute packet offset marking where
// the wrapped content ends, skipping the end-token/regex search (mirrors
// begin-offset-expr's handling above).
func (d *Decoder) measureTokenWrappedFrom(ctx *expr.Context, shape *protodb.TokenWrappedShape, start, beginLen, maxOffset int) (int, int, int, status.Code, *status.Error) {
	window := d.window(start, maxOffset)
	if beginLen > len(window) {
		beginLen = len(window)
	}
	rest := window[beginLen:]

	if shape.EndOffsetExpr != arena.Invalid {
		n, code, err := expr.EvalNumber(ctx, shape.EndOffsetExpr)
		if code != status.OK {
			return beginLen, 0, 0, code, err
		}
		endAbs := int(n)
		fieldLen := endAbs - (start + beginLen)
		if fieldLen < 0 {
			fieldLen = 0
		}
		if fieldLen > len(rest) {
			fieldLen = len(rest)
		}
		discard := 0
		if shape.HasTrailingDiscard {
			discard = shape.TrailingDiscardBytes
		}
		d.setVarNumber(d.VarIDs.TokenBeginLen, uint32(beginLen))
		d.setVarNumber(d.VarIDs.TokenFieldLen, uint32(fieldLen))
		d.setVarNumber(d.VarIDs.TokenEndLen, 0)
		return beginLen, fieldLen, discard, status.OK, nil
	}

	fieldLen, endLen := 0, 0
	if shape.EndRegex != nil {
		loc := shape.EndRegex.FindIndex(rest)
		if loc == nil {
			code, err := status.Truncated(start, "tokenwrapped end-regex not found within bounds")
			return beginLen, len(window) - beginLen, 0, code, err
		}
		fieldLen, endLen = loc[0], loc[1]-loc[0]
	} else {
		idx := bytes.Index(rest, shape.EndToken)
		if idx < 0 {
			code, err := status.Truncated(start, "tokenwrapped end-token not found within bounds")
			return beginLen, len(window) - beginLen, 0, code, err
		}
		fieldLen, endLen = idx, len(shape.EndToken)
	}

	discard := endLen
	if shape.HasTrailingDiscard {
		discard += shape.TrailingDiscardBytes
	}

	d.setVarNumber(d.VarIDs.TokenBeginLen, uint32(beginLen))
	d.setVarNumber(d.VarIDs.TokenFieldLen, uint32(fieldLen))
	d.setVarNumber(d.VarIDs.TokenEndLen, uint32(endLen))

	return beginLen, fieldLen, discard, status.OK, nil
}

func (d *Decoder) measurePattern(shape *protodb.PatternShape, start, maxOffset int) (int, status.Code, *status.Error) {
	window := d.window(start, maxOffset)
	loc := shape.Regex.FindIndex(window)
	if loc == nil || loc[0] != 0 {
		if shape.PartialMatchContinues && len(window) > 0 {
			// Approximate PCRE-style partial-match semantics: try
			// successively shorter prefixes of the window, since RE2
			// has no native partial-match API over []byte.
			for n := len(window) - 1; n > 0; n-- {
				if loc := shape.Regex.FindIndex(window[:n]); loc != nil && loc[0] == 0 && loc[1] == n {
					code, err := status.Truncated(start, "pattern field partially matched within bounds")
					return n, code, err
				}
			}
		}
		code, err := status.Truncated(start, "pattern field did not match at field start")
		return 0, code, err
	}
	return loc[1], status.OK, nil
}

func (d *Decoder) measureTLV(shape *protodb.TLVShape, start, maxOffset int) (int, status.Code, *status.Error) {
	hdr := shape.TypeSize + shape.LengthSize
	window := d.window(start, maxOffset)
	if len(window) < hdr {
		c, err := status.Fail(status.Truncation, start, "tlv header truncated")
		return 0, c, err
	}
	length := beUintN(window[shape.TypeSize : shape.TypeSize+shape.LengthSize])
	total := hdr + int(length)
	if start+total > maxOffset {
		code, err := status.Truncated(start, "tlv value extends past bounds")
		return maxOffset - start, code, err
	}
	return total, status.OK, nil
}

func (d *Decoder) measureDelimited(shape *protodb.DelimitedShape, start, maxOffset int) (int, int, int, status.Code, *status.Error) {
	window := d.window(start, maxOffset)
	begin := 0
	if shape.BeginRegex != nil {
		loc := shape.BeginRegex.FindIndex(window)
		if loc == nil || loc[0] != 0 {
			if !shape.ContinueOnMissingBegin {
				c, err := status.Fail(status.Truncation, start, "delimited begin-regex not found")
				return 0, 0, 0, c, err
			}
		} else {
			begin = loc[1]
		}
	}
	rest := window[begin:]
	if shape.EndRegex != nil {
		loc := shape.EndRegex.FindIndex(rest)
		if loc == nil {
			if !shape.ContinueOnMissingEnd {
				c, err := status.Fail(status.Truncation, start, "delimited end-regex not found")
				return 0, 0, 0, c, err
			}
			return begin, len(rest), 0, status.Warning, status.New(status.Truncation, start, "delimited field ran to bounds without end-regex")
		}
		return begin, loc[0], loc[1] - loc[0], status.OK, nil
	}
	return begin, len(rest), 0, status.OK, nil
}

func (d *Decoder) measureDynamic(shape *protodb.DynamicShape, start, maxOffset int) (int, status.Code, *status.Error) {
	window := d.window(start, maxOffset)
	loc := shape.Regex.FindIndex(window)
	if loc == nil || loc[0] != 0 {
		code, err := status.Truncated(start, "dynamic field pattern did not match at field start")
		return 0, code, err
	}
	return loc[1], status.OK, nil
}

// berElementSpan returns the total byte length (header plus content) of
// one BER TLV element starting at window[pos:]. A bare 0x00 0x00 is not
// an element but the end-of-contents (EOC) sentinel that terminates an
// indefinite-length construct; berElementSpan reports it via eoc rather
// than trying to interpret it as a tag/length pair. A nested
// indefinite-length element (its own length octet is 0x80) is walked
// recursively so its own EOC is consumed as part of its span.
func berElementSpan(window []byte, pos int) (total int, eoc bool, ok bool) {
	if pos+2 > len(window) {
		return 0, false, false
	}
	if window[pos] == 0x00 && window[pos+1] == 0x00 {
		return 2, true, true
	}
	idLen := 1
	if window[pos]&0x1F == 0x1F {
		for pos+idLen < len(window) && window[pos+idLen]&0x80 != 0 {
			idLen++
		}
		idLen++
	}
	if pos+idLen >= len(window) {
		return 0, false, false
	}
	lenByte := window[pos+idLen]
	if lenByte == 0x80 {
		off := pos + idLen + 1
		for {
			span, nestedEOC, ok := berElementSpan(window, off)
			if !ok {
				return 0, false, false
			}
			off += span
			if nestedEOC {
				break
			}
		}
		return off - pos, false, true
	}
	lenLen := 1
	var contentLen int
	if lenByte&0x80 == 0 {
		contentLen = int(lenByte)
	} else {
		n := int(lenByte & 0x7F)
		if pos+idLen+1+n > len(window) {
			return 0, false, false
		}
		contentLen = int(beUintN(window[pos+idLen+1 : pos+idLen+1+n]))
		lenLen = 1 + n
	}
	total = idLen + lenLen + contentLen
	if pos+total > len(window) {
		return 0, false, false
	}
	return total, false, true
}

// measureASN1 decodes a BER identifier octet(s) + length octet(s) header
// and returns the content span. The definite-length form yields the
// header plus declared content as the field's length with no discard;
// the indefinite-length form (length octet 0x80) instead scans forward,
// walking nested elements so a nested EOC isn't mistaken for the one
// that terminates this element, and reports the terminating 0x00 0x00 as
// a two-byte end-discard.
func (d *Decoder) measureASN1(start, maxOffset int) (int, int, int, status.Code, *status.Error) {
	window := d.window(start, maxOffset)
	if len(window) < 2 {
		c, err := status.Fail(status.Truncation, start, "asn1 header truncated")
		return 0, 0, 0, c, err
	}
	idLen := 1
	if window[0]&0x1F == 0x1F {
		for idLen < len(window) && window[idLen]&0x80 != 0 {
			idLen++
		}
		idLen++
	}
	if idLen >= len(window) {
		c, err := status.Fail(status.Truncation, start, "asn1 identifier truncated")
		return 0, 0, 0, c, err
	}
	lenByte := window[idLen]

	if lenByte == 0x80 {
		contentStart := idLen + 1
		off := contentStart
		for {
			span, eoc, ok := berElementSpan(window, off)
			if !ok {
				c, err := status.Fail(status.Truncation, start, "asn1 indefinite-length content ran past bounds without an end-of-contents marker")
				return 0, 0, 0, c, err
			}
			off += span
			if eoc {
				break
			}
		}
		contentLen := off - contentStart - 2
		return 0, contentStart + contentLen, 2, status.OK, nil
	}

	lenLen := 1
	var contentLen int
	if lenByte&0x80 == 0 {
		contentLen = int(lenByte)
	} else {
		n := int(lenByte & 0x7F)
		if idLen+1+n > len(window) {
			c, err := status.Fail(status.Truncation, start, "asn1 long-form length truncated")
			return 0, 0, 0, c, err
		}
		contentLen = int(beUintN(window[idLen+1 : idLen+1+n]))
		lenLen = 1 + n
	}
	hdr := idLen + lenLen
	if hdr+contentLen > len(window) {
		code, err := status.Truncated(start, "asn1 content extends past bounds")
		return 0, len(window) - hdr, 0, code, err
	}
	return 0, hdr + contentLen, 0, status.OK, nil
}

func (d *Decoder) measureXML(ctx *expr.Context, shape *protodb.XMLShape, start, maxOffset int) (int, status.Code, *status.Error) {
	if shape.SizeExpr != arena.Invalid {
		n, code, err := expr.EvalNumber(ctx, shape.SizeExpr)
		if code != status.OK {
			return 0, code, err
		}
		return int(n), status.OK, nil
	}
	window := d.window(start, maxOffset)
	tagEnd := bytes.IndexByte(window, '>')
	if tagEnd < 0 || len(window) == 0 || window[0] != '<' {
		code, err := status.Truncated(start, "xml field has no opening tag")
		return len(window), code, err
	}
	name := bytes.TrimRight(window[1:tagEnd], "/")
	if sp := bytes.IndexAny(name, " \t"); sp >= 0 {
		name = name[:sp]
	}
	closing := []byte("</" + string(name) + ">")
	idx := bytes.Index(window[tagEnd:], closing)
	if idx < 0 {
		code, err := status.Truncated(start, "xml field has no matching closing tag")
		return len(window), code, err
	}
	return tagEnd + idx + len(closing), status.OK, nil
}

func (d *Decoder) setVarNumber(id vars.ID, v uint32) {
	_ = d.Vars.SetNumber(id, v)
}
