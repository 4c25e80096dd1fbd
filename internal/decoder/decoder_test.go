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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/netdecode/internal/arena"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
)

func buildDB(t *testing.T, fn func(b *protodb.Builder)) *protodb.DB {
	t.Helper()
	b := protodb.NewBuilder()
	fn(b)
	db, err := b.Build()
	require.NoError(t, err)
	return db
}

// TestFixedHeaderSequentialFields covers the IPv4/TCP-shaped seed
// scenario: several fixed-width fields decoded back to back within one
// protocol, each producing its own FieldNode at the right offset.
func TestFixedHeaderSequentialFields(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		version := b.Field(protodb.KindField, "version", protodb.FieldSpec{
			Shape: protodb.ShapeFixed, Fixed: protodb.FixedShape{Size: 1},
		})
		ttl := b.Field(protodb.KindField, "ttl", protodb.FieldSpec{
			Shape: protodb.ShapeFixed, Fixed: protodb.FixedShape{Size: 1},
		})
		src := b.Field(protodb.KindField, "src", protodb.FieldSpec{
			Shape: protodb.ShapeFixed, Fixed: protodb.FixedShape{Size: 4},
		})
		b.Chain(version, ttl, src)

		p := b.AddProtocol(protodb.Protocol{Name: "ip", FirstField: version})
		b.SetStart(p)
		b.SetDefault(p)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	packet := []byte{0x04, 0x40, 0x0a, 0x00, 0x00, 0x01}
	res := d.DecodePacket(1, 0, 0, 0, packet)
	require.Equal(t, status.OK, res.Code)
	require.Nil(t, res.Err)

	var protos []string
	for p := range res.Tree.Protocols() {
		protos = append(protos, res.Tree.Proto(p).Name)
	}
	assert.Equal(t, []string{"ip"}, protos)

	var names []string
	var raws [][]byte
	for p := range res.Tree.Protocols() {
		for f := range res.Tree.ProtoFields(p) {
			fn := res.Tree.Field(f)
			names = append(names, fn.Name)
			raws = append(raws, fn.Raw)
		}
	}
	assert.Equal(t, []string{"version", "ttl", "src"}, names)
	assert.Equal(t, []byte{0x04}, raws[0])
	assert.Equal(t, []byte{0x40}, raws[1])
	assert.Equal(t, []byte{0x0a, 0x00, 0x00, 0x01}, raws[2])
}

// TestBitFieldGroupSharesContainer covers multiple bit-field members
// reading the same underlying container once, each extracting its own
// masked value, with only the last member advancing the offset.
func TestBitFieldGroupSharesContainer(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		hi := b.Field(protodb.KindField, "hi_nibble", protodb.FieldSpec{
			Shape: protodb.ShapeBit,
			Bit:   protodb.BitShape{WidthBits: 4, Mask: 0xf0, ContainerSize: 1},
		})
		lo := b.Field(protodb.KindField, "lo_nibble", protodb.FieldSpec{
			Shape: protodb.ShapeBit,
			Bit:   protodb.BitShape{WidthBits: 4, Mask: 0x0f, ContainerSize: 1, IsLastInGroup: true},
		})
		tail := b.Field(protodb.KindField, "tail", protodb.FieldSpec{
			Shape: protodb.ShapeFixed, Fixed: protodb.FixedShape{Size: 1},
		})
		b.Chain(hi, lo, tail)

		p := b.AddProtocol(protodb.Protocol{Name: "nibbles", FirstField: hi})
		b.SetStart(p)
		b.SetDefault(p)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	res := d.DecodePacket(1, 0, 0, 0, []byte{0x4A, 0xFF})
	require.Equal(t, status.OK, res.Code)

	var fields []*FieldSummary
	for p := range res.Tree.Protocols() {
		for f := range res.Tree.ProtoFields(p) {
			fn := res.Tree.Field(f)
			fields = append(fields, &FieldSummary{Name: fn.Name, Position: fn.Position, Raw: fn.Raw})
		}
	}
	require.Len(t, fields, 3)
	assert.Equal(t, "hi_nibble", fields[0].Name)
	assert.Equal(t, byte(0x04), fields[0].Raw[len(fields[0].Raw)-1])
	assert.Equal(t, "lo_nibble", fields[1].Name)
	assert.Equal(t, byte(0x0A), fields[1].Raw[len(fields[1].Raw)-1])
	// Both bit fields share offset 0; only "tail" should start at 1.
	assert.Equal(t, 0, fields[0].Position)
	assert.Equal(t, 0, fields[1].Position)
	assert.Equal(t, 1, fields[2].Position)
	assert.Equal(t, []byte{0xFF}, fields[2].Raw)
}

// FieldSummary is test-local scaffolding, not a production type.
type FieldSummary struct {
	Name     string
	Position int
	Raw      []byte
}

// TestSwitchSelectsNextProtocol covers encapsulation dispatch: a
// protocol's FirstEncapsulation switches on a decoded field's value to
// pick the next protocol to decode.
func TestSwitchSelectsNextProtocol(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		ethertype := b.Field(protodb.KindField, "ethertype", protodb.FieldSpec{
			Shape: protodb.ShapeFixed, Fixed: protodb.FixedShape{Size: 2},
		})
		link := b.AddProtocol(protodb.Protocol{Name: "link", FirstField: ethertype})

		body := b.Field(protodb.KindField, "body", protodb.FieldSpec{Shape: protodb.ShapeEatAll})
		payload := b.AddProtocol(protodb.Protocol{Name: "payload", FirstField: body})

		key := b.ProtoFieldRef(protodb.TypeNumber, "link", "ethertype")
		protoExpr := b.NumberLit(uint32(payload))
		sw := b.Switch(key, false, b.Case([]uint64{0x0800}, b.NextProto(protoExpr)))
		b.SetEncapsulation(link, sw)

		b.SetStart(link)
		b.SetDefault(link)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	res := d.DecodePacket(1, 0, 0, 0, []byte{0x08, 0x00, 'h', 'i'})
	require.Equal(t, status.OK, res.Code)

	var protos []string
	for p := range res.Tree.Protocols() {
		protos = append(protos, res.Tree.Proto(p).Name)
	}
	assert.Equal(t, []string{"link", "payload"}, protos)
}

// TestTokenEndedLineField covers the line-oriented seed scenario: a
// tokenended field that scans forward for its end token.
func TestTokenEndedLineField(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		line := b.Field(protodb.KindField, "request-line", protodb.FieldSpec{
			Shape:      protodb.ShapeTokenEnded,
			TokenEnded: protodb.TokenEndedShape{EndToken: []byte("\r\n")},
		})
		rest := b.Field(protodb.KindField, "rest", protodb.FieldSpec{Shape: protodb.ShapeEatAll})
		b.Chain(line, rest)

		p := b.AddProtocol(protodb.Protocol{Name: "http", FirstField: line})
		b.SetStart(p)
		b.SetDefault(p)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	packet := []byte("GET / HTTP/1.1\r\nHost: x\r\n")
	res := d.DecodePacket(1, 0, 0, 0, packet)
	require.Equal(t, status.OK, res.Code)

	var names []string
	var raws []string
	for p := range res.Tree.Protocols() {
		for f := range res.Tree.ProtoFields(p) {
			fn := res.Tree.Field(f)
			names = append(names, fn.Name)
			raws = append(raws, string(fn.Raw))
		}
	}
	assert.Equal(t, []string{"request-line", "rest"}, names)
	assert.Equal(t, "GET / HTTP/1.1", raws[0])
	assert.Equal(t, "Host: x\r\n", raws[1])
}

// TestLoopDecodesSetOfTLVs covers the set-of-TLVs seed scenario: a
// times-to-repeat loop decoding a fixed count of tlv fields.
func TestLoopDecodesSetOfTLVs(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		tlv := b.Field(protodb.KindField, "option", protodb.FieldSpec{
			Shape: protodb.ShapeTLV,
			TLV:   protodb.TLVShape{TypeSize: 1, LengthSize: 1},
		})
		loopBody := b.Chain(tlv)
		loop := b.Loop(protodb.LoopSpec{
			Kind:      protodb.LoopTimesToRepeat,
			CountExpr: b.NumberLit(2),
			Body:      loopBody,
		})

		p := b.AddProtocol(protodb.Protocol{Name: "options", FirstField: loop})
		b.SetStart(p)
		b.SetDefault(p)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	// Two TLVs: (type=1,len=2,"ab") (type=2,len=1,"c")
	packet := []byte{0x01, 0x02, 'a', 'b', 0x02, 0x01, 'c'}
	res := d.DecodePacket(1, 0, 0, 0, packet)
	require.Equal(t, status.OK, res.Code)

	var tops []string
	for p := range res.Tree.Protocols() {
		for f := range res.Tree.ProtoFields(p) {
			tops = append(tops, res.Tree.Field(f).Name)
		}
	}
	assert.Equal(t, []string{"option", "option"}, tops)
}

// TestTruncatedFieldWarns covers the truncated-packet seed scenario: a
// fixed field whose declared size runs past the captured data warns
// rather than fails, and clamps the field to what is actually present.
func TestTruncatedFieldWarns(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		f := b.Field(protodb.KindField, "payload", protodb.FieldSpec{
			Shape: protodb.ShapeFixed, Fixed: protodb.FixedShape{Size: 10},
		})
		p := b.AddProtocol(protodb.Protocol{Name: "short", FirstField: f})
		b.SetStart(p)
		b.SetDefault(p)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	res := d.DecodePacket(1, 0, 0, 0, []byte{0x01, 0x02, 0x03})
	require.Equal(t, status.Warning, res.Code)
	require.NotNil(t, res.Err)
	assert.Equal(t, status.Truncation, res.Err.Kind)

	for p := range res.Tree.Protocols() {
		for f := range res.Tree.ProtoFields(p) {
			fn := res.Tree.Field(f)
			assert.Equal(t, 3, fn.Size)
			assert.Equal(t, []byte{0x01, 0x02, 0x03}, fn.Raw)
		}
	}
}

// TestZeroLengthVariableFieldProducesNoNode covers the rule that a
// zero-length, non-asn1 field does not exist: a variable field whose
// length-expr evaluates to zero contributes no FieldNode and does
// not advance the offset.
func TestZeroLengthVariableFieldProducesNoNode(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		zero := b.Field(protodb.KindField, "empty", protodb.FieldSpec{
			Shape:    protodb.ShapeVariable,
			Variable: protodb.VariableShape{LengthExpr: b.NumberLit(0)},
		})
		tail := b.Field(protodb.KindField, "tail", protodb.FieldSpec{
			Shape: protodb.ShapeFixed, Fixed: protodb.FixedShape{Size: 2},
		})
		b.Chain(zero, tail)

		p := b.AddProtocol(protodb.Protocol{Name: "p", FirstField: zero})
		b.SetStart(p)
		b.SetDefault(p)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	res := d.DecodePacket(1, 0, 0, 0, []byte{0xAB, 0xCD})
	require.Equal(t, status.OK, res.Code)

	var names []string
	for p := range res.Tree.Protocols() {
		for f := range res.Tree.ProtoFields(p) {
			names = append(names, res.Tree.Field(f).Name)
		}
	}
	assert.Equal(t, []string{"tail"}, names)
}

// TestSetIteratesSpeculativeOptions covers the set seed scenario: an
// IP-options-shaped run of single-byte options (NOP, NOP, EOL) decoded
// as repeated speculative prototypes, each retroactively renamed by
// whichever match condition fires, with exit-when stopping the set once
// every captured byte has been consumed.
func TestSetIteratesSpeculativeOptions(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		opt := b.Field(protodb.KindField, "opt", protodb.FieldSpec{
			Shape: protodb.ShapeFixed, Fixed: protodb.FixedShape{Size: 1},
		})

		isNop := b.Operator(protodb.OperatorSpec{
			Type: protodb.TypeNumber,
			Op:   protodb.OpEq,
			Left: b.Operand(protodb.OperandSpec{
				Type: protodb.TypeNumber, Kind: protodb.OperandProtoFieldThis,
			}),
			Right: b.NumberLit(1),
		})
		nop := b.Match(protodb.MatchSpec{Condition: isNop, RenameTo: "nop"})
		eol := b.DefaultMatch("eol", arena.Invalid)

		exitWhen := b.Operator(protodb.OperatorSpec{
			Type: protodb.TypeNumber,
			Op:   protodb.OpGe,
			Left: b.VariableRef(protodb.TypeNumber, "currentoffset"),
			Right: b.NumberLit(3),
		})

		set := b.Set(protodb.SetSpec{
			Prototype:    opt,
			Matches:      []protodb.Ref{nop},
			DefaultMatch: eol,
			ExitWhen:     exitWhen,
		})

		p := b.AddProtocol(protodb.Protocol{Name: "ipopts", FirstField: set})
		b.SetStart(p)
		b.SetDefault(p)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	res := d.DecodePacket(1, 0, 0, 0, []byte{0x01, 0x01, 0x00})
	require.Equal(t, status.OK, res.Code)
	require.Nil(t, res.Err)

	var names []string
	for p := range res.Tree.Protocols() {
		for f := range res.Tree.ProtoFields(p) {
			names = append(names, res.Tree.Field(f).Name)
		}
	}
	assert.Equal(t, []string{"nop", "nop", "eol"}, names)
}

// TestASN1IndefiniteLengthScansPastNestedElement covers a BER
// constructed value declared with the indefinite-length form (length
// octet 0x80): a SEQUENCE containing one nested OCTET STRING, terminated
// by a 00 00 end-of-contents marker. The nested element's own header
// must not be mistaken for the terminator.
func TestASN1IndefiniteLengthScansPastNestedElement(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		f := b.Field(protodb.KindField, "value", protodb.FieldSpec{Shape: protodb.ShapeASN1})
		p := b.AddProtocol(protodb.Protocol{Name: "ber", FirstField: f})
		b.SetStart(p)
		b.SetDefault(p)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	// SEQUENCE (indefinite) { OCTET STRING "ab" } EOC
	packet := []byte{0x30, 0x80, 0x04, 0x02, 'a', 'b', 0x00, 0x00}
	res := d.DecodePacket(1, 0, 0, 0, packet)
	require.Equal(t, status.OK, res.Code)
	require.Nil(t, res.Err)

	var raw []byte
	for p := range res.Tree.Protocols() {
		for f := range res.Tree.ProtoFields(p) {
			raw = res.Tree.Field(f).Raw
		}
	}
	assert.Equal(t, packet[:6], raw)
}

// TestReleaseClearsPacketAndTree covers the cleanup a pool does between
// handing a Decoder to one caller and the next: Release must drop the
// held packet and empty the DetailTree without needing another
// DecodePacket call first.
func TestReleaseClearsPacketAndTree(t *testing.T) {
	db := buildDB(t, func(b *protodb.Builder) {
		version := b.Field(protodb.KindField, "version", protodb.FieldSpec{
			Shape: protodb.ShapeFixed, Fixed: protodb.FixedShape{Size: 1},
		})
		p := b.AddProtocol(protodb.Protocol{Name: "ip", FirstField: version})
		b.SetStart(p)
		b.SetDefault(p)
	})

	d, serr := New(db, Options{GenerateDetailFull: true})
	require.Nil(t, serr)

	res := d.DecodePacket(1, 0, 0, 0, []byte{0x04})
	require.Equal(t, status.OK, res.Code)
	require.NotEqual(t, arena.Invalid, d.Tree.FirstProto)
	require.NotNil(t, d.packet)

	d.Release()

	assert.Equal(t, arena.Invalid, d.Tree.FirstProto)
	assert.Nil(t, d.packet)
	assert.Equal(t, 0, d.caplen)
	assert.False(t, d.bitActive)

	var protos []string
	for p := range d.Tree.Protocols() {
		protos = append(protos, d.Tree.Proto(p).Name)
	}
	assert.Empty(t, protos)
}
