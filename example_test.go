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

package netdecode_test

import (
	"fmt"

	"buf.build/go/netdecode"
	"buf.build/go/netdecode/internal/protodb"
)

// buildDemoDB describes a tiny two-field header: a fixed 2-byte magic
// followed by a fixed 2-byte length. Real front-ends build a much larger
// [netdecode.ProtocolDB] from a protocol-description file; this is the
// same Builder API, just used directly.
func buildDemoDB() *netdecode.ProtocolDB {
	b := netdecode.NewBuilder()

	magic := b.Field(protodb.KindField, "magic", protodb.FieldSpec{
		Shape: protodb.ShapeFixed,
		Fixed: protodb.FixedShape{Size: 2},
	})
	length := b.Field(protodb.KindField, "length", protodb.FieldSpec{
		Shape: protodb.ShapeFixed,
		Fixed: protodb.FixedShape{Size: 2},
	})
	b.Chain(magic, length)

	demo := b.AddProtocol(protodb.Protocol{Name: "demo", FirstField: magic})
	b.SetStart(demo)
	b.SetDefault(demo)

	db, err := netdecode.Compile(b)
	if err != nil {
		panic(err)
	}
	return db
}

func Example() {
	db := buildDemoDB()

	dec, err := netdecode.NewDecoder(db, netdecode.WithDetailFull(true))
	if err != nil {
		panic(err)
	}

	packet := []byte{0xCA, 0xFE, 0x00, 0x04}
	result := dec.DecodePacket(1, 0, 0, 0, packet)

	fmt.Println("status:", result.Status)
	for proto := range result.Tree.Protocols() {
		p := result.Tree.Proto(proto)
		fmt.Println("proto:", p.Name)
		for field := range result.Tree.ProtoFields(proto) {
			f := result.Tree.Field(field)
			fmt.Printf("  %s: % x\n", f.Name, f.Raw)
		}
	}

	// Output:
	// status: ok
	// proto: demo
	//   magic: ca fe
	//   length: 00 04
}
