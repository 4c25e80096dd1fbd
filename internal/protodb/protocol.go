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

// CodeEntry is one execute-before/-verify/-after entry: a sequence of
// elements (FirstChild of a synthetic root), optionally gated by a
// `when` expression evaluated without an active field context.
type CodeEntry struct {
	When  Ref // arena.Invalid if unconditional
	First Ref // first element of the entry's body
}

// ProtoIndex identifies a protocol within a [DB] by position in
// DB.Protocols.
type ProtoIndex int

// NoProto marks the absence of a protocol selection (e.g. no
// EtherPaddingProto declared).
const NoProto ProtoIndex = -1

// Protocol describes one protocol known to the DB.
type Protocol struct {
	Name     string
	LongName string

	FirstField        Ref
	FirstEncapsulation Ref // root of the encapsulation/next-proto selection tree

	ExecuteBefore []CodeEntry
	ExecuteVerify []CodeEntry
	ExecuteAfter  []CodeEntry

	SummaryTemplate []TemplateNode
	DetailTemplate  []TemplateNode

	ByteOrder ByteOrder
}
